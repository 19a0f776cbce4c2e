package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/internal/model"
)

// PgProductRepository implements ProductRepository using PostgreSQL.
type PgProductRepository struct {
	db dbtx
}

const productColumns = `id, store_id, name, description, price, stock_quantity,
	is_deleted, deleted_at, deleted_by, deleted_reason, version, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.IsDeleted, &p.DeletedAt, &p.DeletedBy, &p.DeletedReason, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND NOT is_deleted`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) FindAll(ctx context.Context, offset, limit int32) ([]model.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE NOT is_deleted ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PgProductRepository) FindByStoreIDIncludeDeleted(ctx context.Context, storeID uuid.UUID) ([]model.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = $1 ORDER BY created_at`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by store ID: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}
	return products, nil
}

func (r *PgProductRepository) Create(ctx context.Context, params CreateProductParams) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO products (store_id, name, description, price, stock_quantity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		params.StoreID, params.Name, params.Description, params.Price, params.Stock)
	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) Update(ctx context.Context, params UpdateProductParams) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5 AND NOT is_deleted
		 RETURNING `+productColumns,
		params.ID, params.Name, params.Description, params.Price, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, activeRowConflict)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) UpdateStock(ctx context.Context, params UpdateStockParams) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE products
		 SET stock_quantity = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3 AND NOT is_deleted
		 RETURNING `+productColumns,
		params.ID, params.Stock, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, activeRowConflict)
		}
		return nil, fmt.Errorf("failed to update product stock: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE products
		 SET is_deleted = true, deleted_at = $2, deleted_by = $3, deleted_reason = $4,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5 AND NOT is_deleted
		 RETURNING `+productColumns,
		params.ID, params.DeletedAt, params.DeletedBy, params.Reason, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, softDeleteConflict)
		}
		return nil, fmt.Errorf("failed to soft-delete product: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) Restore(ctx context.Context, params RestoreParams) (*model.Product, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE products
		 SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, deleted_reason = NULL,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2 AND is_deleted
		 RETURNING `+productColumns,
		params.ID, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, restoreConflict)
		}
		return nil, fmt.Errorf("failed to restore product: %w", err)
	}
	return product, nil
}

func (r *PgProductRepository) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to hard-delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.writeMiss(ctx, id, anyRowConflict)
	}
	return nil
}

func (r *PgProductRepository) CountOrdersReferencing(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT order_id) FROM order_items WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders referencing product: %w", err)
	}
	return count, nil
}

// writeMiss disambiguates a version-guarded write that matched no row: the
// row may be gone, in the wrong deletion state, or modified concurrently.
func (r *PgProductRepository) writeMiss(ctx context.Context, id uuid.UUID, mode conflictMode) error {
	current, err := r.FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			return apperrors.ErrProductNotFound
		}
		return err
	}
	return mode.classify(current.IsDeleted)
}
