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

// PgOrderRepository implements OrderRepository using PostgreSQL.
type PgOrderRepository struct {
	db dbtx
}

const orderColumns = `id, user_id, status, total_price,
	is_deleted, deleted_at, deleted_by, deleted_reason, version, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice,
		&o.IsDeleted, &o.DeletedAt, &o.DeletedBy, &o.DeletedReason, &o.Version, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND NOT is_deleted`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	items, err := r.findItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

func (r *PgOrderRepository) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return order, nil
}

func (r *PgOrderRepository) findItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price_per_item, price, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order items: %w", err)
	}
	defer rows.Close()

	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PricePerItem, &it.Price, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order item rows: %w", err)
	}
	return items, nil
}

func (r *PgOrderRepository) FindOrdersByUserID(ctx context.Context, params FindOrdersByUserIDParams) ([]model.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1 AND NOT is_deleted ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		params.UserID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find user orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// FindIDsByStoreID resolves every order holding an item for any product of
// the store, soft-deleted orders included. Drives the store cascade.
func (r *PgOrderRepository) FindIDsByStoreID(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT o.id
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 JOIN products p ON p.id = oi.product_id
		 WHERE p.store_id = $1`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders by store ID: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order ID rows: %w", err)
	}
	return ids, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order rows: %w", err)
	}
	return orders, nil
}

func (r *PgOrderRepository) Create(ctx context.Context, params CreateOrderParams) (*model.Order, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, status) VALUES ($1, $2) RETURNING `+orderColumns,
		params.UserID, params.Status)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *PgOrderRepository) CreateItem(ctx context.Context, params CreateOrderItemParams) (*model.OrderItem, error) {
	var it model.OrderItem
	err := r.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price_per_item, price)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, order_id, product_id, quantity, price_per_item, price, created_at`,
		params.OrderID, params.ProductID, params.Quantity, params.PricePerItem, params.Price).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PricePerItem, &it.Price, &it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}
	return &it, nil
}

func (r *PgOrderRepository) SetTotalPrice(ctx context.Context, id uuid.UUID, total int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET total_price = $2 WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("failed to set order total price: %w", err)
	}
	return nil
}

func (r *PgOrderRepository) SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Order, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE orders
		 SET is_deleted = true, deleted_at = $2, deleted_by = $3, deleted_reason = $4,
		     version = version + 1
		 WHERE id = $1 AND version = $5 AND NOT is_deleted
		 RETURNING `+orderColumns,
		params.ID, params.DeletedAt, params.DeletedBy, params.Reason, params.Version)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, softDeleteConflict)
		}
		return nil, fmt.Errorf("failed to soft-delete order: %w", err)
	}
	return order, nil
}

func (r *PgOrderRepository) Restore(ctx context.Context, params RestoreParams) (*model.Order, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE orders
		 SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, deleted_reason = NULL,
		     version = version + 1
		 WHERE id = $1 AND version = $2 AND is_deleted
		 RETURNING `+orderColumns,
		params.ID, params.Version)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, restoreConflict)
		}
		return nil, fmt.Errorf("failed to restore order: %w", err)
	}
	return order, nil
}

func (r *PgOrderRepository) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM orders WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to hard-delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.writeMiss(ctx, id, anyRowConflict)
	}
	return nil
}

func (r *PgOrderRepository) CountByStoreID(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT o.id)
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 JOIN products p ON p.id = oi.product_id
		 WHERE p.store_id = $1`, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders by store ID: %w", err)
	}
	return count, nil
}

func (r *PgOrderRepository) writeMiss(ctx context.Context, id uuid.UUID, mode conflictMode) error {
	current, err := r.FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return err
	}
	return mode.classify(current.IsDeleted)
}
