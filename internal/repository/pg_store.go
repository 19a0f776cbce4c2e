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

// PgStoreRepository implements StoreRepository using PostgreSQL.
type PgStoreRepository struct {
	db dbtx
}

const storeColumns = `id, seller_id, name, description, is_active,
	is_deleted, deleted_at, deleted_by, deleted_reason, version, created_at, updated_at`

func scanStore(row pgx.Row) (*model.Store, error) {
	var s model.Store
	err := row.Scan(&s.ID, &s.SellerID, &s.Name, &s.Description, &s.IsActive,
		&s.IsDeleted, &s.DeletedAt, &s.DeletedBy, &s.DeletedReason, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1 AND NOT is_deleted`, id)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) FindAll(ctx context.Context, offset, limit int32) ([]model.Store, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE NOT is_deleted ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find all stores: %w", err)
	}
	defer rows.Close()

	stores := make([]model.Store, 0)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		stores = append(stores, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store rows: %w", err)
	}
	return stores, nil
}

func (r *PgStoreRepository) Create(ctx context.Context, params CreateStoreParams) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO stores (seller_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+storeColumns,
		params.SellerID, params.Name, params.Description)
	store, err := scanStore(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) Update(ctx context.Context, params UpdateStoreParams) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE stores
		 SET name = $2, description = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $4 AND NOT is_deleted
		 RETURNING `+storeColumns,
		params.ID, params.Name, params.Description, params.Version)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, activeRowConflict)
		}
		return nil, fmt.Errorf("failed to update store: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, version int32) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE stores
		 SET is_active = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3 AND NOT is_deleted
		 RETURNING `+storeColumns,
		id, active, version)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, id, activeRowConflict)
		}
		return nil, fmt.Errorf("failed to update store activation: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE stores
		 SET is_deleted = true, deleted_at = $2, deleted_by = $3, deleted_reason = $4,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5 AND NOT is_deleted
		 RETURNING `+storeColumns,
		params.ID, params.DeletedAt, params.DeletedBy, params.Reason, params.Version)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, softDeleteConflict)
		}
		return nil, fmt.Errorf("failed to soft-delete store: %w", err)
	}
	return store, nil
}

// Restore clears the deletion state. The activation flag is deliberately
// left false: a restored store must be activated explicitly.
func (r *PgStoreRepository) Restore(ctx context.Context, params RestoreParams) (*model.Store, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE stores
		 SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, deleted_reason = NULL,
		     is_active = false, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2 AND is_deleted
		 RETURNING `+storeColumns,
		params.ID, params.Version)
	store, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.writeMiss(ctx, params.ID, restoreConflict)
		}
		return nil, fmt.Errorf("failed to restore store: %w", err)
	}
	return store, nil
}

func (r *PgStoreRepository) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM stores WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to hard-delete store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.writeMiss(ctx, id, anyRowConflict)
	}
	return nil
}

func (r *PgStoreRepository) writeMiss(ctx context.Context, id uuid.UUID, mode conflictMode) error {
	current, err := r.FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrStoreNotFound) {
			return apperrors.ErrStoreNotFound
		}
		return err
	}
	return mode.classify(current.IsDeleted)
}
