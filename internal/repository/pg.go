package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vendhub/marketplace/internal/apperrors"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so the same repository
// code serves pool-scoped reads and transaction-scoped mutations.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conflictMode tells writeMiss how to classify a version-guarded write that
// matched no row, after the re-read confirmed the row still exists.
type conflictMode int

const (
	// activeRowConflict: the write targeted a non-deleted row; any
	// surviving row means the version went stale.
	activeRowConflict conflictMode = iota
	// softDeleteConflict: a still-deleted row means somebody else deleted
	// it first.
	softDeleteConflict
	// restoreConflict: a non-deleted row means there is nothing to restore.
	restoreConflict
	// anyRowConflict: hard delete targets rows in either deletion state.
	anyRowConflict
)

func (m conflictMode) classify(isDeleted bool) error {
	switch m {
	case softDeleteConflict:
		if isDeleted {
			return apperrors.ErrAlreadyDeleted
		}
	case restoreConflict:
		if !isDeleted {
			return apperrors.ErrNotDeleted
		}
	}
	return apperrors.ErrOptimisticLock
}

// PgRepositories bundles the pgx-backed repositories over one dbtx.
type PgRepositories struct {
	stores   *PgStoreRepository
	products *PgProductRepository
	orders   *PgOrderRepository
}

func newPgRepositories(db dbtx) *PgRepositories {
	return &PgRepositories{
		stores:   &PgStoreRepository{db: db},
		products: &PgProductRepository{db: db},
		orders:   &PgOrderRepository{db: db},
	}
}

func (r *PgRepositories) Stores() StoreRepository     { return r.stores }
func (r *PgRepositories) Products() ProductRepository { return r.products }
func (r *PgRepositories) Orders() OrderRepository     { return r.orders }

// PgManager owns the connection pool and the transaction boundary.
type PgManager struct {
	pool *pgxpool.Pool
	*PgRepositories
}

func NewPgManager(pool *pgxpool.Pool) *PgManager {
	return &PgManager{
		pool:           pool,
		PgRepositories: newPgRepositories(pool),
	}
}

// WithinTx begins a transaction, binds a fresh repository set to it and runs
// fn. Any error from fn rolls the transaction back before propagating, so a
// failure partway through a multi-entity mutation leaves no partial write.
func (m *PgManager) WithinTx(ctx context.Context, fn func(r Repositories) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return apperrors.ErrTransactionBegin
	}

	err = fn(newPgRepositories(tx))
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return apperrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.ErrTransactionCommit
	}

	return nil
}
