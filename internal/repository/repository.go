// Package repository provides the persistence contracts for stores,
// products and orders. Implementations must report row-version mismatches
// as apperrors.ErrOptimisticLock, distinct from not-found and from generic
// database failures, so the service layer can retry the whole
// read-modify-write cycle.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/model"
)

// SoftDeleteParams carries the audit trail written together with the
// deletion flag. Version is the row version observed by the caller's
// preceding read.
type SoftDeleteParams struct {
	ID        uuid.UUID
	DeletedBy uuid.UUID
	Reason    *string
	DeletedAt time.Time
	Version   int32
}

// RestoreParams clears the deletion flag and audit fields.
type RestoreParams struct {
	ID      uuid.UUID
	Version int32
}

type CreateStoreParams struct {
	SellerID    uuid.UUID
	Name        string
	Description string
}

type UpdateStoreParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Version     int32
}

// StoreRepository is the persistence contract for seller storefronts.
type StoreRepository interface {
	// FindByID retrieves a store that is not soft-deleted.
	// Returns ErrStoreNotFound otherwise.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Store, error)

	// FindByIDIncludeDeleted retrieves a store regardless of its deletion
	// state. Returns ErrStoreNotFound only when no row exists at all.
	FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Store, error)

	// FindAll returns non-deleted stores with pagination.
	FindAll(ctx context.Context, offset, limit int32) ([]model.Store, error)

	Create(ctx context.Context, params CreateStoreParams) (*model.Store, error)

	// Update is version-guarded. Returns ErrOptimisticLock when the row
	// exists but the version is stale.
	Update(ctx context.Context, params UpdateStoreParams) (*model.Store, error)

	// SetActive flips the activation flag, version-guarded.
	SetActive(ctx context.Context, id uuid.UUID, active bool, version int32) (*model.Store, error)

	// SoftDelete marks the store deleted and writes the audit fields.
	// Returns ErrAlreadyDeleted when the row is already soft-deleted.
	SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Store, error)

	// Restore clears the deletion flag and audit fields. The store comes
	// back inactive. Returns ErrNotDeleted when the row is not soft-deleted.
	Restore(ctx context.Context, params RestoreParams) (*model.Store, error)

	// HardDelete permanently removes the row, version-guarded.
	HardDelete(ctx context.Context, id uuid.UUID, version int32) error
}

type CreateProductParams struct {
	StoreID     uuid.UUID
	Name        string
	Description string
	Price       int64
	Stock       int32
}

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Version     int32
}

type UpdateStockParams struct {
	ID      uuid.UUID
	Stock   int32
	Version int32
}

// ProductRepository is the persistence contract for products.
type ProductRepository interface {
	// FindByID retrieves a product that is not soft-deleted.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// FindByIDIncludeDeleted retrieves a product regardless of its deletion
	// state.
	FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// FindAll returns non-deleted products with pagination.
	FindAll(ctx context.Context, offset, limit int32) ([]model.Product, error)

	// FindByStoreIDIncludeDeleted returns every product of a store,
	// soft-deleted ones included. Used by the store cascade.
	FindByStoreIDIncludeDeleted(ctx context.Context, storeID uuid.UUID) ([]model.Product, error)

	Create(ctx context.Context, params CreateProductParams) (*model.Product, error)

	// Update is version-guarded.
	Update(ctx context.Context, params UpdateProductParams) (*model.Product, error)

	// UpdateStock adjusts the stock quantity, version-guarded.
	UpdateStock(ctx context.Context, params UpdateStockParams) (*model.Product, error)

	SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Product, error)

	Restore(ctx context.Context, params RestoreParams) (*model.Product, error)

	HardDelete(ctx context.Context, id uuid.UUID, version int32) error

	// CountOrdersReferencing counts order rows holding an item for the
	// product. Soft-deleted orders count too: they remain financial records.
	CountOrdersReferencing(ctx context.Context, productID uuid.UUID) (int64, error)
}

type CreateOrderParams struct {
	UserID uuid.UUID
	Status string
}

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	Quantity     int32
	PricePerItem int64
	Price        int64
}

type FindOrdersByUserIDParams struct {
	UserID uuid.UUID
	Offset int32
	Limit  int32
}

// OrderRepository is the persistence contract for orders.
type OrderRepository interface {
	// FindByID retrieves a non-deleted order together with its items.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// FindByIDIncludeDeleted retrieves an order regardless of deletion state.
	FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Order, error)

	FindOrdersByUserID(ctx context.Context, params FindOrdersByUserIDParams) ([]model.Order, error)

	// FindIDsByStoreID returns the IDs of every order, soft-deleted ones
	// included, holding an item for any product of the store.
	FindIDsByStoreID(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)

	Create(ctx context.Context, params CreateOrderParams) (*model.Order, error)

	CreateItem(ctx context.Context, params CreateOrderItemParams) (*model.OrderItem, error)

	// SetTotalPrice is written after items are inserted, within the same
	// transaction as Create.
	SetTotalPrice(ctx context.Context, id uuid.UUID, total int64) error

	SoftDelete(ctx context.Context, params SoftDeleteParams) (*model.Order, error)

	// Restore clears the deletion flag and audit fields. Returns
	// ErrNotDeleted when the row is not soft-deleted.
	Restore(ctx context.Context, params RestoreParams) (*model.Order, error)

	// HardDelete permanently removes the order; its items go with it via
	// the FK cascade.
	HardDelete(ctx context.Context, id uuid.UUID, version int32) error

	// CountByStoreID counts orders referencing any product of the store.
	CountByStoreID(ctx context.Context, storeID uuid.UUID) (int64, error)
}

// Repositories is the set of contracts bound to a single transaction or to
// the shared pool.
type Repositories interface {
	Stores() StoreRepository
	Products() ProductRepository
	Orders() OrderRepository
}

// TxManager runs a function inside one database transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
// Calls do not nest: a WithinTx inside fn opens a new, independent
// transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}

// Manager is the full persistence surface handed to the services:
// pool-scoped repositories for reads plus the transaction boundary for
// multi-step mutations.
type Manager interface {
	Repositories
	TxManager
}
