package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/internal/model"
	"github.com/vendhub/marketplace/internal/repository"
	"github.com/vendhub/marketplace/pkg/config"
	"github.com/vendhub/marketplace/pkg/messaging"
	"github.com/vendhub/marketplace/pkg/messaging/events"
)

// StoreService defines the management operations for seller storefronts.
type StoreService interface {
	// FindByID retrieves a store that is not soft-deleted.
	FindByID(ctx context.Context, id uuid.UUID) (*StoreDto, error)

	// FindByIDIncludeDeleted retrieves a store regardless of deletion state,
	// for audit and restore flows. Requires manage rights.
	FindByIDIncludeDeleted(ctx context.Context, actorID, id uuid.UUID) (*StoreDto, error)

	// FindAll returns non-deleted stores with pagination.
	FindAll(ctx context.Context, offset, limit int32) ([]StoreDto, error)

	// Create opens a new storefront owned by the acting seller.
	Create(ctx context.Context, actorID uuid.UUID, store StoreCreateDto) (*StoreDto, error)

	// Update re-reads the store and applies the change against the fresh
	// row version; concurrent modifications are retried internally.
	Update(ctx context.Context, actorID uuid.UUID, store StoreUpdateDto) (*StoreDto, error)

	// SetActive flips the activation flag. A restored store stays inactive
	// until activated through this call.
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*StoreDto, error)

	// SoftDelete marks the store deleted, keeping all data and leaving
	// products and orders untouched.
	SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error

	// Restore brings a soft-deleted store back in the inactive state.
	Restore(ctx context.Context, id, actorID uuid.UUID) (*StoreDto, error)

	// HardDelete permanently removes the store and cascades over every
	// order and product that references it. Admin-only, irreversible.
	// Children are purged before the store row; a failure mid-cascade
	// leaves already-purged children gone and the store row in place.
	HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error
}

// StoreDto represents the data transfer object for a store.
type StoreDto struct {
	ID        uuid.UUID `json:"id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"is_deleted"`
	Version   int32     `json:"version"`
	CreatedAt string    `json:"created_at"`

	Description string `json:"description,omitempty"`
}

// StoreCreateDto represents the data transfer object for opening a store.
type StoreCreateDto struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// StoreUpdateDto represents the data transfer object for updating a store.
type StoreUpdateDto struct {
	ID          uuid.UUID `json:"id"   validate:"required"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=2000"`
}

// StoreManager implements StoreService. Hard deletion delegates the
// per-child purges to the product and order services so each child runs
// under its own transaction and retry budget.
type StoreManager struct {
	db        repository.Manager
	authz     Authorizer
	products  ProductService
	orders    OrderService
	publisher messaging.Publisher
	retryCfg  config.RetryConfig
	logger    *slog.Logger
}

// NewStoreManager creates a new instance of StoreService.
func NewStoreManager(
	db repository.Manager,
	authz Authorizer,
	products ProductService,
	orders OrderService,
	publisher messaging.Publisher,
	retryCfg config.RetryConfig,
	logger *slog.Logger,
) *StoreManager {
	return &StoreManager{
		db:        db,
		authz:     authz,
		products:  products,
		orders:    orders,
		publisher: publisher,
		retryCfg:  retryCfg,
		logger:    logger.With("component", "store_service"),
	}
}

func (s *StoreManager) FindByID(ctx context.Context, id uuid.UUID) (*StoreDto, error) {
	store, err := s.db.Stores().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store %s: %w", id, err)
	}
	return toStoreDto(store), nil
}

func (s *StoreManager) FindByIDIncludeDeleted(ctx context.Context, actorID, id uuid.UUID) (*StoreDto, error) {
	store, err := s.db.Stores().FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store %s: %w", id, err)
	}
	if err := s.requireManage(ctx, actorID, id); err != nil {
		return nil, err
	}
	return toStoreDto(store), nil
}

func (s *StoreManager) FindAll(ctx context.Context, offset, limit int32) ([]StoreDto, error) {
	stores, err := s.db.Stores().FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stores: %w", err)
	}
	dtos := make([]StoreDto, len(stores))
	for i := range stores {
		dtos[i] = *toStoreDto(&stores[i])
	}
	return dtos, nil
}

func (s *StoreManager) Create(ctx context.Context, actorID uuid.UUID, store StoreCreateDto) (*StoreDto, error) {
	created, err := s.db.Stores().Create(ctx, repository.CreateStoreParams{
		SellerID:    actorID,
		Name:        store.Name,
		Description: store.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return toStoreDto(created), nil
}

func (s *StoreManager) Update(ctx context.Context, actorID uuid.UUID, store StoreUpdateDto) (*StoreDto, error) {
	return executeWithRetry(ctx, s.retryCfg, s.logger, "store.update", func(ctx context.Context) (*StoreDto, error) {
		current, err := s.db.Stores().FindByID(ctx, store.ID)
		if err != nil {
			return nil, err
		}
		if err := s.requireManage(ctx, actorID, store.ID); err != nil {
			return nil, err
		}
		if current.Name == store.Name && current.Description == store.Description {
			return toStoreDto(current), nil
		}
		updated, err := s.db.Stores().Update(ctx, repository.UpdateStoreParams{
			ID:          store.ID,
			Name:        store.Name,
			Description: store.Description,
			Version:     current.Version,
		})
		if err != nil {
			return nil, err
		}
		return toStoreDto(updated), nil
	})
}

func (s *StoreManager) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*StoreDto, error) {
	return executeWithRetry(ctx, s.retryCfg, s.logger, "store.set_active", func(ctx context.Context) (*StoreDto, error) {
		current, err := s.db.Stores().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.requireManage(ctx, actorID, id); err != nil {
			return nil, err
		}
		if current.IsActive == active {
			return toStoreDto(current), nil
		}
		updated, err := s.db.Stores().SetActive(ctx, id, active, current.Version)
		if err != nil {
			return nil, err
		}
		return toStoreDto(updated), nil
	})
}

func (s *StoreManager) SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error {
	deleted, err := executeWithRetry(ctx, s.retryCfg, s.logger, "store.soft_delete", func(ctx context.Context) (*model.Store, error) {
		current, err := s.db.Stores().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsDeleted {
			return nil, apperrors.ErrAlreadyDeleted
		}
		if err := s.requireManage(ctx, actorID, id); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.db.Stores().SoftDelete(ctx, repository.SoftDeleteParams{
			ID:        id,
			DeletedBy: actorID,
			Reason:    reason,
			DeletedAt: time.Now().UTC(),
			Version:   current.Version,
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewStoreSoftDeleted(id, actorID, derefReason(reason), *deleted.DeletedAt))
	s.logger.InfoContext(ctx, "Store soft-deleted", "store_id", id, "actor_id", actorID)
	return nil
}

func (s *StoreManager) Restore(ctx context.Context, id, actorID uuid.UUID) (*StoreDto, error) {
	restored, err := executeWithRetry(ctx, s.retryCfg, s.logger, "store.restore", func(ctx context.Context) (*model.Store, error) {
		current, err := s.db.Stores().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.IsDeleted {
			return nil, apperrors.ErrNotDeleted
		}
		if err := s.requireManage(ctx, actorID, id); err != nil {
			return nil, err
		}
		return s.db.Stores().Restore(ctx, repository.RestoreParams{ID: id, Version: current.Version})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewStoreRestored(id, actorID, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Store restored", "store_id", id, "actor_id", actorID)
	return toStoreDto(restored), nil
}

func (s *StoreManager) HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	if err := validateHardDeleteReason(reason); err != nil {
		return err
	}
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to check admin privilege: %w", err)
	}
	if !admin {
		return apperrors.ErrAdminRequired
	}

	store, err := s.db.Stores().FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch store %s: %w", id, err)
	}

	if err := s.cascadeOrders(ctx, store, actorID, reason); err != nil {
		return err
	}
	// An order placed after the ID scan would be stranded once its
	// products are gone. Re-count and stop before touching products.
	remaining, err := s.db.Orders().CountByStoreID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to re-count orders of store %s: %w", id, err)
	}
	if remaining > 0 {
		return &apperrors.BlockingReferenceError{Entity: "store", ID: id, OrderCount: remaining}
	}
	if err := s.cascadeProducts(ctx, store, actorID, reason); err != nil {
		return err
	}

	// Children are gone; remove the store row itself. The version read at
	// the start may be stale by now, so the delete runs its own
	// read-then-delete cycle.
	_, err = executeWithRetry(ctx, s.retryCfg, s.logger, "store.hard_delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.db.WithinTx(ctx, func(r repository.Repositories) error {
			current, err := r.Stores().FindByIDIncludeDeleted(ctx, id)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.Stores().HardDelete(ctx, id, current.Version)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete store %s (%s): %w", id, store.Name, err)
	}

	s.publish(ctx, events.NewStoreHardDeleted(id, actorID, reason, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Store hard-deleted", "store_id", id, "actor_id", actorID)
	return nil
}

// cascadeOrders purges every order referencing a product of the store.
// Each order goes through the order service's own precondition and
// transaction path.
func (s *StoreManager) cascadeOrders(ctx context.Context, store *model.Store, actorID uuid.UUID, reason string) error {
	orderIDs, err := s.db.Orders().FindIDsByStoreID(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("failed to collect orders of store %s (%s): %w", store.ID, store.Name, err)
	}
	childReason := cascadeReason(store.ID, store.Name, reason)
	for _, orderID := range orderIDs {
		if err := s.orders.CascadeHardDelete(ctx, orderID, actorID, childReason); err != nil {
			return fmt.Errorf("cascade from store %s (%s) failed on order %s: %w", store.ID, store.Name, orderID, err)
		}
	}
	s.logger.InfoContext(ctx, "Cascade purged orders", "store_id", store.ID, "order_count", len(orderIDs))
	return nil
}

// cascadeProducts purges every product of the store, soft-deleted ones
// included. Runs after cascadeOrders so no product is still referenced.
func (s *StoreManager) cascadeProducts(ctx context.Context, store *model.Store, actorID uuid.UUID, reason string) error {
	products, err := s.db.Products().FindByStoreIDIncludeDeleted(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("failed to collect products of store %s (%s): %w", store.ID, store.Name, err)
	}
	childReason := cascadeReason(store.ID, store.Name, reason)
	for _, product := range products {
		if err := s.products.CascadeHardDelete(ctx, product.ID, actorID, childReason); err != nil {
			return fmt.Errorf("cascade from store %s (%s) failed on product %s: %w", store.ID, store.Name, product.ID, err)
		}
	}
	s.logger.InfoContext(ctx, "Cascade purged products", "store_id", store.ID, "product_count", len(products))
	return nil
}

func (s *StoreManager) requireManage(ctx context.Context, actorID, storeID uuid.UUID) error {
	ok, err := s.authz.CanManageStore(ctx, actorID, storeID)
	if err != nil {
		return fmt.Errorf("failed to check store management rights: %w", err)
	}
	if !ok {
		return apperrors.ErrAccessDenied
	}
	return nil
}

func (s *StoreManager) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish lifecycle event", "subject", event.Subject(), "error", err)
	}
}

// toStoreDto converts a model.Store to a StoreDto.
func toStoreDto(st *model.Store) *StoreDto {
	return &StoreDto{
		ID:          st.ID,
		SellerID:    st.SellerID,
		Name:        st.Name,
		Description: st.Description,
		IsActive:    st.IsActive,
		IsDeleted:   st.IsDeleted,
		Version:     st.Version,
		CreatedAt:   st.CreatedAt.Format(time.RFC3339),
	}
}
