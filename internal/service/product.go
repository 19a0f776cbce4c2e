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

// ProductService defines the management operations for products.
type ProductService interface {
	// FindByID retrieves a product that is not soft-deleted.
	// Returns ErrProductNotFound otherwise.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindByIDIncludeDeleted retrieves a product regardless of deletion
	// state, for audit and restore flows. Requires manage rights on the
	// owning store.
	FindByIDIncludeDeleted(ctx context.Context, actorID, id uuid.UUID) (*ProductDto, error)

	// FindAll returns non-deleted products with pagination.
	FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error)

	// Create adds a new product under a store the actor may manage.
	// No retry: a fresh row cannot lose a version race.
	Create(ctx context.Context, actorID uuid.UUID, product ProductCreateDto) (*ProductDto, error)

	// Update re-reads the product and applies the change against the fresh
	// row version; concurrent modifications are retried internally.
	Update(ctx context.Context, actorID uuid.UUID, product ProductUpdateDto) (*ProductDto, error)

	// UpdateStock adjusts the stock quantity, retry-wrapped like Update.
	UpdateStock(ctx context.Context, actorID, id uuid.UUID, stock int32) (*ProductDto, error)

	// SoftDelete marks the product deleted, keeping all data. Rejects an
	// already-deleted product with ErrAlreadyDeleted.
	SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error

	// Restore brings a soft-deleted product back. Rejects a non-deleted
	// product with ErrNotDeleted.
	Restore(ctx context.Context, id, actorID uuid.UUID) (*ProductDto, error)

	// HardDelete permanently removes the product. Admin-only, blocked by
	// any referencing order, irreversible.
	HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error

	// CascadeHardDelete is HardDelete invoked by the store purge; the same
	// preconditions run, the emitted event is tagged as a cascade.
	CascadeHardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error
}

// ProductDto represents the data transfer object for a product.
// Version is read-only and reflects the optimistic concurrency token.
type ProductDto struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int32     `json:"stock"`
	IsDeleted bool      `json:"is_deleted"`
	Version   int32     `json:"version"`
	CreatedAt string    `json:"created_at"`

	Description string `json:"description,omitempty"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	StoreID     uuid.UUID `json:"store_id" validate:"required"`
	Name        string    `json:"name"     validate:"required,max=100"`
	Description string    `json:"description" validate:"max=2000"`
	Price       int64     `json:"price"    validate:"required,min=0"`
	Stock       int32     `json:"stock"    validate:"min=0"`
}

// ProductUpdateDto represents the data transfer object for updating a product.
type ProductUpdateDto struct {
	ID          uuid.UUID `json:"id"    validate:"required"`
	Name        string    `json:"name"  validate:"required,max=100"`
	Description string    `json:"description" validate:"max=2000"`
	Price       int64     `json:"price" validate:"required,min=0"`
}

// ProductManager implements ProductService.
type ProductManager struct {
	db        repository.Manager
	authz     Authorizer
	publisher messaging.Publisher
	retryCfg  config.RetryConfig
	logger    *slog.Logger
}

// NewProductManager creates a new instance of ProductService.
func NewProductManager(db repository.Manager, authz Authorizer, publisher messaging.Publisher, retryCfg config.RetryConfig, logger *slog.Logger) *ProductManager {
	return &ProductManager{
		db:        db,
		authz:     authz,
		publisher: publisher,
		retryCfg:  retryCfg,
		logger:    logger.With("component", "product_service"),
	}
}

func (s *ProductManager) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.db.Products().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return toProductDto(product), nil
}

func (s *ProductManager) FindByIDIncludeDeleted(ctx context.Context, actorID, id uuid.UUID) (*ProductDto, error) {
	product, err := s.db.Products().FindByIDIncludeDeleted(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	if err := s.requireManage(ctx, actorID, product.StoreID); err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

func (s *ProductManager) FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error) {
	products, err := s.db.Products().FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toProductDto(&products[i])
	}
	return dtos, nil
}

func (s *ProductManager) Create(ctx context.Context, actorID uuid.UUID, product ProductCreateDto) (*ProductDto, error) {
	if err := s.requireManage(ctx, actorID, product.StoreID); err != nil {
		return nil, err
	}
	// The owning store must exist and be visible.
	if _, err := s.db.Stores().FindByID(ctx, product.StoreID); err != nil {
		return nil, fmt.Errorf("failed to resolve store %s: %w", product.StoreID, err)
	}

	created, err := s.db.Products().Create(ctx, repository.CreateProductParams{
		StoreID:     product.StoreID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductDto(created), nil
}

func (s *ProductManager) Update(ctx context.Context, actorID uuid.UUID, product ProductUpdateDto) (*ProductDto, error) {
	return executeWithRetry(ctx, s.retryCfg, s.logger, "product.update", func(ctx context.Context) (*ProductDto, error) {
		current, err := s.db.Products().FindByID(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if err := s.requireManage(ctx, actorID, current.StoreID); err != nil {
			return nil, err
		}
		if current.Name == product.Name && current.Description == product.Description && current.Price == product.Price {
			// Nothing changed; do not burn a version.
			return toProductDto(current), nil
		}
		updated, err := s.db.Products().Update(ctx, repository.UpdateProductParams{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			Version:     current.Version,
		})
		if err != nil {
			return nil, err
		}
		return toProductDto(updated), nil
	})
}

func (s *ProductManager) UpdateStock(ctx context.Context, actorID, id uuid.UUID, stock int32) (*ProductDto, error) {
	if stock < 0 {
		return nil, apperrors.Validationf("stock must not be negative")
	}
	return executeWithRetry(ctx, s.retryCfg, s.logger, "product.update_stock", func(ctx context.Context) (*ProductDto, error) {
		current, err := s.db.Products().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.requireManage(ctx, actorID, current.StoreID); err != nil {
			return nil, err
		}
		updated, err := s.db.Products().UpdateStock(ctx, repository.UpdateStockParams{
			ID:      id,
			Stock:   stock,
			Version: current.Version,
		})
		if err != nil {
			return nil, err
		}
		return toProductDto(updated), nil
	})
}

func (s *ProductManager) SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error {
	deleted, err := executeWithRetry(ctx, s.retryCfg, s.logger, "product.soft_delete", func(ctx context.Context) (*model.Product, error) {
		current, err := s.db.Products().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsDeleted {
			return nil, apperrors.ErrAlreadyDeleted
		}
		if err := s.requireManage(ctx, actorID, current.StoreID); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.db.Products().SoftDelete(ctx, repository.SoftDeleteParams{
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

	s.publish(ctx, events.NewProductSoftDeleted(id, actorID, derefReason(reason), *deleted.DeletedAt))
	s.logger.InfoContext(ctx, "Product soft-deleted", "product_id", id, "actor_id", actorID)
	return nil
}

func (s *ProductManager) Restore(ctx context.Context, id, actorID uuid.UUID) (*ProductDto, error) {
	restored, err := executeWithRetry(ctx, s.retryCfg, s.logger, "product.restore", func(ctx context.Context) (*model.Product, error) {
		current, err := s.db.Products().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.IsDeleted {
			return nil, apperrors.ErrNotDeleted
		}
		if err := s.requireManage(ctx, actorID, current.StoreID); err != nil {
			return nil, err
		}
		return s.db.Products().Restore(ctx, repository.RestoreParams{ID: id, Version: current.Version})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewProductRestored(id, actorID, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Product restored", "product_id", id, "actor_id", actorID)
	return toProductDto(restored), nil
}

func (s *ProductManager) HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	return s.hardDelete(ctx, id, actorID, reason, false)
}

func (s *ProductManager) CascadeHardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	return s.hardDelete(ctx, id, actorID, reason, true)
}

// hardDelete enforces the irreversible-deletion preconditions in order:
// reason bounds, admin privilege, existence (soft-deleted rows are valid
// targets), and zero referencing orders. The order count runs inside the
// same transaction as the delete to close the check-then-act window; the
// whole transaction is retried on a version conflict.
func (s *ProductManager) hardDelete(ctx context.Context, id, actorID uuid.UUID, reason string, cascade bool) error {
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

	_, err = executeWithRetry(ctx, s.retryCfg, s.logger, "product.hard_delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.db.WithinTx(ctx, func(r repository.Repositories) error {
			current, err := r.Products().FindByIDIncludeDeleted(ctx, id)
			if err != nil {
				return err
			}
			count, err := r.Products().CountOrdersReferencing(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return &apperrors.BlockingReferenceError{Entity: "product", ID: id, OrderCount: count}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.Products().HardDelete(ctx, id, current.Version)
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewProductHardDeleted(id, actorID, reason, cascade, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Product hard-deleted", "product_id", id, "actor_id", actorID, "cascade", cascade)
	return nil
}

// requireManage maps a negative ownership answer to ErrAccessDenied.
func (s *ProductManager) requireManage(ctx context.Context, actorID, storeID uuid.UUID) error {
	ok, err := s.authz.CanManageStore(ctx, actorID, storeID)
	if err != nil {
		return fmt.Errorf("failed to check store management rights: %w", err)
	}
	if !ok {
		return apperrors.ErrAccessDenied
	}
	return nil
}

func (s *ProductManager) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish lifecycle event", "subject", event.Subject(), "error", err)
	}
}

func derefReason(reason *string) string {
	if reason == nil {
		return ""
	}
	return *reason
}

// toProductDto converts a model.Product to a ProductDto.
func toProductDto(p *model.Product) *ProductDto {
	return &ProductDto{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.StockQuantity,
		IsDeleted:   p.IsDeleted,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
