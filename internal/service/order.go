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

const orderStatusPending = "PENDING"

// OrderService defines the management operations for customer orders.
type OrderService interface {
	// Create places an order for the acting customer. Every item is priced
	// from the current product row and stock is reserved in the same
	// transaction; insufficient stock fails the whole order.
	Create(ctx context.Context, actorID uuid.UUID, order OrderCreateDto) (*OrderDto, error)

	// FindByID retrieves a non-deleted order with its items. Only the
	// owning customer or an admin may read it.
	FindByID(ctx context.Context, actorID, id uuid.UUID) (*OrderDto, error)

	// FindOrdersByUserID lists a customer's non-deleted orders. Only the
	// customer themselves or an admin may list them.
	FindOrdersByUserID(ctx context.Context, actorID, userID uuid.UUID, offset, limit int32) ([]OrderDto, error)

	// SoftDelete hides the order from regular reads, keeping the financial
	// record intact.
	SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error

	// Restore reverses a soft delete. Only the owning customer or an
	// admin may restore.
	Restore(ctx context.Context, id, actorID uuid.UUID) (*OrderDto, error)

	// HardDelete permanently removes the order and its items. Admin-only.
	// Unlike products, no reference check applies: order items go with the
	// order through the foreign key cascade.
	HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error

	// CascadeHardDelete is HardDelete invoked by the store purge; the
	// emitted event is tagged as a cascade.
	CascadeHardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error
}

// OrderDto represents the data transfer object for an order.
type OrderDto struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	Status     string         `json:"status"`
	TotalPrice int64          `json:"total_price"`
	IsDeleted  bool           `json:"is_deleted"`
	Version    int32          `json:"version"`
	CreatedAt  string         `json:"created_at"`
	Items      []OrderItemDto `json:"items,omitempty"`
}

// OrderItemDto represents the data transfer object for a single order line.
type OrderItemDto struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	PricePerItem int64     `json:"price_per_item"`
	Price        int64     `json:"price"`
}

// OrderCreateDto represents the data transfer object for placing an order.
type OrderCreateDto struct {
	Items []OrderItemCreateDto `json:"items" validate:"required,min=1,dive"`
}

// OrderItemCreateDto is a single requested order line.
type OrderItemCreateDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity"   validate:"required,gt=0"`
}

// OrderManager implements OrderService.
type OrderManager struct {
	db        repository.Manager
	authz     Authorizer
	publisher messaging.Publisher
	retryCfg  config.RetryConfig
	logger    *slog.Logger
}

// NewOrderManager creates a new instance of OrderService.
func NewOrderManager(db repository.Manager, authz Authorizer, publisher messaging.Publisher, retryCfg config.RetryConfig, logger *slog.Logger) *OrderManager {
	return &OrderManager{
		db:        db,
		authz:     authz,
		publisher: publisher,
		retryCfg:  retryCfg,
		logger:    logger.With("component", "order_service"),
	}
}

func (s *OrderManager) Create(ctx context.Context, actorID uuid.UUID, order OrderCreateDto) (*OrderDto, error) {
	return executeWithRetry(ctx, s.retryCfg, s.logger, "order.create", func(ctx context.Context) (*OrderDto, error) {
		var dto *OrderDto
		err := s.db.WithinTx(ctx, func(r repository.Repositories) error {
			created, err := r.Orders().Create(ctx, repository.CreateOrderParams{
				UserID: actorID,
				Status: orderStatusPending,
			})
			if err != nil {
				return err
			}

			var total int64
			items := make([]OrderItemDto, 0, len(order.Items))
			for _, requested := range order.Items {
				product, err := r.Products().FindByID(ctx, requested.ProductID)
				if err != nil {
					return err
				}
				if product.StockQuantity < requested.Quantity {
					return fmt.Errorf("product %s has %d in stock, %d requested: %w",
						product.ID, product.StockQuantity, requested.Quantity, apperrors.ErrInsufficientStock)
				}
				// Stock reservation is version-guarded; a concurrent change
				// aborts the transaction and the order is retried whole.
				if _, err := r.Products().UpdateStock(ctx, repository.UpdateStockParams{
					ID:      product.ID,
					Stock:   product.StockQuantity - requested.Quantity,
					Version: product.Version,
				}); err != nil {
					return err
				}

				linePrice := product.Price * int64(requested.Quantity)
				item, err := r.Orders().CreateItem(ctx, repository.CreateOrderItemParams{
					OrderID:      created.ID,
					ProductID:    product.ID,
					Quantity:     requested.Quantity,
					PricePerItem: product.Price,
					Price:        linePrice,
				})
				if err != nil {
					return err
				}
				total += linePrice
				items = append(items, toOrderItemDto(item))
			}

			if err := r.Orders().SetTotalPrice(ctx, created.ID, total); err != nil {
				return err
			}

			created.TotalPrice = total
			dto = toOrderDto(created, items)
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Order created", "order_id", dto.ID, "user_id", actorID, "total_price", dto.TotalPrice)
		return dto, nil
	})
}

func (s *OrderManager) FindByID(ctx context.Context, actorID, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.db.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}
	if err := s.requireOwnerOrAdmin(ctx, actorID, order.UserID); err != nil {
		return nil, err
	}
	dtos := make([]OrderItemDto, len(items))
	for i := range items {
		dtos[i] = toOrderItemDto(&items[i])
	}
	return toOrderDto(order, dtos), nil
}

func (s *OrderManager) FindOrdersByUserID(ctx context.Context, actorID, userID uuid.UUID, offset, limit int32) ([]OrderDto, error) {
	if err := s.requireOwnerOrAdmin(ctx, actorID, userID); err != nil {
		return nil, err
	}
	orders, err := s.db.Orders().FindOrdersByUserID(ctx, repository.FindOrdersByUserIDParams{
		UserID: userID,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders of user %s: %w", userID, err)
	}
	dtos := make([]OrderDto, len(orders))
	for i := range orders {
		dtos[i] = *toOrderDto(&orders[i], nil)
	}
	return dtos, nil
}

func (s *OrderManager) SoftDelete(ctx context.Context, id, actorID uuid.UUID, reason *string) error {
	deleted, err := executeWithRetry(ctx, s.retryCfg, s.logger, "order.soft_delete", func(ctx context.Context) (*model.Order, error) {
		current, err := s.db.Orders().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsDeleted {
			return nil, apperrors.ErrAlreadyDeleted
		}
		if err := s.requireOwnerOrAdmin(ctx, actorID, current.UserID); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.db.Orders().SoftDelete(ctx, repository.SoftDeleteParams{
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

	s.publish(ctx, events.NewOrderSoftDeleted(id, actorID, derefReason(reason), *deleted.DeletedAt))
	s.logger.InfoContext(ctx, "Order soft-deleted", "order_id", id, "actor_id", actorID)
	return nil
}

func (s *OrderManager) Restore(ctx context.Context, id, actorID uuid.UUID) (*OrderDto, error) {
	restored, err := executeWithRetry(ctx, s.retryCfg, s.logger, "order.restore", func(ctx context.Context) (*model.Order, error) {
		current, err := s.db.Orders().FindByIDIncludeDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.IsDeleted {
			return nil, apperrors.ErrNotDeleted
		}
		if err := s.requireOwnerOrAdmin(ctx, actorID, current.UserID); err != nil {
			return nil, err
		}
		return s.db.Orders().Restore(ctx, repository.RestoreParams{ID: id, Version: current.Version})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewOrderRestored(id, actorID, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Order restored", "order_id", id, "actor_id", actorID)
	return toOrderDto(restored, nil), nil
}

func (s *OrderManager) HardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	return s.hardDelete(ctx, id, actorID, reason, false)
}

func (s *OrderManager) CascadeHardDelete(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	return s.hardDelete(ctx, id, actorID, reason, true)
}

func (s *OrderManager) hardDelete(ctx context.Context, id, actorID uuid.UUID, reason string, cascade bool) error {
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

	_, err = executeWithRetry(ctx, s.retryCfg, s.logger, "order.hard_delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.db.WithinTx(ctx, func(r repository.Repositories) error {
			current, err := r.Orders().FindByIDIncludeDeleted(ctx, id)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.Orders().HardDelete(ctx, id, current.Version)
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewOrderHardDeleted(id, actorID, reason, cascade, time.Now().UTC()))
	s.logger.InfoContext(ctx, "Order hard-deleted", "order_id", id, "actor_id", actorID, "cascade", cascade)
	return nil
}

// requireOwnerOrAdmin allows the owning customer through without an authz
// round-trip; everyone else needs the admin role.
func (s *OrderManager) requireOwnerOrAdmin(ctx context.Context, actorID, ownerID uuid.UUID) error {
	if actorID == ownerID {
		return nil
	}
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to check admin privilege: %w", err)
	}
	if !admin {
		return apperrors.ErrAccessDenied
	}
	return nil
}

func (s *OrderManager) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish lifecycle event", "subject", event.Subject(), "error", err)
	}
}

func toOrderDto(o *model.Order, items []OrderItemDto) *OrderDto {
	return &OrderDto{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		IsDeleted:  o.IsDeleted,
		Version:    o.Version,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
		Items:      items,
	}
}

func toOrderItemDto(it *model.OrderItem) OrderItemDto {
	return OrderItemDto{
		ID:           it.ID,
		ProductID:    it.ProductID,
		Quantity:     it.Quantity,
		PricePerItem: it.PricePerItem,
		Price:        it.Price,
	}
}
