package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/model"
	"github.com/vendhub/marketplace/internal/repository"
	"github.com/vendhub/marketplace/pkg/config"
	"github.com/vendhub/marketplace/pkg/messaging"
)

var testRetryCfg = config.RetryConfig{MaxAttempts: 3, InitialBackoff: 1}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// mockStoreRepo is a mock implementation of the StoreRepository interface.
// Each func field overrides one method; unset methods fall back to the
// configured store/err pair.
type mockStoreRepo struct {
	store *model.Store
	err   error

	findByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Store, error)
	findIncDeletedFn func(ctx context.Context, id uuid.UUID) (*model.Store, error)
	softDeleteFn     func(ctx context.Context, params repository.SoftDeleteParams) (*model.Store, error)
	restoreFn        func(ctx context.Context, params repository.RestoreParams) (*model.Store, error)
	updateFn         func(ctx context.Context, params repository.UpdateStoreParams) (*model.Store, error)
	setActiveFn      func(ctx context.Context, id uuid.UUID, active bool, version int32) (*model.Store, error)
	hardDeleteFn     func(ctx context.Context, id uuid.UUID, version int32) error
	softDeleteCalls  []repository.SoftDeleteParams
	hardDeleteCalls  []uuid.UUID
}

func (m *mockStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	if m.findIncDeletedFn != nil {
		return m.findIncDeletedFn(ctx, id)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) FindAll(_ context.Context, _, _ int32) ([]model.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.store == nil {
		return []model.Store{}, nil
	}
	return []model.Store{*m.store}, nil
}

func (m *mockStoreRepo) Create(_ context.Context, _ repository.CreateStoreParams) (*model.Store, error) {
	return m.store, m.err
}

func (m *mockStoreRepo) Update(ctx context.Context, params repository.UpdateStoreParams) (*model.Store, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, params)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, version int32) (*model.Store, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active, version)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) SoftDelete(ctx context.Context, params repository.SoftDeleteParams) (*model.Store, error) {
	m.softDeleteCalls = append(m.softDeleteCalls, params)
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, params)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) Restore(ctx context.Context, params repository.RestoreParams) (*model.Store, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, params)
	}
	return m.store, m.err
}

func (m *mockStoreRepo) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	m.hardDeleteCalls = append(m.hardDeleteCalls, id)
	if m.hardDeleteFn != nil {
		return m.hardDeleteFn(ctx, id, version)
	}
	return m.err
}

// mockProductRepo is a mock implementation of the ProductRepository interface.
type mockProductRepo struct {
	product  *model.Product
	products []model.Product
	count    int64
	err      error

	findByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Product, error)
	findIncDeletedFn func(ctx context.Context, id uuid.UUID) (*model.Product, error)
	updateFn         func(ctx context.Context, params repository.UpdateProductParams) (*model.Product, error)
	updateStockFn    func(ctx context.Context, params repository.UpdateStockParams) (*model.Product, error)
	softDeleteFn     func(ctx context.Context, params repository.SoftDeleteParams) (*model.Product, error)
	restoreFn        func(ctx context.Context, params repository.RestoreParams) (*model.Product, error)
	hardDeleteFn     func(ctx context.Context, id uuid.UUID, version int32) error
	countFn          func(ctx context.Context, productID uuid.UUID) (int64, error)
	softDeleteCalls  []repository.SoftDeleteParams
	hardDeleteCalls  []uuid.UUID
}

func (m *mockProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return m.product, m.err
}

func (m *mockProductRepo) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if m.findIncDeletedFn != nil {
		return m.findIncDeletedFn(ctx, id)
	}
	return m.product, m.err
}

func (m *mockProductRepo) FindAll(_ context.Context, _, _ int32) ([]model.Product, error) {
	return m.products, m.err
}

func (m *mockProductRepo) FindByStoreIDIncludeDeleted(_ context.Context, _ uuid.UUID) ([]model.Product, error) {
	return m.products, m.err
}

func (m *mockProductRepo) Create(_ context.Context, _ repository.CreateProductParams) (*model.Product, error) {
	return m.product, m.err
}

func (m *mockProductRepo) Update(ctx context.Context, params repository.UpdateProductParams) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, params)
	}
	return m.product, m.err
}

func (m *mockProductRepo) UpdateStock(ctx context.Context, params repository.UpdateStockParams) (*model.Product, error) {
	if m.updateStockFn != nil {
		return m.updateStockFn(ctx, params)
	}
	return m.product, m.err
}

func (m *mockProductRepo) SoftDelete(ctx context.Context, params repository.SoftDeleteParams) (*model.Product, error) {
	m.softDeleteCalls = append(m.softDeleteCalls, params)
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, params)
	}
	return m.product, m.err
}

func (m *mockProductRepo) Restore(ctx context.Context, params repository.RestoreParams) (*model.Product, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, params)
	}
	return m.product, m.err
}

func (m *mockProductRepo) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	m.hardDeleteCalls = append(m.hardDeleteCalls, id)
	if m.hardDeleteFn != nil {
		return m.hardDeleteFn(ctx, id, version)
	}
	return m.err
}

func (m *mockProductRepo) CountOrdersReferencing(ctx context.Context, productID uuid.UUID) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, productID)
	}
	return m.count, m.err
}

// mockOrderRepo is a mock implementation of the OrderRepository interface.
type mockOrderRepo struct {
	order    *model.Order
	items    []model.OrderItem
	orders   []model.Order
	orderIDs []uuid.UUID
	count    int64
	err      error

	findIncDeletedFn func(ctx context.Context, id uuid.UUID) (*model.Order, error)
	createFn         func(ctx context.Context, params repository.CreateOrderParams) (*model.Order, error)
	createItemFn     func(ctx context.Context, params repository.CreateOrderItemParams) (*model.OrderItem, error)
	softDeleteFn     func(ctx context.Context, params repository.SoftDeleteParams) (*model.Order, error)
	restoreFn        func(ctx context.Context, params repository.RestoreParams) (*model.Order, error)
	hardDeleteFn     func(ctx context.Context, id uuid.UUID, version int32) error
	countByStoreFn   func(ctx context.Context, storeID uuid.UUID) (int64, error)
	totals           []int64
	hardDeleteCalls  []uuid.UUID
}

func (m *mockOrderRepo) FindByID(_ context.Context, _ uuid.UUID) (*model.Order, []model.OrderItem, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.order, m.items, nil
}

func (m *mockOrderRepo) FindByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if m.findIncDeletedFn != nil {
		return m.findIncDeletedFn(ctx, id)
	}
	return m.order, m.err
}

func (m *mockOrderRepo) FindOrdersByUserID(_ context.Context, _ repository.FindOrdersByUserIDParams) ([]model.Order, error) {
	return m.orders, m.err
}

func (m *mockOrderRepo) FindIDsByStoreID(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return m.orderIDs, m.err
}

func (m *mockOrderRepo) Create(ctx context.Context, params repository.CreateOrderParams) (*model.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, params)
	}
	return m.order, m.err
}

func (m *mockOrderRepo) CreateItem(ctx context.Context, params repository.CreateOrderItemParams) (*model.OrderItem, error) {
	if m.createItemFn != nil {
		return m.createItemFn(ctx, params)
	}
	return &model.OrderItem{
		ID:           uuid.New(),
		OrderID:      params.OrderID,
		ProductID:    params.ProductID,
		Quantity:     params.Quantity,
		PricePerItem: params.PricePerItem,
		Price:        params.Price,
	}, m.err
}

func (m *mockOrderRepo) SetTotalPrice(_ context.Context, _ uuid.UUID, total int64) error {
	m.totals = append(m.totals, total)
	return nil
}

func (m *mockOrderRepo) SoftDelete(ctx context.Context, params repository.SoftDeleteParams) (*model.Order, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, params)
	}
	return m.order, m.err
}

func (m *mockOrderRepo) Restore(ctx context.Context, params repository.RestoreParams) (*model.Order, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, params)
	}
	return m.order, m.err
}

func (m *mockOrderRepo) HardDelete(ctx context.Context, id uuid.UUID, version int32) error {
	m.hardDeleteCalls = append(m.hardDeleteCalls, id)
	if m.hardDeleteFn != nil {
		return m.hardDeleteFn(ctx, id, version)
	}
	return m.err
}

func (m *mockOrderRepo) CountByStoreID(ctx context.Context, storeID uuid.UUID) (int64, error) {
	if m.countByStoreFn != nil {
		return m.countByStoreFn(ctx, storeID)
	}
	return m.count, m.err
}

// mockManager bundles the mock repositories behind repository.Manager.
// WithinTx runs fn against the same repositories and counts invocations.
type mockManager struct {
	stores   *mockStoreRepo
	products *mockProductRepo
	orders   *mockOrderRepo

	txCount int
	txErr   error
}

func newMockManager() *mockManager {
	return &mockManager{
		stores:   &mockStoreRepo{},
		products: &mockProductRepo{},
		orders:   &mockOrderRepo{},
	}
}

func (m *mockManager) Stores() repository.StoreRepository     { return m.stores }
func (m *mockManager) Products() repository.ProductRepository { return m.products }
func (m *mockManager) Orders() repository.OrderRepository     { return m.orders }

func (m *mockManager) WithinTx(_ context.Context, fn func(r repository.Repositories) error) error {
	m.txCount++
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

// mockAuthorizer is a mock implementation of the Authorizer interface.
type mockAuthorizer struct {
	admin     bool
	canManage bool
	err       error
}

func (m *mockAuthorizer) IsAdmin(_ context.Context, _ uuid.UUID) (bool, error) {
	return m.admin, m.err
}

func (m *mockAuthorizer) CanManageStore(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return m.canManage, m.err
}

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []messaging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.Event(nil), p.events...)
}
