package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/internal/authz"
	"github.com/vendhub/marketplace/internal/repository"
	"github.com/vendhub/marketplace/pkg/config"
	"github.com/vendhub/marketplace/pkg/messaging"
	"github.com/vendhub/marketplace/pkg/web"
)

const skipIntegrationTests = "MARKET_SKIP_INTEGRATION_TESTS"

// LifecycleSuite walks the full deletion lifecycle through the real
// services against a real database: creation, soft delete, restore,
// blocked hard delete and the store cascade.
type LifecycleSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	ctx         context.Context

	stores   StoreService
	products ProductService
	orders   OrderService
}

func (s *LifecycleSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("marketplace_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	for range 10 {
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	m, err := migrate.New("file://"+filepath.Join(wd, "../../deploy/migrations"), connStr)
	require.NoError(s.T(), err)
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}

	db := repository.NewPgManager(s.dbPool)
	authorizer := authz.NewContextAuthorizer(db.Stores())
	retryCfg := config.RetryConfig{MaxAttempts: 3, InitialBackoff: 5 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s.products = NewProductManager(db, authorizer, messaging.NoopPublisher{}, retryCfg, logger)
	s.orders = NewOrderManager(db, authorizer, messaging.NoopPublisher{}, retryCfg, logger)
	s.stores = NewStoreManager(db, authorizer, s.products, s.orders, messaging.NoopPublisher{}, retryCfg, logger)
}

func (s *LifecycleSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *LifecycleSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE order_items, orders, products, stores RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err)
}

func TestLifecycleIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(LifecycleSuite))
}

// asActor builds a request context carrying a verified identity.
func asActor(userID uuid.UUID, roles ...string) context.Context {
	return web.WithActor(context.Background(), web.Actor{UserID: userID, Roles: roles})
}

func (s *LifecycleSuite) countRows(table string) int {
	s.T().Helper()
	var n int
	err := s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM "+table).Scan(&n)
	require.NoError(s.T(), err)
	return n
}

func (s *LifecycleSuite) TestFullLifecycleWalk() {
	r := require.New(s.T())

	sellerID := uuid.New()
	customerID := uuid.New()
	adminID := uuid.New()
	sellerCtx := asActor(sellerID)
	customerCtx := asActor(customerID)
	adminCtx := asActor(adminID, "admin")

	// The seller opens a store and activates it.
	store, err := s.stores.Create(sellerCtx, sellerID, StoreCreateDto{Name: "Acme Supplies"})
	r.NoError(err)
	store, err = s.stores.SetActive(sellerCtx, sellerID, store.ID, true)
	r.NoError(err)
	r.True(store.IsActive)

	// Two products go on sale.
	ordered, err := s.products.Create(sellerCtx, sellerID, ProductCreateDto{
		StoreID: store.ID, Name: "Widget", Price: 1000, Stock: 10,
	})
	r.NoError(err)
	unsold, err := s.products.Create(sellerCtx, sellerID, ProductCreateDto{
		StoreID: store.ID, Name: "Gadget", Price: 500, Stock: 5,
	})
	r.NoError(err)

	// A customer orders the first product; stock is reserved.
	order, err := s.orders.Create(customerCtx, customerID, OrderCreateDto{
		Items: []OrderItemCreateDto{{ProductID: ordered.ID, Quantity: 2}},
	})
	r.NoError(err)
	r.Equal(int64(2000), order.TotalPrice)
	after, err := s.products.FindByID(s.ctx, ordered.ID)
	r.NoError(err)
	r.Equal(int32(8), after.Stock)

	// The customer can shelve the order and get it back.
	r.NoError(s.orders.SoftDelete(customerCtx, order.ID, customerID, nil))
	_, err = s.orders.FindByID(customerCtx, customerID, order.ID)
	r.ErrorIs(err, apperrors.ErrOrderNotFound)
	recovered, err := s.orders.Restore(customerCtx, order.ID, customerID)
	r.NoError(err)
	r.False(recovered.IsDeleted)
	r.Equal(int64(2000), recovered.TotalPrice)
	_, err = s.orders.Restore(customerCtx, order.ID, customerID)
	r.ErrorIs(err, apperrors.ErrNotDeleted)

	// The unsold product is soft-deleted, disappears from reads, and a
	// second delete is a lifecycle conflict.
	r.NoError(s.products.SoftDelete(sellerCtx, unsold.ID, sellerID, nil))
	_, err = s.products.FindByID(s.ctx, unsold.ID)
	r.ErrorIs(err, apperrors.ErrProductNotFound)
	err = s.products.SoftDelete(sellerCtx, unsold.ID, sellerID, nil)
	r.ErrorIs(err, apperrors.ErrAlreadyDeleted)

	// Restore brings it back; restoring again is rejected.
	restored, err := s.products.Restore(sellerCtx, unsold.ID, sellerID)
	r.NoError(err)
	r.False(restored.IsDeleted)
	_, err = s.products.Restore(sellerCtx, unsold.ID, sellerID)
	r.ErrorIs(err, apperrors.ErrNotDeleted)

	// The ordered product cannot be purged while its order exists.
	err = s.products.HardDelete(adminCtx, ordered.ID, adminID, "catalog cleanup before store closure")
	var blocked *apperrors.BlockingReferenceError
	r.ErrorAs(err, &blocked)
	r.Equal(int64(1), blocked.OrderCount)
	_, err = s.products.FindByID(s.ctx, ordered.ID)
	r.NoError(err, "a blocked hard delete must leave the product intact")

	// A non-admin cannot purge at all.
	err = s.products.HardDelete(sellerCtx, ordered.ID, sellerID, "seller wants this gone immediately")
	r.ErrorIs(err, apperrors.ErrAdminRequired)

	// The store purge cascades: the order goes first, then both products,
	// then the store row. Nothing remains.
	err = s.stores.HardDelete(adminCtx, store.ID, adminID, "regulatory takedown of the storefront")
	r.NoError(err)

	r.Zero(s.countRows("order_items"))
	r.Zero(s.countRows("orders"))
	r.Zero(s.countRows("products"))
	r.Zero(s.countRows("stores"))

	_, err = s.stores.FindByID(s.ctx, store.ID)
	r.ErrorIs(err, apperrors.ErrStoreNotFound)
}

func (s *LifecycleSuite) TestStoreRestoreComesBackInactive() {
	r := require.New(s.T())

	sellerID := uuid.New()
	sellerCtx := asActor(sellerID)

	store, err := s.stores.Create(sellerCtx, sellerID, StoreCreateDto{Name: "Pop-up Shop"})
	r.NoError(err)
	_, err = s.stores.SetActive(sellerCtx, sellerID, store.ID, true)
	r.NoError(err)

	r.NoError(s.stores.SoftDelete(sellerCtx, store.ID, sellerID, nil))

	restored, err := s.stores.Restore(sellerCtx, store.ID, sellerID)
	r.NoError(err)
	r.False(restored.IsDeleted)
	r.False(restored.IsActive, "restore must not reactivate the store")

	// Explicit reactivation is a separate step.
	activated, err := s.stores.SetActive(sellerCtx, sellerID, store.ID, true)
	r.NoError(err)
	r.True(activated.IsActive)
}
