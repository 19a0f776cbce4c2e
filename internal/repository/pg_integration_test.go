package repository

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/internal/model"
)

const skipIntegrationTests = "MARKET_SKIP_INTEGRATION_TESTS"

// RepositorySuite exercises the PostgreSQL repositories against a real
// database: visibility filters, version guards and the deletion lifecycle.
type RepositorySuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	manager     *PgManager
	logger      *slog.Logger
	ctx         context.Context
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

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
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../deploy/migrations")
	m, err := migrate.New("file://"+migrationsPath, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied")

	s.manager = NewPgManager(s.dbPool)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE order_items, orders, products, stores RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

func TestRepositoryIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) createTestStore() *model.Store {
	s.T().Helper()
	store, err := s.manager.Stores().Create(s.ctx, CreateStoreParams{
		SellerID:    uuid.New(),
		Name:        "Acme Supplies",
		Description: "test store",
	})
	require.NoError(s.T(), err, "createTestStore helper failed")
	return store
}

func (s *RepositorySuite) createTestProduct(storeID uuid.UUID) *model.Product {
	s.T().Helper()
	product, err := s.manager.Products().Create(s.ctx, CreateProductParams{
		StoreID:     storeID,
		Name:        "Widget",
		Description: "test product",
		Price:       1000,
		Stock:       10,
	})
	require.NoError(s.T(), err, "createTestProduct helper failed")
	return product
}

func (s *RepositorySuite) createTestOrderFor(productID uuid.UUID) *model.Order {
	s.T().Helper()
	order, err := s.manager.Orders().Create(s.ctx, CreateOrderParams{UserID: uuid.New(), Status: "PENDING"})
	require.NoError(s.T(), err)
	_, err = s.manager.Orders().CreateItem(s.ctx, CreateOrderItemParams{
		OrderID:      order.ID,
		ProductID:    productID,
		Quantity:     1,
		PricePerItem: 1000,
		Price:        1000,
	})
	require.NoError(s.T(), err)
	return order
}

func (s *RepositorySuite) TestStoreCreate() {
	s.SetupTest()
	// when
	store := s.createTestStore()
	// then
	require.NotZero(s.T(), store.ID)
	require.Equal(s.T(), int32(1), store.Version, "Version should be 1 for a new row")
	require.False(s.T(), store.IsActive, "A new store starts inactive")
	require.False(s.T(), store.IsDeleted)
}

func (s *RepositorySuite) TestStoreSoftDeleteLifecycle() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	actor := uuid.New()
	reason := "seller request"

	// when soft-deleted
	deleted, err := s.manager.Stores().SoftDelete(s.ctx, SoftDeleteParams{
		ID:        store.ID,
		DeletedBy: actor,
		Reason:    &reason,
		DeletedAt: time.Now().UTC(),
		Version:   store.Version,
	})
	// then the audit trail is written and the version bumped
	require.NoError(s.T(), err)
	require.True(s.T(), deleted.IsDeleted)
	require.NotNil(s.T(), deleted.DeletedAt)
	require.Equal(s.T(), actor, *deleted.DeletedBy)
	require.Equal(s.T(), reason, *deleted.DeletedReason)
	require.Equal(s.T(), store.Version+1, deleted.Version)

	// and the row disappears from the default read path
	_, err = s.manager.Stores().FindByID(s.ctx, store.ID)
	require.ErrorIs(s.T(), err, apperrors.ErrStoreNotFound)

	// but stays reachable when deleted rows are included
	found, err := s.manager.Stores().FindByIDIncludeDeleted(s.ctx, store.ID)
	require.NoError(s.T(), err)
	require.True(s.T(), found.IsDeleted)

	// deleting again is a lifecycle conflict, not a version conflict
	_, err = s.manager.Stores().SoftDelete(s.ctx, SoftDeleteParams{
		ID:        store.ID,
		DeletedBy: actor,
		DeletedAt: time.Now().UTC(),
		Version:   deleted.Version,
	})
	require.ErrorIs(s.T(), err, apperrors.ErrAlreadyDeleted)

	// when restored
	restored, err := s.manager.Stores().Restore(s.ctx, RestoreParams{ID: store.ID, Version: deleted.Version})
	// then the audit fields are cleared and the store comes back inactive
	require.NoError(s.T(), err)
	require.False(s.T(), restored.IsDeleted)
	require.Nil(s.T(), restored.DeletedAt)
	require.Nil(s.T(), restored.DeletedBy)
	require.Nil(s.T(), restored.DeletedReason)
	require.False(s.T(), restored.IsActive, "restore must not reactivate the store")

	// restoring a live row is rejected
	_, err = s.manager.Stores().Restore(s.ctx, RestoreParams{ID: store.ID, Version: restored.Version})
	require.ErrorIs(s.T(), err, apperrors.ErrNotDeleted)
}

func (s *RepositorySuite) TestStoreUpdateVersionGuard() {
	s.SetupTest()
	// given
	store := s.createTestStore()

	testCases := []struct {
		name        string
		id          uuid.UUID
		version     int32
		expectedErr error
	}{
		{name: "Successful update", id: store.ID, version: store.Version},
		{name: "Stale version", id: store.ID, version: store.Version, expectedErr: apperrors.ErrOptimisticLock},
		{name: "Non-existent store", id: uuid.New(), version: 1, expectedErr: apperrors.ErrStoreNotFound},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			updated, err := s.manager.Stores().Update(s.ctx, UpdateStoreParams{
				ID:          tc.id,
				Name:        "Renamed",
				Description: "updated",
				Version:     tc.version,
			})
			// then
			if tc.expectedErr != nil {
				require.ErrorIs(s.T(), err, tc.expectedErr)
				require.Nil(s.T(), updated)
			} else {
				require.NoError(s.T(), err)
				require.Equal(s.T(), tc.version+1, updated.Version)
			}
		})
	}
}

func (s *RepositorySuite) TestProductStockAndVisibility() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	product := s.createTestProduct(store.ID)

	// when stock is updated with the right version
	updated, err := s.manager.Products().UpdateStock(s.ctx, UpdateStockParams{
		ID:      product.ID,
		Stock:   7,
		Version: product.Version,
	})
	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(7), updated.StockQuantity)
	require.Equal(s.T(), product.Version+1, updated.Version)

	// soft-deleted products stay visible through the store-scoped read
	_, err = s.manager.Products().SoftDelete(s.ctx, SoftDeleteParams{
		ID:        product.ID,
		DeletedBy: uuid.New(),
		DeletedAt: time.Now().UTC(),
		Version:   updated.Version,
	})
	require.NoError(s.T(), err)

	all, err := s.manager.Products().FindAll(s.ctx, 0, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), all, "soft-deleted products must not be listed")

	byStore, err := s.manager.Products().FindByStoreIDIncludeDeleted(s.ctx, store.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), byStore, 1, "the cascade read must see soft-deleted products")
}

func (s *RepositorySuite) TestCountOrdersReferencing() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	product := s.createTestProduct(store.ID)

	// no orders yet
	count, err := s.manager.Products().CountOrdersReferencing(s.ctx, product.ID)
	require.NoError(s.T(), err)
	require.Zero(s.T(), count)

	// two orders, one of them soft-deleted
	s.createTestOrderFor(product.ID)
	order2 := s.createTestOrderFor(product.ID)
	_, err = s.manager.Orders().SoftDelete(s.ctx, SoftDeleteParams{
		ID:        order2.ID,
		DeletedBy: uuid.New(),
		DeletedAt: time.Now().UTC(),
		Version:   order2.Version,
	})
	require.NoError(s.T(), err)

	// when
	count, err = s.manager.Products().CountOrdersReferencing(s.ctx, product.ID)
	// then soft-deleted orders still block
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(2), count)
}

func (s *RepositorySuite) TestFindOrderIDsByStoreID() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	otherStore := s.createTestStore()
	product := s.createTestProduct(store.ID)
	otherProduct := s.createTestProduct(otherStore.ID)

	order := s.createTestOrderFor(product.ID)
	s.createTestOrderFor(otherProduct.ID)

	// when
	ids, err := s.manager.Orders().FindIDsByStoreID(s.ctx, store.ID)
	// then only the order touching this store's product is returned
	require.NoError(s.T(), err)
	require.Equal(s.T(), []uuid.UUID{order.ID}, ids)
}

func (s *RepositorySuite) TestHardDeleteRemovesRowAndItems() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	product := s.createTestProduct(store.ID)
	order := s.createTestOrderFor(product.ID)

	// stale version is rejected
	err := s.manager.Orders().HardDelete(s.ctx, order.ID, order.Version+1)
	require.ErrorIs(s.T(), err, apperrors.ErrOptimisticLock)

	// when deleted with the right version
	err = s.manager.Orders().HardDelete(s.ctx, order.ID, order.Version)
	// then the order and its items are gone
	require.NoError(s.T(), err)
	_, err = s.manager.Orders().FindByIDIncludeDeleted(s.ctx, order.ID)
	require.ErrorIs(s.T(), err, apperrors.ErrOrderNotFound)

	var itemCount int
	err = s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM order_items WHERE order_id = $1", order.ID).Scan(&itemCount)
	require.NoError(s.T(), err)
	require.Zero(s.T(), itemCount, "order items must go with the order")

	// deleting a missing row reports not-found, not a conflict
	err = s.manager.Orders().HardDelete(s.ctx, order.ID, order.Version)
	require.ErrorIs(s.T(), err, apperrors.ErrOrderNotFound)
}

func (s *RepositorySuite) TestWithinTxRollsBackOnError() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	errBoom := errors.New("boom")

	// when the function fails mid-transaction
	err := s.manager.WithinTx(s.ctx, func(r Repositories) error {
		if _, err := r.Products().Create(s.ctx, CreateProductParams{
			StoreID: store.ID,
			Name:    "Ghost",
			Price:   1,
		}); err != nil {
			return err
		}
		return errBoom
	})
	// then nothing is persisted
	require.ErrorIs(s.T(), err, errBoom)
	products, err := s.manager.Products().FindAll(s.ctx, 0, 10)
	require.NoError(s.T(), err)
	require.Empty(s.T(), products)
}

// TestConcurrentVersionedUpdates drives several writers through the
// read-check-retry protocol at once; every writer must land exactly one
// version increment.
func (s *RepositorySuite) TestConcurrentVersionedUpdates() {
	s.SetupTest()
	// given
	store := s.createTestStore()
	product := s.createTestProduct(store.ID)
	const writers = 4

	g, ctx := errgroup.WithContext(s.ctx)
	for range writers {
		g.Go(func() error {
			for {
				current, err := s.manager.Products().FindByID(ctx, product.ID)
				if err != nil {
					return err
				}
				_, err = s.manager.Products().UpdateStock(ctx, UpdateStockParams{
					ID:      product.ID,
					Stock:   current.StockQuantity - 1,
					Version: current.Version,
				})
				if err == nil {
					return nil
				}
				if !errors.Is(err, apperrors.ErrOptimisticLock) {
					return err
				}
			}
		})
	}
	// when
	require.NoError(s.T(), g.Wait())
	// then
	final, err := s.manager.Products().FindByID(s.ctx, product.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), product.StockQuantity-writers, final.StockQuantity)
	assert.Equal(s.T(), product.Version+writers, final.Version)
}
