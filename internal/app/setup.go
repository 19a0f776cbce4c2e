// Package app wires the marketplace server: configuration, database,
// messaging, services and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"

	"github.com/vendhub/marketplace/internal/authz"
	"github.com/vendhub/marketplace/internal/config"
	"github.com/vendhub/marketplace/internal/repository"
	"github.com/vendhub/marketplace/internal/service"
	"github.com/vendhub/marketplace/internal/transport/rest"
	"github.com/vendhub/marketplace/pkg/auth"
	"github.com/vendhub/marketplace/pkg/bootstrap"
	"github.com/vendhub/marketplace/pkg/messaging"
	pkgnats "github.com/vendhub/marketplace/pkg/nats"
	"github.com/vendhub/marketplace/pkg/server"
	"github.com/vendhub/marketplace/pkg/web"
)

// Dependencies holds everything main needs to run and to tear down.
type Dependencies struct {
	DbPool   *pgxpool.Pool
	NatsConn *natsgo.Conn
	Verifier auth.Verifier

	Stores   service.StoreService
	Products service.ProductService
	Orders   service.OrderService
}

// Close releases the held connections in reverse construction order.
func (d *Dependencies) Close() {
	if d.NatsConn != nil {
		d.NatsConn.Close()
	}
	if d.DbPool != nil {
		d.DbPool.Close()
	}
}

// SetupDependencies builds the dependency graph bottom-up: pool, NATS
// publisher behind a circuit breaker, token verifier, then the services.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	nc, js, err := pkgnats.Connect(cfg.NATS.URL, cfg.NATS.Timeout)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	publisher := messaging.NewBreakerPublisher(pkgnats.NewNatsPublisher(js), cfg.Breaker)

	verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
	if err != nil {
		nc.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to build token verifier: %w", err)
	}

	db := repository.NewPgManager(dbPool)
	authorizer := authz.NewContextAuthorizer(db.Stores())

	products := service.NewProductManager(db, authorizer, publisher, cfg.Retry, logger)
	orders := service.NewOrderManager(db, authorizer, publisher, cfg.Retry, logger)
	stores := service.NewStoreManager(db, authorizer, products, orders, publisher, cfg.Retry, logger)

	return &Dependencies{
		DbPool:   dbPool,
		NatsConn: nc,
		Verifier: verifier,
		Stores:   stores,
		Products: products,
		Orders:   orders,
	}, nil
}

// SetupHTTPHandler mounts the REST API on a chi router with the shared
// middleware chain.
func SetupHTTPHandler(deps *Dependencies, logger *slog.Logger) http.Handler {
	mux := server.NewChiRouter(logger)
	rest.RegisterRoutes(mux, rest.Handlers{
		Stores:   rest.NewStoreHandler(deps.Stores, logger),
		Products: rest.NewProductHandler(deps.Products, logger),
		Orders:   rest.NewOrderHandler(deps.Orders, logger),
	}, web.AuthMiddleware(deps.Verifier))
	return mux
}

// SetupHTTPServer builds the http.Server from the validated config.
func SetupHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return server.NewHTTPServer(server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}, handler)
}
