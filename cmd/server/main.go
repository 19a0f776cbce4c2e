package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vendhub/marketplace/internal/app"
	"github.com/vendhub/marketplace/internal/config"
	"github.com/vendhub/marketplace/pkg/bootstrap"
	"github.com/vendhub/marketplace/pkg/config/configloader"
)

const serviceName = "market"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := configloader.Load[*config.Config](serviceName)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Log.Level)
	logger.Info("Configuration loaded", "config", cfg.String())

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server terminated with error", "error", err)
		stop()
		log.Fatal(err)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := app.SetupDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	httpServer := app.SetupHTTPServer(cfg, app.SetupHTTPHandler(deps, logger))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var pprofServer *http.Server
	if cfg.PProf.Enabled {
		pprofServer = newPprofServer(cfg.PProf.Addr)
		g.Go(func() error {
			logger.Info("pprof server listening", "addr", pprofServer.Addr)
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()

		var shutdownErr error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
		if pprofServer != nil {
			if err := pprofServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = errors.Join(shutdownErr, err)
			}
		}
		return shutdownErr
	})

	return g.Wait()
}

func newPprofServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &http.Server{Addr: addr, Handler: mux}
}
