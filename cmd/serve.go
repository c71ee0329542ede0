package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ratebook/internal/adapters/http/api"
	"github.com/okian/ratebook/internal/adapters/http/site"
	"github.com/okian/ratebook/internal/adapters/http/swagger"
	service "github.com/okian/ratebook/internal/app"
	"github.com/okian/ratebook/pkg/logger"
	"github.com/okian/ratebook/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the ratings and serve the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// newService builds the rating service over the configured backend.
func (a *app) newService(ctx context.Context) (*service.Service, func() error, error) {
	c, err := a.codec()
	if err != nil {
		return nil, nil, err
	}
	backend, err := a.backend(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(
		service.WithLogger(a.log),
		service.WithDomain(a.domain),
		service.WithCodec(c),
		service.WithBackend(backend),
		service.WithNormalizeNames(a.cfg.NormalizeNames),
		service.WithSaveOnStop(a.cfg.SaveOnShutdown),
	)
	return svc, backend.Close, nil
}

// newHandler registers every route for svc.
func (a *app) newHandler(ctx context.Context, svc *service.Service) (http.Handler, error) {
	mux := http.NewServeMux()
	if err := swagger.Register(ctx, mux, a.domain); err != nil {
		return nil, err
	}
	if err := site.Register(ctx, mux, a.domain); err != nil {
		return nil, err
	}
	api.NewServer(svc).Register(ctx, mux)
	return api.RequestIDMiddleware(mux, a.log.Named("http")), nil
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down and
// saves the ratings. A load or save failure is returned.
func (a *app) serve(ctx context.Context) error {
	metrics.Configure(
		metrics.WithEnabled(a.cfg.MetricsEnabled),
		metrics.WithRefreshInterval(a.cfg.MetricsRefresh()),
		metrics.WithConstLabels(map[string]string{"domain": a.domain.Name}),
	)
	if err := metrics.RegisterRuntimeCollectors(); err != nil {
		a.log.Warn(ctx, "runtime metrics unavailable", logger.Error(err))
	}

	svc, closeBackend, err := a.newService(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to open backend", logger.Error(err))
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			a.log.Warn(context.Background(), "failed to close backend", logger.Error(err))
		}
	}()

	if err := svc.Start(ctx); err != nil {
		a.log.Error(ctx, "failed to start service", logger.Error(err))
		return err
	}

	handler, err := a.newHandler(ctx, svc)
	if err != nil {
		_ = svc.Stop(context.Background())
		return err
	}
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info(gctx, "starting HTTP server", logger.String("addr", a.cfg.Addr), logger.String("domain", a.domain.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc, metrics.RefreshInterval())
		return nil
	})
	g.Go(func() error {
		// Wait for shutdown signal or a server failure.
		<-gctx.Done()
		a.log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		return nil
	})
	serveErr := g.Wait()

	// The save runs after the server stopped accepting mutations.
	saveCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	stopErr := svc.Stop(saveCtx)

	a.log.Info(saveCtx, "server stopped")
	return errors.Join(serveErr, stopErr)
}

// startServiceMetricsUpdater refreshes the store size gauges every interval.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateServiceMetrics publishes the service's current store size.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.Stats(ctx)
	ratings, _ := stats["ratings"].(int)
	owners, _ := stats["owners"].(int)
	items, _ := stats["items"].(int)
	metrics.UpdateStoreSize(ratings, owners, items)
}
