// Package app wires the configuration into a running dashboard service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-tagcache/internal/actions"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/config"
	"github.com/goliatone/go-tagcache/internal/data"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/httpapi"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/metrics"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/goliatone/go-tagcache/pkg/di"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *bun.DB
	store     *store.Store
	container *di.Container
	metrics   *metrics.Metrics
	bus       invalidation.Bus
	closeBus  func() error
	handler   *httpapi.Server
}

type Option func(*App)

// WithBus replaces the NATS connection used in broadcast mode.
func WithBus(bus invalidation.Bus) Option {
	return func(a *App) {
		a.bus = bus
	}
}

// New opens the database, builds the cache and the HTTP handler. In
// broadcast mode it dials NATS unless a bus was given.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	db, err := store.Open(ctx, cfg.Database.StoreConfig())
	if err != nil {
		return nil, err
	}
	a.db = db
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	a.store = store.New(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(registry)

	invOpts := []invalidation.Option{invalidation.WithConsistency(cfg.Invalidation.Mode())}
	if cfg.Invalidation.Mode() == invalidation.ConsistencyBroadcast {
		if a.bus == nil {
			bus, err := invalidation.ConnectNATS(cfg.Invalidation.NATSURL, cfg.Invalidation.Subject, logger)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			a.bus, a.closeBus = bus, bus.Close
		}
		invOpts = append(invOpts, invalidation.WithBus(a.bus))
	}

	cacheCfg := cfg.Cache.CacheConfig()
	cacheCfg.Recorder = a.metrics
	container, err := di.NewContainer(cacheCfg, di.WithLogger(logger), di.WithInvalidation(invOpts...))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.container = container

	webhooks := di.NewCachedRepository[*domain.Webhook](container, a.store.Webhooks(), store.WebhookCacheOptions()...)

	deps := httpapi.Deps{
		Reader:   data.New(a.store, container.CacheService(), container.KeySerializer(), webhooks),
		Actions:  actions.New(a.store, container.Invalidator(), webhooks, logger),
		Resolver: auth.NewResolver(a.store),
		Logger:   logger,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = a.metrics
		deps.MetricsPath = cfg.Metrics.Path
	}
	a.handler = httpapi.NewServer(deps)

	logger.Info("service ready",
		"driver", cfg.Database.Driver,
		"backend", cacheCfg.Backend,
		"consistency", container.Invalidator().Consistency(),
		"node_id", container.Invalidator().NodeID(),
	)
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Store() *store.Store {
	return a.store
}

func (a *App) Container() *di.Container {
	return a.container
}

// Run serves HTTP on the configured address and, in broadcast mode, applies
// invalidations published by other processes. It returns after ctx is done
// and the server has shut down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.HTTP.ReadTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.bus != nil {
		g.Go(func() error {
			return a.container.Invalidator().Listen(gctx)
		})
	}

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the cache, the bus connection and the database.
func (a *App) Close() error {
	var errs []error
	if a.container != nil {
		errs = append(errs, a.container.Close())
	}
	if a.closeBus != nil {
		errs = append(errs, a.closeBus())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
