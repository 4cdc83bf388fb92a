package di

import (
	"context"
	"io"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/repositorycache"
)

// Container provides dependency injection for cache related components.
// It manages singleton instances of the cache service, the key serializer
// and the invalidator, and provides a factory for cached repositories.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	invalidator   *invalidation.Invalidator
	logger        *slog.Logger
	config        cache.Config
}

// Option customizes a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger       *slog.Logger
	invalidation []invalidation.Option
}

// WithLogger sets the logger used by the invalidator and by cached
// repositories to report invalidation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInvalidation configures the invalidator, e.g. its bus and consistency mode.
func WithInvalidation(opts ...invalidation.Option) Option {
	return func(o *containerOptions) {
		o.invalidation = append(o.invalidation, opts...)
	}
}

// NewContainer creates a new DI container with the provided cache configuration.
// The backend is selected by config.Backend.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	invOpts := append([]invalidation.Option{invalidation.WithLogger(o.logger)}, o.invalidation...)

	return &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewKeySerializer(config),
		invalidator:   invalidation.New(cacheService, invOpts...),
		logger:        o.logger,
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Invalidator returns the invalidator every write path must go through.
func (c *Container) Invalidator() *invalidation.Invalidator {
	return c.invalidator
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the cache backend.
func (c *Container) Close() error {
	if closer, ok := c.cacheService.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NewCachedRepository creates a new cached repository that wraps the provided base repository.
// Invalidations go through the container's invalidator and failures are logged.
// opts are applied after those defaults.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*Webhook](container, baseWebhookRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option[T]) *repositorycache.CachedRepository[T] {
	logger := container.logger
	defaults := []repositorycache.Option[T]{
		repositorycache.WithInvalidator[T](container.invalidator),
		repositorycache.WithErrorHandler[T](func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "cached repository invalidation failed", "error", err)
		}),
	}
	return repositorycache.New(base, container.cacheService, container.keySerializer, append(defaults, opts...)...)
}
