package cache

import (
	"time"

	"github.com/goliatone/go-tagcache/internal/cacheinfra"
)

// Backend names a cache storage engine.
type Backend string

const (
	BackendSturdyc   Backend = Backend(cacheinfra.BackendSturdyc)
	BackendRistretto Backend = Backend(cacheinfra.BackendRistretto)
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend              Backend
	Capacity             int
	NumShards            int
	TTL                  time.Duration
	EvictionPercentage   int
	EarlyRefresh         *EarlyRefreshConfig
	MissingRecordStorage bool
	EvictionInterval     time.Duration
	MaxKeyLength         int
	Recorder             Recorder
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// ConfigError is returned by Validate and by GetOrFetch for malformed fetch functions.
type ConfigError = cacheinfra.ConfigError

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the cache service selected by cfg.Backend.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// NewKeySerializer returns the default serializer capped at cfg.MaxKeyLength.
func NewKeySerializer(cfg Config) KeySerializer {
	return NewHashingKeySerializer(NewDefaultKeySerializer(), cfg.MaxKeyLength)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	var rec cacheinfra.Recorder
	if c.Recorder != nil {
		rec = c.Recorder
	}

	return cacheinfra.Config{
		Backend:              cacheinfra.Backend(c.Backend),
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
		MaxKeyLength:         c.MaxKeyLength,
		Recorder:             rec,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Backend:              Backend(cfg.Backend),
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
		MaxKeyLength:         cfg.MaxKeyLength,
	}
}
