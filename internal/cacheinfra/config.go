package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Backend names a cache storage engine.
type Backend string

const (
	BackendSturdyc   Backend = "sturdyc"
	BackendRistretto Backend = "ristretto"
)

// Config holds the configuration for the cache backends.
type Config struct {
	// Backend selects the storage engine. Empty means sturdyc.
	Backend Backend

	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the time-to-live for cached entries. Expiry is the only way an
	// entry becomes stale without an invalidation. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures sturdyc early refreshes. Nil disables them, which
	// is the default: a background refresh would bypass tag registration.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage makes sturdyc remember keys whose fetch reported
	// sturdyc.ErrNotFound. Off by default so not-found results are never cached.
	MissingRecordStorage bool

	// EvictionInterval sets how often sturdyc checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// MaxKeyLength caps the length of serialized keys before they are hashed.
	// Zero uses the serializer default.
	MaxKeyLength int

	// Recorder receives hit, miss and invalidation events. Nil discards them.
	Recorder Recorder
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config with defaults suited to tagged dashboard reads.
func DefaultConfig() Config {
	return Config{
		Backend:              BackendSturdyc,
		Capacity:             10000,
		NumShards:            256,
		TTL:                  15 * time.Minute,
		EvictionPercentage:   10,
		EarlyRefresh:         nil,
		MissingRecordStorage: false,
		EvictionInterval:     0,
		MaxKeyLength:         250,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendSturdyc, BackendRistretto:
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of sturdyc, ristretto"}
	}

	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.MaxKeyLength < 0 {
		return &ConfigError{Field: "MaxKeyLength", Message: "must be non-negative"}
	}

	if c.EarlyRefresh != nil {
		if c.EarlyRefresh.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.MaxAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.SyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
