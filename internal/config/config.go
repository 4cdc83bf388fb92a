// Package config loads the service configuration.
//
// Values are resolved as defaults < YAML file < TAGCACHE_* environment <
// command line flags. Nested keys map to environment variables by replacing
// dots with underscores: cache.ttl is TAGCACHE_CACHE_TTL.
package config

import (
	"time"

	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/store"
)

// Config is the root configuration.
type Config struct {
	HTTP         HTTP         `mapstructure:"http"`
	Database     Database     `mapstructure:"database"`
	Cache        Cache        `mapstructure:"cache"`
	Invalidation Invalidation `mapstructure:"invalidation"`
	Logging      Logging      `mapstructure:"logging"`
	Metrics      Metrics      `mapstructure:"metrics"`
}

type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Database struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// StoreConfig converts the section for store.Open.
func (d Database) StoreConfig() store.Config {
	return store.Config{Driver: store.Driver(d.Driver), DSN: d.DSN}
}

// Cache mirrors cache.Config without the runtime hooks.
type Cache struct {
	Backend              string        `mapstructure:"backend"`
	Capacity             int           `mapstructure:"capacity"`
	NumShards            int           `mapstructure:"num_shards"`
	TTL                  time.Duration `mapstructure:"ttl"`
	EvictionPercentage   int           `mapstructure:"eviction_percentage"`
	EvictionInterval     time.Duration `mapstructure:"eviction_interval"`
	MissingRecordStorage bool          `mapstructure:"missing_record_storage"`
	MaxKeyLength         int           `mapstructure:"max_key_length"`
}

// CacheConfig converts the section into a cache.Config with no recorder.
func (c Cache) CacheConfig() cache.Config {
	return cache.Config{
		Backend:              cache.Backend(c.Backend),
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EvictionInterval:     c.EvictionInterval,
		MissingRecordStorage: c.MissingRecordStorage,
		MaxKeyLength:         c.MaxKeyLength,
	}
}

type Invalidation struct {
	Consistency string `mapstructure:"consistency"`
	NATSURL     string `mapstructure:"nats_url"`
	Subject     string `mapstructure:"subject"`
}

// Mode returns the configured consistency mode.
func (i Invalidation) Mode() invalidation.Consistency {
	return invalidation.Consistency(i.Consistency)
}

type Logging struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Service string `mapstructure:"service"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Defaults returns the configuration used when nothing overrides it: an
// in-memory SQLite database, the sturdyc backend and local invalidation.
func Defaults() Config {
	c := cache.DefaultConfig()
	return Config{
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			Driver:      string(store.DriverSQLite),
			DSN:         "file:tagcache?mode=memory&cache=shared",
			AutoMigrate: true,
		},
		Cache: Cache{
			Backend:              string(c.Backend),
			Capacity:             c.Capacity,
			NumShards:            c.NumShards,
			TTL:                  c.TTL,
			EvictionPercentage:   c.EvictionPercentage,
			EvictionInterval:     c.EvictionInterval,
			MissingRecordStorage: c.MissingRecordStorage,
			MaxKeyLength:         c.MaxKeyLength,
		},
		Invalidation: Invalidation{
			Consistency: string(invalidation.ConsistencyLocal),
			Subject:     invalidation.DefaultSubject,
		},
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "tagcached",
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
