package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TAGCACHE"

// DefaultConfigFile is the path checked when no file is given.
const DefaultConfigFile = "tagcache.yaml"

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":        "http.addr",
	"db-driver":   "database.driver",
	"dsn":         "database.dsn",
	"backend":     "cache.backend",
	"consistency": "invalidation.consistency",
	"nats-url":    "invalidation.nats_url",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
}

// Load resolves the configuration from path, the environment and flags.
// A missing file is not an error. flags may be nil; only flags named in
// flagKeys are bound, and only when set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigFile
	}
	if err := readFile(v, path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can resolve it
// during Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)
	v.SetDefault("cache.missing_record_storage", d.Cache.MissingRecordStorage)
	v.SetDefault("cache.max_key_length", d.Cache.MaxKeyLength)

	v.SetDefault("invalidation.consistency", d.Invalidation.Consistency)
	v.SetDefault("invalidation.nats_url", d.Invalidation.NATSURL)
	v.SetDefault("invalidation.subject", d.Invalidation.Subject)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.service", d.Logging.Service)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

var absolutePath = regexp.MustCompile(`^/`)

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HTTP),
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.Invalidation),
		validation.Field(&c.Logging),
		validation.Field(&c.Metrics),
	)
}

func (h HTTP) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Addr, validation.Required),
		validation.Field(&h.ShutdownTimeout, validation.Required),
	)
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required,
			validation.In(string(store.DriverSQLite), string(store.DriverPostgres))),
		validation.Field(&d.DSN, validation.Required),
	)
}

// Validate applies the cache package's own checks.
func (c Cache) Validate() error {
	return c.CacheConfig().Validate()
}

func (i Invalidation) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Consistency, validation.Required,
			validation.In(string(invalidation.ConsistencyLocal), string(invalidation.ConsistencyBroadcast))),
		validation.Field(&i.NATSURL,
			validation.When(i.Mode() == invalidation.ConsistencyBroadcast, validation.Required)),
		validation.Field(&i.Subject, validation.Required),
	)
}

func (l Logging) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("json", "text")),
	)
}

func (m Metrics) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Path, validation.When(m.Enabled, validation.Required, validation.Match(absolutePath))),
	)
}
