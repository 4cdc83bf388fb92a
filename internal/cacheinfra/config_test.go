package cacheinfra

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendSturdyc {
		t.Errorf("expected Backend to be sturdyc, got %q", cfg.Backend)
	}

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 15*time.Minute {
		t.Errorf("expected TTL to be 15 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be off so not-found results are never cached")
	}

	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled")
	}

	if cfg.MaxKeyLength != 250 {
		t.Errorf("expected MaxKeyLength to be 250, got %d", cfg.MaxKeyLength)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func(mut func(*Config)) Config {
		cfg := Config{
			Capacity:           1000,
			NumShards:          256,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		}
		mut(&cfg)
		return cfg
	}

	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{
			name: "valid default config",
			cfg:  DefaultConfig(),
		},
		{
			name: "valid ristretto backend",
			cfg:  base(func(c *Config) { c.Backend = BackendRistretto }),
		},
		{
			name:      "unknown backend",
			cfg:       base(func(c *Config) { c.Backend = "memcache" }),
			wantField: "Backend",
		},
		{
			name:      "invalid capacity - zero",
			cfg:       base(func(c *Config) { c.Capacity = 0 }),
			wantField: "Capacity",
		},
		{
			name:      "invalid num shards - zero",
			cfg:       base(func(c *Config) { c.NumShards = 0 }),
			wantField: "NumShards",
		},
		{
			name:      "invalid TTL - zero",
			cfg:       base(func(c *Config) { c.TTL = 0 }),
			wantField: "TTL",
		},
		{
			name:      "invalid eviction percentage - too low",
			cfg:       base(func(c *Config) { c.EvictionPercentage = 0 }),
			wantField: "EvictionPercentage",
		},
		{
			name:      "invalid eviction percentage - too high",
			cfg:       base(func(c *Config) { c.EvictionPercentage = 101 }),
			wantField: "EvictionPercentage",
		},
		{
			name:      "negative max key length",
			cfg:       base(func(c *Config) { c.MaxKeyLength = -1 }),
			wantField: "MaxKeyLength",
		},
		{
			name: "invalid early refresh min async time",
			cfg: base(func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: -1 * time.Second,
					MaxAsyncRefreshTime: 20 * time.Second,
					SyncRefreshTime:     30 * time.Second,
					RetryBaseDelay:      100 * time.Millisecond,
				}
			}),
			wantField: "EarlyRefresh.MinAsyncRefreshTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError but got: %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected error field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	if got := len(DefaultConfig().ToSturdycOptions()); got != 0 {
		t.Errorf("expected no sturdyc options for default config, got %d", got)
	}

	cfg := DefaultConfig()
	cfg.MissingRecordStorage = true
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 sturdyc option for missing record config, got %d", got)
	}

	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      10 * time.Millisecond,
	}
	cfg.EvictionInterval = time.Minute
	if got := len(cfg.ToSturdycOptions()); got != 3 {
		t.Errorf("expected 3 sturdyc options, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}
