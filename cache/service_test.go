package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockCacheService returns a fixed result and records the tags it was given.
type mockCacheService struct {
	result   any
	err      error
	lastTags []string
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, tags []string, fetchFn any) (any, error) {
	m.lastTags = tags
	return m.result, m.err
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCacheService) InvalidateTags(ctx context.Context, tags ...string) error {
	return nil
}

func TestGetOrFetch_NilInterfacePanic(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type SomeInterface interface {
		DoSomething() string
	}

	// A nil interface result must yield the zero value, not panic.
	result, err := GetOrFetch[SomeInterface](context.Background(), mock, "test-key", nil, func(ctx context.Context) (SomeInterface, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_NilPointerNoPanic(t *testing.T) {
	mock := &mockCacheService{result: (*string)(nil)}

	result, err := GetOrFetch[*string](context.Background(), mock, "test-key", nil, func(ctx context.Context) (*string, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_TypeAssertionFailure(t *testing.T) {
	mock := &mockCacheService{result: "wrong-type"}

	result, err := GetOrFetch[int](context.Background(), mock, "test-key", nil, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}

	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	fetchErr := errors.New("boom")
	mock := &mockCacheService{err: fetchErr}

	_, err := GetOrFetch[string](context.Background(), mock, "test-key", nil, func(ctx context.Context) (string, error) {
		return "", fetchErr
	})

	if !errors.Is(err, fetchErr) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	expectedValue := "test-value"
	mock := &mockCacheService{result: expectedValue}
	tags := []string{"user:u1:profile"}

	result, err := GetOrFetch[string](context.Background(), mock, "test-key", tags, func(ctx context.Context) (string, error) {
		return expectedValue, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != expectedValue {
		t.Errorf("expected '%s' but got: '%s'", expectedValue, result)
	}

	if len(mock.lastTags) != 1 || mock.lastTags[0] != tags[0] {
		t.Errorf("expected tags to be forwarded, got %v", mock.lastTags)
	}
}

func TestNewCacheService_RoundTrip(t *testing.T) {
	for _, backend := range []Backend{BackendSturdyc, BackendRistretto} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			cfg.Capacity = 100
			cfg.NumShards = 4
			cfg.TTL = time.Minute

			service, err := NewCacheService(cfg)
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			ctx := context.Background()
			var calls atomic.Int32
			fetch := func(ctx context.Context) (int, error) {
				return int(calls.Add(1)), nil
			}
			tags := []string{"organization:o1:members"}

			first, err := GetOrFetch(ctx, service, "GetMembers::o1", tags, fetch)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, _ := GetOrFetch(ctx, service, "GetMembers::o1", tags, fetch)
			if first != 1 || second != 1 {
				t.Errorf("expected cached value 1, got %d and %d", first, second)
			}

			if err := service.InvalidateTags(ctx, tags...); err != nil {
				t.Fatalf("invalidate failed: %v", err)
			}

			third, _ := GetOrFetch(ctx, service, "GetMembers::o1", tags, fetch)
			if third != 2 {
				t.Errorf("expected recomputed value 2, got %d", third)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Backend = "redis"
	err := cfg.Validate()

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "Backend" {
		t.Errorf("expected Backend ConfigError, got %v", err)
	}
}

func TestNewKeySerializer_UsesMaxKeyLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxKeyLength = 16

	key := NewKeySerializer(cfg).SerializeKey("GetContacts", "a-rather-long-filter-value")
	if len(key) > len("GetContacts::xxh:")+16 {
		t.Errorf("expected hashed key, got %q", key)
	}
}
