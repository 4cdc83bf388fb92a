package cacheinfra

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingRecorder struct {
	mu          sync.Mutex
	hits        map[string]int
	misses      map[string]int
	invalidated int
	evicted     int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *recordingRecorder) CacheHit(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[op]++
}

func (r *recordingRecorder) CacheMiss(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses[op]++
}

func (r *recordingRecorder) TagsInvalidated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated += n
}

func (r *recordingRecorder) KeysEvicted(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted += n
}

func testConfig(backend Backend) Config {
	return Config{
		Backend:            backend,
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

var backends = []Backend{BackendSturdyc, BackendRistretto}

func newTestService(t *testing.T, backend Backend, rec Recorder) *TaggedService {
	t.Helper()

	cfg := testConfig(backend)
	cfg.Recorder = rec
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("failed to create %s service: %v", backend, err)
	}
	t.Cleanup(func() { service.Close() })
	return service
}

// countingFetch returns a fetch function that counts its calls.
func countingFetch(calls *atomic.Int32, value any) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError string
	}{
		{name: "default sturdyc", cfg: DefaultConfig()},
		{name: "ristretto", cfg: testConfig(BackendRistretto)},
		{
			name: "zero capacity",
			cfg: Config{
				Capacity:           0,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: "config error in field Capacity: must be greater than 0",
		},
		{
			name: "zero TTL ristretto",
			cfg: Config{
				Backend:            BackendRistretto,
				Capacity:           1000,
				NumShards:          256,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantError: "config error in field TTL: must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.cfg)
			if tt.wantError != "" {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if err.Error() != tt.wantError {
					t.Errorf("expected error message %q, got %q", tt.wantError, err.Error())
				}
				if service != nil {
					t.Error("expected service to be nil when error occurs")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if service == nil {
				t.Fatal("expected service to be non-nil")
			}
			service.Close()
		})
	}
}

func TestTaggedService_GetOrFetch(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			rec := newRecordingRecorder()
			service := newTestService(t, backend, rec)

			t.Run("miss then hit", func(t *testing.T) {
				var calls atomic.Int32
				fetch := countingFetch(&calls, "value")

				for i := 0; i < 3; i++ {
					result, err := service.GetOrFetch(ctx, "GetProfile::u1", []string{"user:u1:profile"}, fetch)
					if err != nil {
						t.Fatalf("expected no error but got: %v", err)
					}
					if result != "value" {
						t.Errorf("expected result %v, got %v", "value", result)
					}
				}

				if calls.Load() != 1 {
					t.Errorf("expected fetch to run once, ran %d times", calls.Load())
				}

				rec.mu.Lock()
				defer rec.mu.Unlock()
				if rec.misses["GetProfile"] != 1 || rec.hits["GetProfile"] != 2 {
					t.Errorf("expected 1 miss and 2 hits, got %d and %d", rec.misses["GetProfile"], rec.hits["GetProfile"])
				}
			})

			t.Run("fetch errors are not cached", func(t *testing.T) {
				notFound := errors.New("not found")
				var calls atomic.Int32
				fetch := func(ctx context.Context) (any, error) {
					calls.Add(1)
					return nil, notFound
				}

				for i := 0; i < 2; i++ {
					result, err := service.GetOrFetch(ctx, "GetContact::c404", []string{"organization:o1:contact:c404"}, fetch)
					if !errors.Is(err, notFound) {
						t.Fatalf("expected not found error, got %v", err)
					}
					if result != nil {
						t.Errorf("expected nil result but got: %v", result)
					}
				}

				if calls.Load() != 2 {
					t.Errorf("expected every read to refetch after an error, got %d fetches", calls.Load())
				}
			})

			t.Run("typed fetch function", func(t *testing.T) {
				fetch := func(ctx context.Context) ([]string, error) {
					return []string{"a", "b"}, nil
				}

				result, err := service.GetOrFetch(ctx, "typed", []string{"t"}, fetch)
				if err != nil {
					t.Fatalf("expected no error but got: %v", err)
				}
				got, ok := result.([]string)
				if !ok || len(got) != 2 {
					t.Errorf("expected []string result, got %#v", result)
				}
			})

			t.Run("untagged reads are cached", func(t *testing.T) {
				var calls atomic.Int32
				fetch := countingFetch(&calls, 1)

				service.GetOrFetch(ctx, "untagged", nil, fetch)
				service.GetOrFetch(ctx, "untagged", nil, fetch)

				if calls.Load() != 1 {
					t.Errorf("expected one fetch, got %d", calls.Load())
				}
			})
		})
	}
}

func TestTaggedService_InvalidFetchFn(t *testing.T) {
	service := newTestService(t, BackendSturdyc, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		fetchFn any
		message string
	}{
		{name: "nil", fetchFn: nil, message: "cannot be nil"},
		{name: "not a function", fetchFn: "not-a-function", message: "must be a function"},
		{name: "no parameters", fetchFn: func() (any, error) { return nil, nil }, message: "must have signature func(context.Context) (T, error)"},
		{name: "too many parameters", fetchFn: func(context.Context, string) (any, error) { return nil, nil }, message: "must have signature func(context.Context) (T, error)"},
		{name: "wrong first parameter", fetchFn: func(string) (any, error) { return nil, nil }, message: "first parameter must be context.Context"},
		{name: "second result not error", fetchFn: func(context.Context) (any, string) { return nil, "" }, message: "second return value must be error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.GetOrFetch(ctx, "k", []string{"t"}, tt.fetchFn)
			if result != nil {
				t.Errorf("expected nil result but got: %v", result)
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError but got: %T", err)
			}
			if cfgErr.Field != "fetchFn" || cfgErr.Message != tt.message {
				t.Errorf("unexpected error %q", cfgErr.Error())
			}
		})
	}
}

func TestTaggedService_InvalidateTags(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			rec := newRecordingRecorder()
			service := newTestService(t, backend, rec)

			profileTags := []string{"user:u1:profile", "user:u1:personal_details", "user:u1:preferences"}

			var profileCalls, orgCalls atomic.Int32
			service.GetOrFetch(ctx, "GetProfile::u1", profileTags, countingFetch(&profileCalls, "profile-v1"))
			service.GetOrFetch(ctx, "GetOrganizations::u1", []string{"user:u1:organizations"}, countingFetch(&orgCalls, "orgs"))

			// A derived read goes stale when any one of its tags is invalidated.
			if err := service.InvalidateTags(ctx, "user:u1:preferences"); err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}

			result, _ := service.GetOrFetch(ctx, "GetProfile::u1", profileTags, countingFetch(&profileCalls, "profile-v2"))
			if result != "profile-v2" {
				t.Errorf("expected recomputed profile, got %v", result)
			}
			if profileCalls.Load() != 2 {
				t.Errorf("expected profile to be fetched twice, got %d", profileCalls.Load())
			}

			service.GetOrFetch(ctx, "GetOrganizations::u1", []string{"user:u1:organizations"}, countingFetch(&orgCalls, "orgs"))
			if orgCalls.Load() != 1 {
				t.Errorf("expected unrelated read to stay cached, got %d fetches", orgCalls.Load())
			}

			rec.mu.Lock()
			if rec.invalidated != 1 || rec.evicted != 1 {
				t.Errorf("expected 1 tag invalidated and 1 key evicted, got %d and %d", rec.invalidated, rec.evicted)
			}
			rec.mu.Unlock()
		})
	}
}

func TestTaggedService_InvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, BackendSturdyc, nil)

	var calls atomic.Int32
	tags := []string{"organization:o1:contacts"}
	service.GetOrFetch(ctx, "GetContacts::o1", tags, countingFetch(&calls, "v"))

	for i := 0; i < 2; i++ {
		if err := service.InvalidateTags(ctx, "organization:o1:contacts", "organization:o1:contacts"); err != nil {
			t.Fatalf("invalidation %d failed: %v", i, err)
		}
	}
	if err := service.InvalidateTags(ctx, "never-registered"); err != nil {
		t.Fatalf("expected unknown tag to be a no-op, got %v", err)
	}

	service.GetOrFetch(ctx, "GetContacts::o1", tags, countingFetch(&calls, "v"))
	service.GetOrFetch(ctx, "GetContacts::o1", tags, countingFetch(&calls, "v"))
	if calls.Load() != 2 {
		t.Errorf("expected exactly one refetch after repeated invalidation, got %d fetches", calls.Load())
	}
	if service.TagCount() != 1 {
		t.Errorf("expected one live tag, got %d", service.TagCount())
	}
}

func TestTaggedService_InvalidationDuringFetch(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, backend, nil)
			tags := []string{"organization:o1:favorites:u1"}

			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan any, 1)

			go func() {
				v, _ := service.GetOrFetch(ctx, "GetFavorites::o1::u1", tags, func(ctx context.Context) (any, error) {
					close(started)
					<-release
					return "stale", nil
				})
				done <- v
			}()

			<-started
			if err := service.InvalidateTags(ctx, tags...); err != nil {
				t.Fatalf("invalidate failed: %v", err)
			}

			// A read issued after invalidation returns must not join the old fetch.
			fresh, err := service.GetOrFetch(ctx, "GetFavorites::o1::u1", tags, func(ctx context.Context) (any, error) {
				return "fresh", nil
			})
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if fresh != "fresh" {
				t.Errorf("expected fresh value after invalidation, got %v", fresh)
			}

			close(release)
			select {
			case v := <-done:
				if v != "stale" {
					t.Errorf("expected in-flight caller to receive its own value, got %v", v)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("in-flight fetch did not complete")
			}

			again, _ := service.GetOrFetch(ctx, "GetFavorites::o1::u1", tags, func(ctx context.Context) (any, error) {
				return "unexpected", nil
			})
			if again != "fresh" {
				t.Errorf("expected the post-invalidation value to stay cached, got %v", again)
			}
		})
	}
}

func TestTaggedService_ConcurrentReadsShareFetch(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, backend, nil)

			var calls atomic.Int32
			release := make(chan struct{})
			fetch := func(ctx context.Context) (any, error) {
				calls.Add(1)
				<-release
				return "shared", nil
			}

			const readers = 8
			var wg sync.WaitGroup
			wg.Add(readers)
			for i := 0; i < readers; i++ {
				go func() {
					defer wg.Done()
					service.GetOrFetch(ctx, "GetMembers::o1", []string{"organization:o1:members"}, fetch)
				}()
			}

			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()

			if calls.Load() < 1 || calls.Load() > readers {
				t.Fatalf("unexpected fetch count %d", calls.Load())
			}

			// Reads after the first completed fetch are served from cache.
			before := calls.Load()
			service.GetOrFetch(ctx, "GetMembers::o1", []string{"organization:o1:members"}, fetch)
			if calls.Load() != before {
				t.Errorf("expected cached read after concurrent fetch, got %d fetches", calls.Load())
			}
		})
	}
}

func TestTaggedService_Delete(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, backend, nil)

			var calls atomic.Int32
			tags := []string{"organization:o1:webhooks"}
			service.GetOrFetch(ctx, "GetWebhooks::o1", tags, countingFetch(&calls, "v1"))

			if err := service.Delete(ctx, "GetWebhooks::o1"); err != nil {
				t.Errorf("expected no error from Delete but got: %v", err)
			}

			service.GetOrFetch(ctx, "GetWebhooks::o1", tags, countingFetch(&calls, "v2"))
			if calls.Load() != 2 {
				t.Error("expected fetch function to be called after delete, indicating cache miss")
			}

			if err := service.Delete(ctx, ""); err != nil {
				t.Errorf("expected no error from Delete with empty key but got: %v", err)
			}
		})
	}
}

func TestTaggedService_TypedNilFetchError(t *testing.T) {
	type contact struct{ Name string }

	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, backend, nil)
			errMissing := errors.New("contact not found")

			result, err := service.GetOrFetch(ctx, "GetContact::o1::c404", []string{"organization:o1:contact:c404"},
				func(ctx context.Context) (*contact, error) {
					return nil, errMissing
				})
			if !errors.Is(err, errMissing) {
				t.Fatalf("expected the fetch error, got %v", err)
			}
			if result != nil {
				t.Errorf("expected nil result but got: %v", result)
			}

			found, err := service.GetOrFetch(ctx, "GetContact::o1::c404", []string{"organization:o1:contact:c404"},
				func(ctx context.Context) (*contact, error) {
					return &contact{Name: "Ada"}, nil
				})
			if err != nil {
				t.Fatalf("expected no error after a failed fetch, got %v", err)
			}
			if c, ok := found.(*contact); !ok || c.Name != "Ada" {
				t.Errorf("expected the refetched contact, got %#v", found)
			}
		})
	}
}

func TestTaggedService_ExpiredKeysLeaveIndex(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, backend, nil)
			clock := &fakeClock{now: time.Unix(1700000000, 0)}
			service.index.now = clock.Now

			var calls atomic.Int32
			for i := 0; i < 500; i++ {
				key := "GetContactTasks::o1::c" + strconv.Itoa(i)
				if _, err := service.GetOrFetch(ctx, key, []string{"organization:o1:contacts"}, countingFetch(&calls, i)); err != nil {
					t.Fatalf("read %d failed: %v", i, err)
				}
			}
			if got := service.KeyCount(); got != 500 {
				t.Fatalf("expected 500 tracked keys, got %d", got)
			}

			clock.Advance(testConfig(backend).TTL + indexGrace)
			if _, err := service.GetOrFetch(ctx, "GetProfile::u1", []string{"user:u1:profile"}, countingFetch(&calls, "p")); err != nil {
				t.Fatalf("read after expiry failed: %v", err)
			}

			if got := service.KeyCount(); got != 1 {
				t.Errorf("expected expired keys to leave the index, got %d", got)
			}
			if got := service.TagCount(); got != 1 {
				t.Errorf("expected only the profile tag to stay live, got %d", got)
			}
		})
	}
}

func TestOpName(t *testing.T) {
	tests := map[string]string{
		"GetProfile::u1": "GetProfile",
		"GetProfile":     "GetProfile",
		"Get:odd::x":     "Get:odd",
		"":               "",
	}
	for in, want := range tests {
		if got := opName(in); got != want {
			t.Errorf("opName(%q) = %q, want %q", in, got, want)
		}
	}
}
