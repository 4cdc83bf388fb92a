package cacheinfra

import (
	"context"
	"reflect"
	"sync/atomic"
)

// Recorder receives cache events. It has the same method set as cache.Recorder.
type Recorder interface {
	CacheHit(op string)
	CacheMiss(op string)
	TagsInvalidated(n int)
	KeysEvicted(n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)     {}
func (nopRecorder) CacheMiss(string)    {}
func (nopRecorder) TagsInvalidated(int) {}
func (nopRecorder) KeysEvicted(int)     {}

// store is the minimal surface a backend provides to the tagged service.
type store interface {
	getOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error)
	delete(key string)
	close()
}

// TaggedService implements cache.CacheService on top of a backend store and a
// tag index.
type TaggedService struct {
	store    store
	index    *tagIndex
	recorder Recorder
}

func newTaggedService(s store, cfg Config) *TaggedService {
	r := cfg.Recorder
	if r == nil {
		r = nopRecorder{}
	}
	return &TaggedService{store: s, index: newTagIndex(cfg.TTL, cfg.EvictionInterval), recorder: r}
}

// NewService builds the backend selected by cfg.Backend.
func NewService(cfg Config) (*TaggedService, error) {
	if cfg.Backend == BackendRistretto {
		return NewRistrettoService(cfg)
	}
	return NewSturdycService(cfg)
}

// GetOrFetch returns the entry stored under key or fetches, stores and
// registers it under tags. If a tag is invalidated while the fetch runs, or the
// key stopped being tracked, the stored value is dropped; the caller still
// receives it.
func (s *TaggedService) GetOrFetch(ctx context.Context, key string, tags []string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	reg := s.index.register(key, tags)

	var fetched atomic.Bool
	value, err := s.store.getOrFetch(ctx, reg.storageKey, func(ctx context.Context) (any, error) {
		fetched.Store(true)
		return callFetchFunctionWithReflection(ctx, fetchFn)
	})
	if err != nil {
		return nil, err
	}

	if !fetched.Load() {
		s.recorder.CacheHit(opName(key))
		return value, nil
	}

	s.recorder.CacheMiss(opName(key))
	if s.index.invalidated(reg) || !s.index.touch(reg.storageKey) {
		s.store.delete(reg.storageKey)
	}
	return value, nil
}

// Delete removes the entry most recently stored for key.
func (s *TaggedService) Delete(ctx context.Context, key string) error {
	if storageKey, ok := s.index.forget(key); ok {
		s.store.delete(storageKey)
	}
	return nil
}

// InvalidateTags drops every entry registered under any of tags.
func (s *TaggedService) InvalidateTags(ctx context.Context, tags ...string) error {
	tags = normalizeTags(tags)
	evicted := 0
	for _, tag := range tags {
		for _, key := range s.index.invalidate(tag) {
			s.store.delete(key)
			evicted++
		}
	}
	s.recorder.TagsInvalidated(len(tags))
	if evicted > 0 {
		s.recorder.KeysEvicted(evicted)
	}
	return nil
}

// Close releases backend resources. The service must not be used afterwards.
func (s *TaggedService) Close() error {
	s.store.close()
	return nil
}

// TagCount returns the number of tags currently holding registrations.
func (s *TaggedService) TagCount() int {
	return s.index.size()
}

// KeyCount returns the number of storage keys the tag index tracks.
func (s *TaggedService) KeyCount() int {
	return s.index.keyCount()
}

// opName is the method segment of a serialized key.
func opName(key string) string {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == ':' && key[i+1] == ':' {
			return key[:i]
		}
	}
	return key
}

// validateFetchFn checks fetchFn has the signature func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// callFetchFunctionWithReflection calls a validated fetchFn.
func callFetchFunctionWithReflection(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if rv := results[0]; rv.IsValid() && rv.CanInterface() {
		result = rv.Interface()
	}

	var err error
	if ev := results[1]; ev.IsValid() && !ev.IsNil() {
		err = ev.Interface().(error)
	}

	return result, err
}
