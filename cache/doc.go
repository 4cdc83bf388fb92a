// Package cache provides the tagged cache contracts and key serialization used
// by cached reads and repository decorators.
//
// # Overview
//
// This package exports the following interfaces and their default implementations:
//
//   - CacheService: read-through caching where every entry is registered under tags
//   - TagInvalidator: drops every entry registered under a tag
//   - KeySerializer: builds stable cache keys from method names and arguments
//   - Recorder: receives hit, miss and invalidation events
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewKeySerializer(cache.DefaultConfig())
//
//	tags := cachetag.Strings(cachetag.User(cachetag.Profile, userID))
//	profile, err := cache.GetOrFetch(ctx, svc, keys.SerializeKey("GetProfile", userID), tags,
//		func(ctx context.Context) (Profile, error) {
//			return loadProfile(ctx, userID)
//		})
//
//	// after a write commits
//	err = svc.InvalidateTags(ctx, tags...)
//
// A key is registered under its tags before the fetch runs. If one of those
// tags is invalidated while the fetch is in flight, the fetched value is
// returned to the caller but never served to later readers.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - KeyPart values: their CacheKeyPart string
//   - Function pointers: %p formatting, stable within a process
//   - Text marshalers (uuid.UUID, time.Time): their text form
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Anything else: JSON fallback
//
// NewHashingKeySerializer caps key length by replacing long argument lists
// with an xxhash digest, keeping the method name readable.
//
// # Function Criteria
//
// Function pointers are stable only within a single process lifetime, and a
// closure created at one call site shares its pointer across captured values.
// Callers that pass closures should also pass the values those closures
// capture, or implement KeyPart.
package cache
