package cacheinfra

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// indexGrace keeps a key tracked a little past the backend TTL, so the index
// never forgets a key the backend still serves.
const indexGrace = time.Second

// tagIndex maps tags to the storage keys registered under them.
//
// Each live tag entry carries a generation drawn from a process wide sequence.
// Invalidating a tag removes its entry and marks it dead, so the next
// registration creates a fresh entry with a strictly greater generation. The
// storage key of a read is its logical key suffixed with the highest generation
// among its tags: once any tag is invalidated, later reads use a new storage
// key and can neither hit nor join an in-flight fetch started before.
//
// Every storage key has a record that expires ttl after its last fetch or
// registration. Expired records are swept out of their tags, and a tag left
// without keys is retired.
type tagIndex struct {
	seq     atomic.Uint64
	tags    *xsync.MapOf[string, *tagEntry]
	latest  *xsync.MapOf[string, string]
	records *xsync.MapOf[string, *keyRecord]

	ttl        time.Duration
	sweepEvery time.Duration
	nextSweep  atomic.Int64
	now        func() time.Time
}

type tagEntry struct {
	tag  string
	mu   sync.Mutex
	gen  uint64
	dead bool
	keys map[string]struct{}
}

// keyRecord is guarded by the records map: expires is only read and written
// inside Compute.
type keyRecord struct {
	key     string
	entries []*tagEntry
	expires int64
}

// registration pins the entries a read was registered under.
type registration struct {
	storageKey string
	entries    []*tagEntry
}

func newTagIndex(ttl, sweepEvery time.Duration) *tagIndex {
	if ttl <= 0 {
		ttl = DefaultConfig().TTL
	}
	if sweepEvery <= 0 {
		sweepEvery = ttl
	}
	return &tagIndex{
		tags:       xsync.NewMapOf[string, *tagEntry](),
		latest:     xsync.NewMapOf[string, string](),
		records:    xsync.NewMapOf[string, *keyRecord](),
		ttl:        ttl,
		sweepEvery: sweepEvery,
		now:        time.Now,
	}
}

// register records key under tags and returns the storage key to read and
// write. Tags are locked in sorted order.
func (ix *tagIndex) register(key string, tags []string) registration {
	now := ix.now()
	ix.maybeSweep(now)

	tags = normalizeTags(tags)
	entries := make([]*tagEntry, 0, len(tags))
	var version uint64
	for _, tag := range tags {
		e := ix.acquire(tag)
		entries = append(entries, e)
		if e.gen > version {
			version = e.gen
		}
	}

	storageKey := key
	if len(entries) > 0 {
		storageKey = key + "@" + strconv.FormatUint(version, 36)
	}
	for _, e := range entries {
		e.keys[storageKey] = struct{}{}
	}
	// the record and latest key are written before the entries unlock so a
	// concurrent release sees them
	ix.track(key, storageKey, entries, now)
	ix.latest.Store(key, storageKey)
	for _, e := range entries {
		e.mu.Unlock()
	}

	if len(entries) == 0 {
		return registration{storageKey: storageKey}
	}
	return registration{storageKey: storageKey, entries: entries}
}

func (ix *tagIndex) track(key, storageKey string, entries []*tagEntry, now time.Time) {
	expires := now.Add(ix.ttl + indexGrace).UnixNano()
	ix.records.Compute(storageKey, func(r *keyRecord, loaded bool) (*keyRecord, bool) {
		if !loaded {
			r = &keyRecord{key: key, entries: entries}
		}
		r.expires = expires
		return r, false
	})
}

// touch extends the record of storageKey after a fetch stored it. It reports
// false when the record is gone, in which case nothing tracks the stored value.
func (ix *tagIndex) touch(storageKey string) bool {
	expires := ix.now().Add(ix.ttl + indexGrace).UnixNano()
	_, ok := ix.records.Compute(storageKey, func(r *keyRecord, loaded bool) (*keyRecord, bool) {
		if !loaded {
			return r, true
		}
		r.expires = expires
		return r, false
	})
	return ok
}

// acquire returns the live entry for tag, locked.
func (ix *tagIndex) acquire(tag string) *tagEntry {
	for {
		e, _ := ix.tags.LoadOrCompute(tag, func() *tagEntry {
			return &tagEntry{tag: tag, gen: ix.seq.Add(1), keys: make(map[string]struct{})}
		})
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
		ix.evict(e)
	}
}

// evict removes e from the tag map if it is still the entry stored for its tag.
func (ix *tagIndex) evict(e *tagEntry) {
	ix.tags.Compute(e.tag, func(cur *tagEntry, loaded bool) (*tagEntry, bool) {
		return cur, !loaded || cur == e
	})
}

// invalidated reports whether any tag of r was invalidated after registration.
func (ix *tagIndex) invalidated(r registration) bool {
	for _, e := range r.entries {
		e.mu.Lock()
		dead := e.dead
		e.mu.Unlock()
		if dead {
			return true
		}
	}
	return false
}

// invalidate retires the tag and returns the storage keys registered under it.
func (ix *tagIndex) invalidate(tag string) []string {
	e, ok := ix.tags.LoadAndDelete(tag)
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return nil
	}
	e.dead = true
	keys := make([]string, 0, len(e.keys))
	for k := range e.keys {
		keys = append(keys, k)
	}
	e.keys = nil
	e.mu.Unlock()

	for _, k := range keys {
		ix.drop(k)
	}
	return keys
}

// forget drops the storage key last used for key and returns it.
func (ix *tagIndex) forget(key string) (string, bool) {
	storageKey, ok := ix.latest.LoadAndDelete(key)
	if ok {
		ix.drop(storageKey)
	}
	return storageKey, ok
}

func (ix *tagIndex) drop(storageKey string) {
	if r, ok := ix.records.LoadAndDelete(storageKey); ok {
		ix.release(storageKey, r)
	}
}

// release unlinks a storage key whose record was removed. Entries are locked
// one at a time. A key registered again in the meantime has a new record and
// stays linked.
func (ix *tagIndex) release(storageKey string, r *keyRecord) {
	for _, e := range r.entries {
		e.mu.Lock()
		retire := false
		if !e.dead {
			if _, live := ix.records.Load(storageKey); !live {
				delete(e.keys, storageKey)
			}
			if len(e.keys) == 0 {
				e.dead = true
				retire = true
			}
		}
		e.mu.Unlock()
		if retire {
			ix.evict(e)
		}
	}

	ix.latest.Compute(r.key, func(cur string, loaded bool) (string, bool) {
		if !loaded {
			return cur, true
		}
		if cur != storageKey {
			return cur, false
		}
		_, live := ix.records.Load(cur)
		return cur, !live
	})
}

func (ix *tagIndex) maybeSweep(now time.Time) {
	next := ix.nextSweep.Load()
	if next == 0 {
		ix.nextSweep.CompareAndSwap(0, now.Add(ix.sweepEvery).UnixNano())
		return
	}
	if now.UnixNano() < next {
		return
	}
	if ix.nextSweep.CompareAndSwap(next, now.Add(ix.sweepEvery).UnixNano()) {
		ix.sweep(now)
	}
}

// sweep releases every record that expired by now and returns how many.
func (ix *tagIndex) sweep(now time.Time) int {
	deadline := now.UnixNano()
	removed := 0
	ix.records.Range(func(storageKey string, _ *keyRecord) bool {
		var expired *keyRecord
		ix.records.Compute(storageKey, func(r *keyRecord, loaded bool) (*keyRecord, bool) {
			if !loaded {
				return r, true
			}
			if r.expires <= deadline {
				expired = r
				return r, true
			}
			return r, false
		})
		if expired != nil {
			ix.release(storageKey, expired)
			removed++
		}
		return true
	})
	return removed
}

// size returns the number of live tags.
func (ix *tagIndex) size() int {
	return ix.tags.Size()
}

// keyCount returns the number of tracked storage keys.
func (ix *tagIndex) keyCount() int {
	return ix.records.Size()
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
