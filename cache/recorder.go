package cache

// Recorder receives cache events. Implementations must be safe for concurrent
// use; the metrics package provides a Prometheus backed one.
type Recorder interface {
	CacheHit(op string)
	CacheMiss(op string)
	TagsInvalidated(n int)
	KeysEvicted(n int)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) CacheHit(string)     {}
func (NopRecorder) CacheMiss(string)    {}
func (NopRecorder) TagsInvalidated(int) {}
func (NopRecorder) KeysEvicted(int)     {}
