package invalidation

import (
	"context"
	"sync"

	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/cachetag"
)

// Pending accumulates the tags written by a transaction. Flush it after the
// transaction commits; drop it on rollback.
//
// Pending implements repositorycache.TagCollector, so cached repositories
// used inside the transaction hand their tags to it.
type Pending struct {
	target cache.TagInvalidator

	mu   sync.Mutex
	seen map[string]struct{}
	tags []string
}

func NewPending(target cache.TagInvalidator) *Pending {
	return &Pending{target: target, seen: make(map[string]struct{})}
}

// Add queues structured tags.
func (p *Pending) Add(tags ...cachetag.Tag) {
	p.Collect(cachetag.Strings(tags...)...)
}

// Collect queues encoded tags.
func (p *Pending) Collect(tags ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := p.seen[t]; ok {
			continue
		}
		p.seen[t] = struct{}{}
		p.tags = append(p.tags, t)
	}
}

// Tags returns the queued tags in the order they were first added.
func (p *Pending) Tags() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.tags...)
}

// Discard drops the queued tags.
func (p *Pending) Discard() {
	p.mu.Lock()
	p.seen = make(map[string]struct{})
	p.tags = nil
	p.mu.Unlock()
}

// Flush invalidates the queued tags and empties the queue.
func (p *Pending) Flush(ctx context.Context) error {
	p.mu.Lock()
	tags := p.tags
	p.seen = make(map[string]struct{})
	p.tags = nil
	p.mu.Unlock()

	if len(tags) == 0 {
		return nil
	}
	return p.target.InvalidateTags(ctx, tags...)
}
