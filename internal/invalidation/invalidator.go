// Package invalidation applies tag invalidations after writes commit.
//
// An Invalidator always invalidates the local cache before returning. In
// broadcast mode it also publishes the tags on a Bus so that other processes
// sharing the database drop their copies once the message is delivered.
package invalidation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/google/uuid"
)

// Consistency selects how far an invalidation reaches before Invalidate returns.
type Consistency string

const (
	// ConsistencyLocal invalidates the cache of this process only.
	ConsistencyLocal Consistency = "local"
	// ConsistencyBroadcast invalidates locally, then publishes the tags so
	// other processes invalidate eventually.
	ConsistencyBroadcast Consistency = "broadcast"
)

// Valid reports whether c is a known consistency mode.
func (c Consistency) Valid() bool {
	return c == ConsistencyLocal || c == ConsistencyBroadcast
}

// Message is the payload exchanged between processes.
type Message struct {
	Origin string   `msgpack:"origin" json:"origin"`
	Tags   []string `msgpack:"tags" json:"tags"`
}

// Bus carries invalidation messages between processes.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(handler func(Message)) (unsubscribe func() error, err error)
}

// Invalidator drops tagged cache entries and optionally broadcasts the drop.
type Invalidator struct {
	target      cache.TagInvalidator
	bus         Bus
	consistency Consistency
	nodeID      string
	logger      *slog.Logger
}

var _ cache.TagInvalidator = (*Invalidator)(nil)

type Option func(*Invalidator)

// WithBus sets the bus used in broadcast mode and by Listen.
func WithBus(bus Bus) Option {
	return func(i *Invalidator) {
		i.bus = bus
	}
}

// WithConsistency selects the consistency mode. Unknown modes are ignored.
func WithConsistency(c Consistency) Option {
	return func(i *Invalidator) {
		if c.Valid() {
			i.consistency = c
		}
	}
}

// WithNodeID overrides the random id identifying this process on the bus.
func WithNodeID(id string) Option {
	return func(i *Invalidator) {
		if id != "" {
			i.nodeID = id
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Invalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New returns an Invalidator over target, in local mode unless configured
// otherwise.
func New(target cache.TagInvalidator, opts ...Option) *Invalidator {
	i := &Invalidator{
		target:      target,
		consistency: ConsistencyLocal,
		nodeID:      uuid.NewString(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NodeID identifies this process in published messages.
func (i *Invalidator) NodeID() string {
	return i.nodeID
}

// Consistency returns the configured mode.
func (i *Invalidator) Consistency() Consistency {
	return i.consistency
}

// Invalidate drops every entry registered under any of tags.
func (i *Invalidator) Invalidate(ctx context.Context, tags ...cachetag.Tag) error {
	return i.InvalidateTags(ctx, cachetag.NewSet(tags...).Strings()...)
}

// InvalidateTags is Invalidate for encoded tags. The local cache is always
// invalidated first; a publish failure is logged and returned, the local
// invalidation stays applied.
func (i *Invalidator) InvalidateTags(ctx context.Context, tags ...string) error {
	tags = dedupe(tags)
	if len(tags) == 0 {
		return nil
	}

	if err := i.target.InvalidateTags(ctx, tags...); err != nil {
		return fmt.Errorf("invalidate tags: %w", err)
	}
	i.logger.DebugContext(ctx, "cache tags invalidated", "tags", tags)

	if i.consistency != ConsistencyBroadcast || i.bus == nil {
		return nil
	}

	if err := i.bus.Publish(ctx, Message{Origin: i.nodeID, Tags: tags}); err != nil {
		i.logger.WarnContext(ctx, "invalidation broadcast failed", "tags", tags, "error", err)
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Listen applies invalidations published by other processes until ctx is
// done. Messages carrying this node's id are skipped.
func (i *Invalidator) Listen(ctx context.Context) error {
	if i.bus == nil {
		return fmt.Errorf("invalidation: listen requires a bus")
	}

	unsubscribe, err := i.bus.Subscribe(func(msg Message) {
		i.apply(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe invalidations: %w", err)
	}

	<-ctx.Done()
	if err := unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe invalidations: %w", err)
	}
	return nil
}

func (i *Invalidator) apply(ctx context.Context, msg Message) {
	if msg.Origin == i.nodeID {
		return
	}
	tags := dedupe(msg.Tags)
	if len(tags) == 0 {
		return
	}

	foreign := 0
	for _, t := range tags {
		if _, err := cachetag.Parse(t); err != nil {
			foreign++
		}
	}

	if err := i.target.InvalidateTags(context.WithoutCancel(ctx), tags...); err != nil {
		i.logger.WarnContext(ctx, "remote invalidation failed", "origin", msg.Origin, "error", err)
		return
	}
	i.logger.DebugContext(ctx, "remote cache tags invalidated",
		"origin", msg.Origin,
		"tags", tags,
		"unscoped", foreign,
	)
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
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
	return out
}
