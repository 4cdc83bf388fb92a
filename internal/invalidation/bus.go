package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultSubject is the NATS subject invalidations are published on.
const DefaultSubject = "tagcache.invalidations"

// LocalBus delivers messages synchronously to every subscriber in the
// process. Publish returns after every handler has run.
type LocalBus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]func(Message)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[uint64]func(Message))}
}

func (b *LocalBus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := make([]func(Message), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(Message{Origin: msg.Origin, Tags: append([]string(nil), msg.Tags...)})
	}
	return nil
}

func (b *LocalBus) Subscribe(handler func(Message)) (func() error, error) {
	if handler == nil {
		return nil, fmt.Errorf("invalidation: nil handler")
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() error {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
		return nil
	}, nil
}

// Subscribers returns the number of registered handlers.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// NATSBus publishes msgpack encoded messages on a core NATS subject.
// Delivery is at most once: a process that is disconnected while a message
// is published misses it and keeps its entries until they expire.
type NATSBus struct {
	conn    *nats.Conn
	subject string
	owned   bool
	logger  *slog.Logger
}

// ConnectNATS dials url and returns a bus that closes the connection on Close.
func ConnectNATS(url, subject string, logger *slog.Logger, opts ...nats.Option) (*NATSBus, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	bus := NewNATSBus(conn, subject, logger)
	bus.owned = true
	bus.logger.Info("nats connected", "url", url, "subject", bus.subject)
	return bus, nil
}

// NewNATSBus wraps an existing connection. The caller keeps ownership of conn.
func NewNATSBus(conn *nats.Conn, subject string, logger *slog.Logger) *NATSBus {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBus{conn: conn, subject: subject, logger: logger}
}

func (b *NATSBus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", b.subject, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(handler func(Message)) (func() error, error) {
	if handler == nil {
		return nil, fmt.Errorf("invalidation: nil handler")
	}

	sub, err := b.conn.Subscribe(b.subject, func(m *nats.Msg) {
		msg, err := DecodeMessage(m.Data)
		if err != nil {
			b.logger.Warn("dropping malformed invalidation", "subject", m.Subject, "error", err)
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", b.subject, err)
	}
	return sub.Unsubscribe, nil
}

// Flush waits until the server has processed every published message.
func (b *NATSBus) Flush() error {
	return b.conn.Flush()
}

// Close closes the connection when the bus opened it.
func (b *NATSBus) Close() error {
	if b.owned {
		b.conn.Close()
	}
	return nil
}

// EncodeMessage serializes msg for the wire.
func EncodeMessage(msg Message) ([]byte, error) {
	data, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("encode invalidation: %w", err)
	}
	return data, nil
}

// DecodeMessage parses the output of EncodeMessage.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode invalidation: %w", err)
	}
	return msg, nil
}
