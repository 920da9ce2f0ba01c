package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBufferFull is returned by a buffered Publisher when the worker lags.
var ErrBufferFull = errors.New("audit buffer full")

// Store is where audit events end up.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and writes
// through to its Store, or hands events to a Worker when buffered.
type Publisher struct {
	store Store
	inbox chan Event
}

type Option func(*Publisher)

// WithBuffer makes Emit non-blocking: events are queued for a Worker
// created with p.Worker.
func WithBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Worker returns a worker draining the buffer into the store. It returns nil
// for an unbuffered Publisher.
func (p *Publisher) Worker(logger *slog.Logger) *Worker {
	if p.inbox == nil {
		return nil
	}
	return NewWorker(p.store, p.inbox, logger)
}

// MemoryStore keeps events in memory. Useful for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
