package realtime

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker. The zero value is not usable; call
// NewMemoryBroker.
type MemoryBroker struct {
	buffer int

	mu     sync.RWMutex
	subs   map[string]map[*memSub]struct{}
	closed bool
}

type memSub struct {
	ch chan Event
}

// NewMemoryBroker returns a broker whose subscribers each buffer up to
// buffer events.
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBroker{
		buffer: buffer,
		subs:   make(map[string]map[*memSub]struct{}),
	}
}

// Publish delivers ev to every current subscriber of ev.Table without
// blocking. Full subscriber buffers drop the event.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	eventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	for s := range b.subs[ev.Table] {
		select {
		case s.ch <- ev:
		default:
			eventsDropped.WithLabelValues(ev.Table).Inc()
		}
	}
	return nil
}

// Subscribe registers a subscriber for table.
func (b *MemoryBroker) Subscribe(ctx context.Context, table string) (*Subscription, error) {
	s := &memSub{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := b.subs[table]
	if !ok {
		set = make(map[*memSub]struct{})
		b.subs[table] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()
	subscribers.WithLabelValues(table).Inc()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		b.remove(table, s)
	}()

	return &Subscription{C: s.ch, table: table, cancel: cancel}, nil
}

// Subscribers reports how many subscribers table currently has.
func (b *MemoryBroker) Subscribers(table string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[table])
}

// Close ends every subscription and rejects further use.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for table, set := range b.subs {
		for s := range set {
			close(s.ch)
			subscribers.WithLabelValues(table).Dec()
		}
		delete(b.subs, table)
	}
	return nil
}

func (b *MemoryBroker) remove(table string, s *memSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[table]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, table)
	}
	close(s.ch)
	subscribers.WithLabelValues(table).Dec()
}
