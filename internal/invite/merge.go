package invite

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Merge keeps a List in step with one table: a one-shot query seeds it and
// the change feed then merges every observed record by identity.
//
// The feed is optional. If subscribing fails, or the feed ends, the merge
// reports Degraded and the list simply stops receiving other guests' records.
// There is no reconnect.
type Merge[T Keyed] struct {
	store Store
	table string
	list  *List[T]
	opts  options

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	degraded atomic.Bool
}

// NewMerge returns a merge for table into list.
func NewMerge[T Keyed](store Store, table string, list *List[T], opts ...Option) *Merge[T] {
	return &Merge[T]{store: store, table: table, list: list, opts: buildOptions(opts)}
}

// Start opens the single subscription for the table and seeds the list
// from a one-shot query. Feed records that arrive while the query runs are
// held and merged once the seed lands. A failed query returns a *StoreError
// and may be retried; a second Start after success returns
// ErrAlreadySubscribed. The subscription outlives ctx and ends with Stop.
func (m *Merge[T]) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadySubscribed
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	changes, subErr := m.store.Subscribe(subCtx, m.table)
	var (
		seeded chan bool
		done   chan struct{}
	)
	if subErr == nil {
		seeded = make(chan bool, 1)
		done = make(chan struct{})
		go m.consume(subCtx, changes, seeded, done)
	} else {
		cancel()
	}

	var items []T
	if err := m.store.Query(ctx, m.table, &items); err != nil {
		if done != nil {
			seeded <- false
			cancel()
			<-done
		}
		return storeFailure(m.opts, "query "+m.table, err)
	}
	m.list.Seed(items)
	m.started = true

	if subErr != nil {
		m.degraded.Store(true)
		m.opts.log.Warn().Err(subErr).Str("table", m.table).Msg("change feed unavailable; showing loaded records only")
		return nil
	}
	seeded <- true
	m.cancel = cancel
	m.done = done
	return nil
}

// consume holds decoded feed records until seeded reports the outcome of the
// query, then applies them in order and keeps applying until the feed ends.
func (m *Merge[T]) consume(ctx context.Context, changes <-chan Change, seeded <-chan bool, done chan struct{}) {
	defer close(done)

	var pending []T
	holding := true
	apply := func(rec T) {
		if holding {
			pending = append(pending, rec)
			return
		}
		m.list.Apply(ListEvent[T]{Kind: FeedObserved, Record: rec})
	}
	release := func(ok bool) {
		holding = false
		if ok {
			for _, rec := range pending {
				m.list.Apply(ListEvent[T]{Kind: FeedObserved, Record: rec})
			}
		}
		pending = nil
	}

	for changes != nil {
		select {
		case ok := <-seeded:
			release(ok)
			if !ok {
				return
			}
			seeded = nil
		case ch, open := <-changes:
			if !open {
				changes = nil
				break
			}
			if ch.Table != "" && ch.Table != m.table {
				continue
			}
			var rec T
			if err := json.Unmarshal(ch.Record, &rec); err != nil {
				m.opts.log.Warn().Err(err).Str("table", m.table).Msg("undecodable feed record")
				continue
			}
			apply(rec)
		}
	}
	if holding {
		if ok := <-seeded; !ok {
			return
		}
		release(true)
	}
	if ctx.Err() == nil {
		m.degraded.Store(true)
		m.opts.log.Warn().Str("table", m.table).Msg("change feed ended")
	}
}

// Stop cancels the subscription and waits for the consumer to exit. It is
// safe to call more than once and before Start.
func (m *Merge[T]) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Degraded reports whether the list is no longer fed by the change feed.
func (m *Merge[T]) Degraded() bool { return m.degraded.Load() }

// List returns the merged list.
func (m *Merge[T]) List() *List[T] { return m.list }
