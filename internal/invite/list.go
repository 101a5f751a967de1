package invite

import (
	"sync"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// Keyed is a record with a store-assigned identity.
type Keyed interface {
	Key() string
}

// EventKind enumerates the producers allowed to change a local list.
type EventKind int

const (
	// LocalSubmitted is applied after this client's insert succeeded.
	LocalSubmitted EventKind = iota + 1
	// FeedObserved is applied for every record delivered by the feed.
	FeedObserved
	// Deleted is applied after a successful guestbook deletion.
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case LocalSubmitted:
		return "local_submitted"
	case FeedObserved:
		return "feed_observed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ListEvent is one change to a local list. Deleted events only use ID.
type ListEvent[T Keyed] struct {
	Kind   EventKind
	Record T
	ID     string
}

// Order is the display order of a list.
type Order int

const (
	// NewestFirst puts records not yet in the list at the front.
	NewestFirst Order = iota
	// OldestFirst puts records not yet in the list at the end.
	OldestFirst
)

// OrderOf returns the order the backend lists table in: questions are shown
// oldest first, every other table newest first.
func OrderOf(table string) Order {
	if table == domain.TableQuestions {
		return OldestFirst
	}
	return NewestFirst
}

// Reduce applies ev to a newest-first list. See ReduceOrdered.
func Reduce[T Keyed](items []T, ev ListEvent[T]) []T {
	return ReduceOrdered(items, ev, NewestFirst)
}

// ReduceOrdered returns the list that results from applying ev to items. A
// record whose identity is already present is replaced in place. A new one
// goes to the front of a NewestFirst list and the back of an OldestFirst
// list. A locally submitted record later echoed by the feed therefore
// appears once. items is not modified.
func ReduceOrdered[T Keyed](items []T, ev ListEvent[T], order Order) []T {
	switch ev.Kind {
	case LocalSubmitted, FeedObserved:
		key := ev.Record.Key()
		if key == "" {
			return items
		}
		for i := range items {
			if items[i].Key() == key {
				out := append([]T(nil), items...)
				out[i] = ev.Record
				return out
			}
		}
		out := make([]T, 0, len(items)+1)
		if order == OldestFirst {
			out = append(out, items...)
			return append(out, ev.Record)
		}
		out = append(out, ev.Record)
		return append(out, items...)
	case Deleted:
		for i := range items {
			if items[i].Key() == ev.ID {
				out := make([]T, 0, len(items)-1)
				out = append(out, items[:i]...)
				return append(out, items[i+1:]...)
			}
		}
	}
	return items
}

// List is the local, non-authoritative view of one table. All mutations go
// through Apply or Seed, which derive the new list from the latest value
// under a lock, so concurrent producers never lose each other's updates.
type List[T Keyed] struct {
	mu       sync.Mutex
	order    Order
	items    []T
	onChange func(ListEvent[T], []T)
}

// NewList returns an empty newest-first list.
func NewList[T Keyed]() *List[T] {
	return &List[T]{}
}

// NewOrderedList returns an empty list kept in order.
func NewOrderedList[T Keyed](order Order) *List[T] {
	return &List[T]{order: order}
}

// OnChange registers fn to run after every Apply that changed the list.
// fn runs with the list lock released and receives a copy of the items.
func (l *List[T]) OnChange(fn func(ev ListEvent[T], items []T)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Apply reduces ev into the list and returns a copy of the result.
func (l *List[T]) Apply(ev ListEvent[T]) []T {
	l.mu.Lock()
	before := l.items
	l.items = ReduceOrdered(l.items, ev, l.order)
	changed := !sameBacking(before, l.items)
	out := append([]T(nil), l.items...)
	fn := l.onChange
	l.mu.Unlock()

	if changed && fn != nil {
		fn(ev, append([]T(nil), out...))
	}
	return out
}

// Seed replaces the list with the result of a one-shot query, given in the
// list's order. Records already in the list but missing from items were
// observed after the query ran and stay at the new-record end. A record
// that appears twice in items (a paged query can shift under concurrent
// inserts) keeps its first occurrence.
func (l *List[T]) Seed(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queried := make(map[string]struct{}, len(items))
	for _, it := range items {
		queried[it.Key()] = struct{}{}
	}
	var later []T
	for _, it := range l.items {
		if _, ok := queried[it.Key()]; !ok {
			later = append(later, it)
		}
	}
	next := make([]T, 0, len(items)+len(later))
	if l.order == NewestFirst {
		next = append(next, later...)
	}
	kept := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := kept[it.Key()]; dup {
			continue
		}
		kept[it.Key()] = struct{}{}
		next = append(next, it)
	}
	if l.order == OldestFirst {
		next = append(next, later...)
	}
	l.items = next
}

// Items returns a copy of the current list.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of records in the list.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func sameBacking[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
