package realtime

import "sync"

// Subscription is a cancellable stream of events for one table.
type Subscription struct {
	// C receives events in publish order. It is closed when the
	// subscription ends.
	C <-chan Event

	table  string
	once   sync.Once
	cancel func()
}

// Table returns the subscribed table name.
func (s *Subscription) Table() string { return s.table }

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
