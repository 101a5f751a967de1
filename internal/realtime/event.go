// Package realtime delivers per-table change notifications (the change
// feed) from the services that write records to the SSE stream endpoint and
// any other in-process consumer.
//
// Two brokers are provided: MemoryBroker for a single server process and
// RedisBroker, which fans events out through Redis pub/sub so that several
// server replicas share one feed. Both give each subscriber a bounded
// channel; a subscriber that falls behind loses events instead of slowing
// down publishers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EventType is the kind of change carried by an Event.
type EventType string

const (
	// Insert is published after a new row is committed.
	Insert EventType = "INSERT"
	// Update is published after an existing row changes (Q&A moderation).
	Update EventType = "UPDATE"
)

// Event is one change notification for a table. Record holds the public
// JSON form of the row.
type Event struct {
	Table  string          `json:"table"`
	Type   EventType       `json:"type"`
	Record json.RawMessage `json:"record"`
	At     time.Time       `json:"at"`
}

// ErrClosed is returned by brokers after Close.
var ErrClosed = errors.New("realtime: broker closed")

// NewEvent marshals record into an Event stamped with the current time.
func NewEvent(table string, typ EventType, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{Table: table, Type: typ, Record: raw, At: time.Now().UTC()}, nil
}

// Publisher is the write side of a broker. Services depend on this only.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker publishes events and hands out per-table subscriptions.
type Broker interface {
	Publisher
	// Subscribe opens a subscription for table. The subscription ends when
	// ctx is cancelled or Close is called, after which C is closed.
	Subscribe(ctx context.Context, table string) (*Subscription, error)
	Close() error
}
