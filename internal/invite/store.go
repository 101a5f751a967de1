// Package invite implements the guest side of the wedding invitation: the
// RSVP and guestbook submission controllers, the local newest-first record
// lists they share with the change feed, the auto-popup scheduler for the
// RSVP prompt and the client half of the guestbook deletion gate.
//
// Everything here talks to the record store through the Store interface so
// the workflow can run against the HTTP backend (HTTPStore) or a fake.
package invite

import (
	"context"
	"encoding/json"
)

// Store is the record store as seen by the guest workflow.
type Store interface {
	// Insert stores in into table and decodes the stored record into out.
	// A non-empty key makes a repeated call return the first stored record.
	Insert(ctx context.Context, table string, in any, key string, out any) error

	// Query decodes every record of table into out (a pointer to a slice)
	// in the table's display order.
	Query(ctx context.Context, table string, out any) error

	// DeleteGuestbook removes entry id when secret matches. It returns
	// ErrNotFound or ErrSecretMismatch for the two expected refusals.
	DeleteGuestbook(ctx context.Context, id, secret string) error

	// Subscribe opens the change feed for table. The channel is closed when
	// ctx is cancelled or the feed ends.
	Subscribe(ctx context.Context, table string) (<-chan Change, error)
}

// ChangeType is the kind of change delivered by the feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// Change is one feed notification. Record is the public JSON of the row.
type Change struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	Record json.RawMessage `json:"record"`
}
