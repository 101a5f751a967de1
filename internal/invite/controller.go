package invite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// RSVPController owns the RSVP form and submits it to the store.
//
// Submit validates locally and never calls the store for invalid input. On
// success the form is reset to its defaults and the stored record is
// applied to the list; on failure both are left untouched.
type RSVPController struct {
	store    Store
	list     *List[domain.RSVP]
	opts     options
	inFlight atomic.Bool

	mu   sync.Mutex
	form domain.RSVPInput
	key  string
}

// NewRSVPController returns a controller with a default form. list may be
// nil when the caller does not display responses.
func NewRSVPController(store Store, list *List[domain.RSVP], opts ...Option) *RSVPController {
	if list == nil {
		list = NewList[domain.RSVP]()
	}
	return &RSVPController{
		store: store,
		list:  list,
		opts:  buildOptions(opts),
		form:  domain.DefaultRSVPInput(),
	}
}

// Form returns the current form values.
func (c *RSVPController) Form() domain.RSVPInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SetForm replaces the form values. Any change starts a new submission, so
// the pending idempotency key is dropped.
func (c *RSVPController) SetForm(in domain.RSVPInput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in != c.form {
		c.key = ""
	}
	c.form = in
}

// Prefill sets the name from an invitation link (?guest=...), leaving the
// rest of the form alone.
func (c *RSVPController) Prefill(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name = strings.TrimSpace(name)
	if name != "" && name != c.form.Name {
		c.form.Name = name
		c.key = ""
	}
}

// List returns the local list the controller appends to.
func (c *RSVPController) List() *List[domain.RSVP] { return c.list }

// Submit sends the current form. It returns a *domain.ValidationError,
// ErrSubmitInFlight or a *StoreError on failure.
func (c *RSVPController) Submit(ctx context.Context) (domain.RSVP, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return domain.RSVP{}, ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	form, key := c.pending()
	in := form.Normalize()
	if err := in.Validate(); err != nil {
		return domain.RSVP{}, err
	}

	var rec domain.RSVP
	if err := c.store.Insert(ctx, domain.TableRSVPs, in, key, &rec); err != nil {
		return domain.RSVP{}, storeFailure(c.opts, "insert "+domain.TableRSVPs, err)
	}

	c.mu.Lock()
	c.form = domain.DefaultRSVPInput()
	c.key = ""
	c.mu.Unlock()
	c.list.Apply(ListEvent[domain.RSVP]{Kind: LocalSubmitted, Record: rec})
	return rec, nil
}

// pending snapshots the form and the key for this attempt. The key is kept
// across failed attempts of the same form.
func (c *RSVPController) pending() (domain.RSVPInput, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == "" {
		c.key = c.opts.newKey()
	}
	return c.form, c.key
}

// GuestbookController owns the guestbook form and the client half of the
// deletion gate.
type GuestbookController struct {
	store    Store
	list     *List[domain.GuestbookEntry]
	opts     options
	inFlight atomic.Bool

	mu   sync.Mutex
	form domain.GuestbookInput
	key  string
}

// NewGuestbookController returns a controller with an empty form.
func NewGuestbookController(store Store, list *List[domain.GuestbookEntry], opts ...Option) *GuestbookController {
	if list == nil {
		list = NewList[domain.GuestbookEntry]()
	}
	return &GuestbookController{store: store, list: list, opts: buildOptions(opts)}
}

// Form returns the current form values.
func (c *GuestbookController) Form() domain.GuestbookInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SetForm replaces the form values.
func (c *GuestbookController) SetForm(in domain.GuestbookInput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in != c.form {
		c.key = ""
	}
	c.form = in
}

// List returns the local list of entries.
func (c *GuestbookController) List() *List[domain.GuestbookEntry] { return c.list }

// Submit posts the current form.
func (c *GuestbookController) Submit(ctx context.Context) (domain.GuestbookEntry, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return domain.GuestbookEntry{}, ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	if c.key == "" {
		c.key = c.opts.newKey()
	}
	form, key := c.form, c.key
	c.mu.Unlock()

	in := form.Normalize()
	if err := in.Validate(); err != nil {
		return domain.GuestbookEntry{}, err
	}

	var rec domain.GuestbookEntry
	if err := c.store.Insert(ctx, domain.TableGuestbook, in, key, &rec); err != nil {
		return domain.GuestbookEntry{}, storeFailure(c.opts, "insert "+domain.TableGuestbook, err)
	}

	c.mu.Lock()
	c.form = domain.GuestbookInput{}
	c.key = ""
	c.mu.Unlock()
	c.list.Apply(ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: rec})
	return rec, nil
}

// Delete asks the store to delete entry id with secret and, on success,
// removes it from the local list right away. The feed does not carry
// deletions. On any error the list is unchanged.
func (c *GuestbookController) Delete(ctx context.Context, id, secret string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	if secret == "" {
		return &domain.ValidationError{Field: "secret", Reason: "is required"}
	}

	err := c.store.DeleteGuestbook(ctx, id, secret)
	switch {
	case err == nil:
		c.list.Apply(ListEvent[domain.GuestbookEntry]{Kind: Deleted, ID: id})
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSecretMismatch):
		c.opts.log.Info().Err(err).Str("guestbook.id", id).Msg("guestbook delete refused")
		return err
	default:
		return storeFailure(c.opts, "delete "+domain.TableGuestbook, err)
	}
}

// storeFailure logs err and wraps it for the caller. Validation errors
// reported by the backend are passed through unwrapped.
func storeFailure(o options, op string, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	o.log.Error().Err(err).Str("op", op).Msg("store call failed")
	return &StoreError{Op: op, Err: err}
}
