package invite

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// SnoozeKey is the KV key holding the snooze-until time in Unix milliseconds.
const SnoozeKey = "hideRsvpUntil"

// DefaultPopupThreshold is the scrolled fraction that triggers the prompt.
const DefaultPopupThreshold = 0.45

// KV is the small persistent store the scheduler keeps its snooze in.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// PopupState is the scheduler state.
type PopupState int

const (
	// Armed means the prompt may still be shown automatically.
	Armed PopupState = iota
	// Suppressed means the prompt was shown, is open, or is snoozed.
	Suppressed
)

func (s PopupState) String() string {
	if s == Armed {
		return "armed"
	}
	return "suppressed"
}

// PopupScheduler decides when to show the RSVP prompt unprompted. It shows
// it at most once per lifetime, never while it is already visible, and not
// at all while a persisted snooze is in the future.
type PopupScheduler struct {
	kv        KV
	threshold float64
	opts      options

	mu      sync.Mutex
	shown   bool
	visible bool
}

// NewPopupScheduler returns an armed scheduler. threshold must be in (0, 1].
func NewPopupScheduler(kv KV, threshold float64, opts ...Option) (*PopupScheduler, error) {
	if kv == nil {
		return nil, errors.New("invite: popup scheduler needs a KV")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("invite: popup threshold %v out of range (0,1]", threshold)
	}
	return &PopupScheduler{kv: kv, threshold: threshold, opts: buildOptions(opts)}, nil
}

// State reports Armed or Suppressed, reading the snooze from the KV.
func (p *PopupScheduler) State() PopupState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *PopupScheduler) stateLocked() PopupState {
	if p.shown || p.visible || p.snoozed() {
		return Suppressed
	}
	return Armed
}

// OnScroll evaluates a scroll position (fraction of the page scrolled, 0..1).
// It returns true exactly when the prompt should be shown now; the
// scheduler is then suppressed for the rest of its lifetime.
func (p *PopupScheduler) OnScroll(fraction float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction <= p.threshold || p.stateLocked() != Armed {
		return false
	}
	p.shown = true
	p.visible = true
	return true
}

// Open records that the guest opened the prompt by hand.
func (p *PopupScheduler) Open() {
	p.mu.Lock()
	p.visible = true
	p.mu.Unlock()
}

// Close records that the prompt was dismissed.
func (p *PopupScheduler) Close() {
	p.mu.Lock()
	p.visible = false
	p.mu.Unlock()
}

// Visible reports whether the prompt is open.
func (p *PopupScheduler) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Snooze ("don't show again today") hides the prompt and persists a snooze
// until the next local midnight. It returns that time.
func (p *PopupScheduler) Snooze() (time.Time, error) {
	until := NextLocalMidnight(p.opts.now())
	if err := p.kv.Set(SnoozeKey, strconv.FormatInt(until.UnixMilli(), 10)); err != nil {
		return time.Time{}, err
	}
	p.Close()
	return until, nil
}

// SnoozedUntil returns the persisted snooze time, if any.
func (p *PopupScheduler) SnoozedUntil() (time.Time, bool) {
	v, ok, err := p.kv.Get(SnoozeKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// snoozed treats unreadable or malformed values as no snooze.
func (p *PopupScheduler) snoozed() bool {
	until, ok := p.SnoozedUntil()
	if !ok {
		return false
	}
	return p.opts.now().Before(until)
}

// NextLocalMidnight returns the start of the day after t in t's location.
func NextLocalMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
