package invite

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type options struct {
	log    zerolog.Logger
	newKey func() string
	now    func() time.Time
}

// Option configures controllers, merges and the popup scheduler.
type Option func(*options)

// WithLogger sets the logger used to report failures. The default is a
// disabled logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithKeyFunc overrides the idempotency key generator (default: UUIDv4).
func WithKeyFunc(fn func() string) Option {
	return func(o *options) { o.newKey = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		log:    zerolog.Nop(),
		newKey: uuid.NewString,
		now:    time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
