// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header sent with form submissions
// (RSVPs, guestbook entries, questions). Keys are scoped by the table a
// route writes to, so a client may reuse one key across different forms.
// The middleware only recognizes replays; the services load and return the
// stored record themselves.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries a key that stays the same across retries of
// one form submission (a double tap, a flaky mobile connection).
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdem       = "idem"
	ctxKeyRateBypass = "rate.bypass"

	defaultMaxKeyLen = 200
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// idemState is what IdempotencyValidator learned about a request.
type idemState struct {
	key    string
	scope  string
	replay bool
}

func idemFrom(c *gin.Context) idemState {
	s, _ := c.Value(ctxKeyIdem).(idemState)
	return s
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := idemFrom(c)
	return s.key, s.key != ""
}

// GetIdempotencyScope returns the scope the key was checked against.
func GetIdempotencyScope(c *gin.Context) string {
	return idemFrom(c).scope
}

// IsReplay reports whether a still-valid submission exists for the
// request's scope and key.
func IsReplay(c *gin.Context) bool {
	return idemFrom(c).replay
}

// IdempotencyOptions tunes key validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts the key alphabet; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope names the key namespace of a request; nil means RouteScope.
	Scope func(c *gin.Context) string
}

// IdempotencyLookup reports whether a still-valid submission exists for
// (scope, key) at now. Errors are logged and the request proceeds as new.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// RouteScope returns the last static segment of the matched route:
// "rsvps" for /api/v1/rsvps, "guestbook" for /api/v1/guestbook/:id.
func RouteScope(c *gin.Context) string {
	segs := strings.Split(strings.Trim(c.FullPath(), "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if s := segs[i]; s != "" && s[0] != ':' && s[0] != '*' {
			return s
		}
	}
	return ""
}

// IdempotencyValidator checks the Idempotency-Key of unsafe requests.
// Requests without one pass untouched. A malformed key is rejected with
// 400 bad_idempotency_key. When lookup finds a completed submission the
// request is marked as a replay, which also exempts it from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultMaxKeyLen
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultKeyPattern
	}
	if opts.Scope == nil {
		opts.Scope = RouteScope
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || safeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > opts.MaxLen || !opts.Pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		st := idemState{key: key, scope: opts.Scope(c)}
		if lookup != nil && st.scope != "" {
			exists, err := lookup(c.Request.Context(), st.scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", st.scope).Msg("idempotency lookup failed")
			}
			st.replay = err == nil && exists
		}
		c.Set(ctxKeyIdem, st)
		if st.replay {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}
