// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the per-client token-bucket limiters. Guests post from a
// public page without accounts, so a bucket is keyed by client IP (or by the
// admin user behind basic auth). Two limiters are installed: a generous one
// for every request and a strict one for form submissions only.
//
// The limiter is process-local; it keeps one client from flooding the RSVP
// list or the guestbook and is not an authorization mechanism.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	defaultBucketIdle = 10 * time.Minute
	sweepEvery        = 4096
	// maxRetryAfter caps the advertised wait for very slow limits.
	maxRetryAfter = time.Hour
)

// ClientKey maps a request to the identity owning a bucket.
type ClientKey func(*gin.Context) string

// KeyByClient keys admin requests by the basic-auth user and everything
// else by client IP, in separate namespaces ("admin:couple", "ip:203.0.113.7").
func KeyByClient() ClientKey {
	return func(c *gin.Context) string {
		if s := c.GetString(gin.AuthUserKey); s != "" {
			return "admin:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one token bucket per client. It is safe for
// concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   ClientKey
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (at least 1) per client.
func NewRateLimiter(rps float64, burst int, key ClientKey) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		key:     key,
		idle:    defaultBucketIdle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// bucketFor returns the client's limiter. Every sweepEvery lookups idle
// buckets are dropped first, so a stale bucket is never refreshed by the
// lookup that should evict it.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		rl.lookups = 0
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// Clients reports how many buckets are currently held.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// take spends one token for key. When none is available it returns the
// time until one will be.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()
	res := rl.bucketFor(key, now).ReserveN(now, 1)
	if !res.OK() {
		return false, maxRetryAfter
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, min(delay, maxRetryAfter)
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay of a completed submission. Replays never spend tokens.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

// Handler limits every request.
//
// A rejected request gets 429 with the standard error body and a
// Retry-After header (whole seconds, at least 1) telling the client when
// its next token is due.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return rl.handler("all", false)
}

// WritesOnly limits unsafe methods; GET, HEAD and OPTIONS pass untouched so
// page loads and open change streams do not spend submission tokens.
func (rl *RateLimiter) WritesOnly() gin.HandlerFunc {
	return rl.handler("writes", true)
}

func (rl *RateLimiter) handler(scope string, writesOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || (writesOnly && safeMethod(c.Request.Method)) {
			c.Next()
			return
		}

		ok, wait := rl.take(rl.key(c))
		if ok {
			c.Next()
			return
		}

		rateLimited.WithLabelValues(scope, routePath(c)).Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(wait.Seconds())))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "too many submissions, try again shortly",
		})
	}
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
