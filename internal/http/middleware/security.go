// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders for a JSON API called from a static
// invitation page on another origin.
//
// Cache policy:
//   - Admin routes (NoStorePrefixes) are never cached.
//   - Other reads are "no-cache" so browsers revalidate with If-None-Match.
//   - Stored photos (MediaPrefix) never change once written and are immutable.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// exposedHeaders are response headers browser clients may read.
var exposedHeaders = []string{requestIDHeader, "ETag", "Idempotent-Replayed"}

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStorePrefixes get Cache-Control: no-store plus Pragma and Expires.
	NoStorePrefixes []string
	// MediaPrefix is where stored photos are served; they may be embedded
	// cross-origin and cached for a year.
	MediaPrefix string
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, the optional policy and HSTS headers, a per-path cache policy,
// and extends Access-Control-Expose-Headers with the request ID, ETag and
// Idempotent-Replayed.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		static = append(static,
			[2]string{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			[2]string{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}

	hsts := ""
	if opt.EnableHSTS {
		age := opt.HSTSMaxAge
		if age <= 0 {
			age = defaultHSTSMaxAge
		}
		hsts = "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"
	}

	media := ""
	if p := strings.TrimRight(opt.MediaPrefix, "/"); p != "" {
		media = p + "/"
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range static {
			h.Set(kv[0], kv[1])
		}
		setCachePolicy(h, c.Request, opt.NoStorePrefixes, media)
		if hsts != "" && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h)
		c.Next()
	}
}

func setCachePolicy(h http.Header, r *http.Request, noStore []string, media string) {
	path := r.URL.Path
	for _, p := range noStore {
		if p != "" && strings.HasPrefix(path, p) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			return
		}
	}
	switch {
	case media != "" && strings.HasPrefix(path, media):
		h.Set("Cache-Control", "public, max-age=31536000, immutable")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
	case r.Method == http.MethodGet:
		h.Set("Cache-Control", "no-cache")
	}
}

// exposeHeaders merges exposedHeaders into Access-Control-Expose-Headers,
// keeping existing entries first and skipping duplicates. The request ID is
// only exposed when one was set.
func exposeHeaders(h http.Header) {
	const hdr = "Access-Control-Expose-Headers"
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if k := strings.ToLower(n); n != "" && !seen[k] {
			seen[k] = true
			names = append(names, n)
		}
	}
	for _, n := range strings.Split(h.Get(hdr), ",") {
		add(strings.TrimSpace(n))
	}
	for _, n := range exposedHeaders {
		if n == requestIDHeader && h.Get(n) == "" {
			continue
		}
		add(n)
	}
	if len(names) > 0 {
		h.Set(hdr, strings.Join(names, ", "))
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or behind
// a proxy setting X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
