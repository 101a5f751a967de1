package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions extends what RedactingLogger scrubs.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" on top of Authorization,
	// Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// MaskQuery names query parameters whose values are replaced with
	// "[REDACTED]" before pattern redaction runs.
	MaskQuery []string
	// QuietPaths are logged at debug level when they succeed (probes).
	QuietPaths []string
}

const redacted = "[REDACTED]"

// UUIDs go first so the phone pattern cannot eat their digit groups; the
// phone pattern is digits-only so it never matches hex.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger is the access log. Guests type names, phone numbers and
// guestbook secrets into public forms, so bodies are never logged and what
// is logged is scrubbed: emails, phone numbers and UUIDs are replaced in
// the query and headers, sensitive headers and named query parameters are
// masked.
//
// It also attaches the request-scoped logger (request_id, method, path,
// table for routes that carry one and, behind basic auth, admin) read by
// LoggerFrom.
//
// Level: error for 5xx or when handlers recorded errors, warn for 4xx,
// debug for successful QuietPaths, info otherwise. Request headers are only
// included on 4xx/5xx lines.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	quiet := make(map[string]struct{}, len(opts.QuietPaths))
	for _, p := range opts.QuietPaths {
		quiet[p] = struct{}{}
	}

	maskQuery := func(raw string) string {
		if raw == "" || len(opts.MaskQuery) == 0 {
			return raw
		}
		vals, err := url.ParseQuery(raw)
		if err != nil {
			return raw
		}
		changed := false
		for _, k := range opts.MaskQuery {
			if _, ok := vals[k]; ok {
				vals[k] = []string{redacted}
				changed = true
			}
		}
		if !changed {
			return raw
		}
		out, _ := url.QueryUnescape(vals.Encode())
		return out
	}

	scrubHeaders := func(c *gin.Context) map[string]string {
		out := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				out[k] = redacted
				continue
			}
			out[k] = redact(strings.Join(vv, ", "))
		}
		return out
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := routePath(c)
		rid := RequestIDFrom(c)

		scoped := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path)
		if table := c.Param("table"); table != "" {
			scoped = scoped.Str("table", table)
		}
		lg := scoped.Logger()
		setLogger(c, lg)

		c.Next()

		// gin.BasicAuth runs after this middleware; read the user on the way out.
		if admin := c.GetString(gin.AuthUserKey); admin != "" {
			lg = lg.With().Str("admin", admin).Logger()
		}

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch _, isQuiet := quiet[path]; {
		case status >= 500 || len(c.Errors) > 0:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = lg.Warn()
		case isQuiet:
			ev = lg.Debug()
		default:
			ev = lg.Info()
		}
		if status >= 400 {
			ev = ev.Interface("headers", scrubHeaders(c))
		}

		ev.
			Str("query", truncate(redact(maskQuery(c.Request.URL.RawQuery)), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	}
}
