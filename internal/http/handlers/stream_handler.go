// Change-feed stream handler.
//
//   - GET /stream/{table}  (Server-Sent Events)
//
// Each change is sent as an "insert" or "update" event whose data is the
// JSON realtime.Event. A "ping" event is sent every Heartbeat so that
// proxies keep the connection open. The subscription is closed when the
// client disconnects.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
)

const defaultHeartbeat = 25 * time.Second

// Stream godoc
// @ID          streamTable
// @Summary     Subscribe to a table's change feed
// @Description Server-Sent Events stream of INSERT/UPDATE events for rsvps, guestbook, photos or questions.
// @Tags        Stream
// @Produce     text/event-stream
// @Param       table  path  string  true  "Table"  Enums(rsvps, guestbook, photos, questions)
// @Success     200  {string}  string "event stream"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown table"
// @Failure     503  {object}  handlers.ErrorResponse "Feed unavailable"
// @Router      /stream/{table} [get]
func (h *Handlers) Stream(c *gin.Context) {
	table := c.Param("table")
	if !domain.KnownTable(table) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown table")
		return
	}
	if h.feed == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "change feed unavailable")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.feed.Subscribe(ctx, table)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("table", table).Msg("feed subscribe failed")
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "change feed unavailable")
		return
	}
	defer sub.Close()
	middleware.LoggerFrom(c).Info().Str("remote_ip", c.ClientIP()).Msg("stream opened")

	// The server write timeout would cut the stream; heartbeats detect dead
	// peers instead.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("stream write deadline not cleared")
	}

	hb := h.Heartbeat
	if hb <= 0 {
		hb = defaultHeartbeat
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"table": table})
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			c.SSEvent(strings.ToLower(string(ev.Type)), ev)
		case now := <-ticker.C:
			c.SSEvent("ping", now.Unix())
		}
		c.Writer.Flush()
	}
}
