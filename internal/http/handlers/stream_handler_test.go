package handlers

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
)

// readEvent scans the stream until an event with the given name and returns
// its data line.
func readEvent(t *testing.T, sc *bufio.Scanner, name string) string {
	t.Helper()
	var current string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:") && current == name:
			return strings.TrimPrefix(line, "data:")
		}
	}
	t.Fatalf("stream ended before %q event: %v", name, sc.Err())
	return ""
}

// captureLog redirects the global logger, which handlers fall back to
// without the access log middleware.
func captureLog(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStream_DeliversInsertsAndPings(t *testing.T) {
	logs := captureLog(t)
	broker := realtime.NewMemoryBroker(4)
	defer broker.Close()

	h := New(nil, nil, nil, nil, broker)
	h.Heartbeat = 20 * time.Millisecond
	srv := httptest.NewServer(mount(h))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/guestbook", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type=%q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	if data := readEvent(t, sc, "ready"); !strings.Contains(data, `"guestbook"`) {
		t.Fatalf("ready data=%s", data)
	}

	ev, err := realtime.NewEvent(domain.TableGuestbook, realtime.Insert, domain.GuestbookEntry{ID: "g1", Name: "a", Message: "축하"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if err := broker.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data := readEvent(t, sc, "insert")
	if !strings.Contains(data, `"id":"g1"`) || !strings.Contains(data, `"type":"INSERT"`) {
		t.Fatalf("insert data=%s", data)
	}
	readEvent(t, sc, "ping")

	if !strings.Contains(logs.String(), `"message":"stream opened"`) {
		t.Fatalf("open stream not logged:\n%s", logs.String())
	}
}

func TestStream_RejectsUnknownTableAndMissingFeed(t *testing.T) {
	logs := captureLog(t)
	r := mount(New(nil, nil, nil, nil, realtime.NewMemoryBroker(1)))
	if w := do(t, r, http.MethodGet, "/stream/users", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown table status=%d", w.Code)
	}

	r = mount(New(nil, nil, nil, nil, nil))
	if w := do(t, r, http.MethodGet, "/stream/rsvps", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil feed status=%d", w.Code)
	}

	closed := realtime.NewMemoryBroker(1)
	_ = closed.Close()
	r = mount(New(nil, nil, nil, nil, closed))
	w := do(t, r, http.MethodGet, "/stream/rsvps", "")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), ErrCodeUnavailable) {
		t.Fatalf("closed feed status=%d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(logs.String(), "stream opened") {
		t.Fatalf("rejected streams logged as opened:\n%s", logs.String())
	}
}
