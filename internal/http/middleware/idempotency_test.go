package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIdempotencyAccessors_Unset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key")
	}
	if IsReplay(c) || IsRateBypass(c) || GetIdempotencyScope(c) != "" {
		t.Fatalf("expected zero state")
	}

	c.Set(ctxKeyIdem, "garbage")
	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
		t.Fatalf("foreign value under the state key must read as unset")
	}
}

func TestRouteScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got []string
	h := func(c *gin.Context) { got = append(got, RouteScope(c)); c.Status(http.StatusOK) }
	r.POST("/api/v1/rsvps", h)
	r.DELETE("/api/v1/guestbook/:id", h)
	r.PATCH("/api/v1/admin/questions/:id", h)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/rsvps", nil),
		httptest.NewRequest(http.MethodDelete, "/api/v1/guestbook/x", nil),
		httptest.NewRequest(http.MethodPatch, "/api/v1/admin/questions/q1", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	want := []string{"rsvps", "guestbook", "questions"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("scopes = %v; want %v", got, want)
		}
	}
}

func TestIdempotencyValidator_NoHeaderOrSafeMethod_NoLookupCalled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		lookupCalled = true
		return false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	h := func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be stashed")
		}
		c.Status(http.StatusNoContent)
	}
	r.GET("/rsvps", h)
	r.POST("/rsvps", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rsvps", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	// A key on a GET is ignored, even an invalid one.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rsvps", nil)
	req.Header.Set(HeaderIdempotencyKey, "not valid!")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("GET: expected 204, got %d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup should not be called")
	}
}

func TestIdempotencyValidator_InvalidKey_Length(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(IdempotencyOptions{MaxLen: 5}, nil))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(requestIDHeader, "rid-7")
	req.Header.Set(HeaderIdempotencyKey, "abcdef")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "bad_idempotency_key" || body["request_id"] != "rid-7" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_InvalidKey_Pattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil))
	r.POST("/y", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/y", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc123")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIdempotencyValidator_Valid_NoLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, nil))
	r.POST("/api/v1/guestbook", func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		if !ok || key != "abc-123" {
			t.Fatalf("expected stashed key abc-123, got %q ok=%v", key, ok)
		}
		if GetIdempotencyScope(c) != "guestbook" {
			t.Fatalf("scope=%q", GetIdempotencyScope(c))
		}
		if IsReplay(c) || IsRateBypass(c) {
			t.Fatalf("expected no replay/bypass when lookup=nil")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/guestbook", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc-123")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyValidator_WithLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		exists     bool
		err        error
		wantReplay bool
	}{
		{"miss", false, nil, false},
		{"hit", true, nil, true},
		{"lookup error", true, errors.New("db down"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			lookup := func(_ context.Context, scope, key string, now time.Time) (bool, error) {
				if scope != "rsvps" || key != "k-9" || now.IsZero() {
					t.Fatalf("lookup args: scope=%q key=%q now=%v", scope, key, now)
				}
				return tc.exists, tc.err
			}
			r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
			r.POST("/api/v1/rsvps", func(c *gin.Context) {
				if IsReplay(c) != tc.wantReplay || IsRateBypass(c) != tc.wantReplay {
					t.Fatalf("replay=%v bypass=%v; want %v", IsReplay(c), IsRateBypass(c), tc.wantReplay)
				}
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/rsvps", nil)
			req.Header.Set(HeaderIdempotencyKey, "k-9")
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
		})
	}
}

func TestIdempotencyValidator_CustomScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotScope string
	lookup := func(_ context.Context, scope, _ string, _ time.Time) (bool, error) {
		gotScope = scope
		return false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{Scope: func(*gin.Context) string { return "custom" }}, lookup))
	r.POST("/anything", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/anything", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if gotScope != "custom" {
		t.Fatalf("scope=%q", gotScope)
	}
}
