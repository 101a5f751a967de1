package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
	"github.com/tbourn/go-wedding-backend/internal/services"
)

// ---------- stub services ----------

type stubRSVP struct {
	submit  func(ctx context.Context, in domain.RSVPInput, key string) (*domain.RSVP, bool, error)
	list    func(ctx context.Context, page, pageSize int) ([]domain.RSVP, int64, error)
	stats   func(ctx context.Context) (int64, *time.Time, error)
	summary func(ctx context.Context) (domain.RSVPStats, error)
}

func (s stubRSVP) Submit(ctx context.Context, in domain.RSVPInput, key string) (*domain.RSVP, bool, error) {
	return s.submit(ctx, in, key)
}
func (s stubRSVP) ListPage(ctx context.Context, page, pageSize int) ([]domain.RSVP, int64, error) {
	return s.list(ctx, page, pageSize)
}
func (s stubRSVP) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, nil
	}
	return s.stats(ctx)
}
func (s stubRSVP) Summary(ctx context.Context) (domain.RSVPStats, error) { return s.summary(ctx) }

type stubGuestbook struct {
	post  func(ctx context.Context, in domain.GuestbookInput, key string) (*domain.GuestbookEntry, bool, error)
	list  func(ctx context.Context, page, pageSize int) ([]domain.GuestbookEntry, int64, error)
	del   func(ctx context.Context, id, secret string) error
	stats func(ctx context.Context) (int64, *time.Time, error)
}

func (s stubGuestbook) Post(ctx context.Context, in domain.GuestbookInput, key string) (*domain.GuestbookEntry, bool, error) {
	return s.post(ctx, in, key)
}
func (s stubGuestbook) ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestbookEntry, int64, error) {
	return s.list(ctx, page, pageSize)
}
func (s stubGuestbook) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, nil
	}
	return s.stats(ctx)
}
func (s stubGuestbook) Delete(ctx context.Context, id, secret string) error {
	return s.del(ctx, id, secret)
}

type stubPhotos struct {
	upload func(ctx context.Context, uploadedBy string, files []services.PhotoFile) ([]domain.GuestPhoto, error)
	list   func(ctx context.Context, page, pageSize int) ([]domain.GuestPhoto, int64, error)
}

func (s stubPhotos) Upload(ctx context.Context, uploadedBy string, files []services.PhotoFile) ([]domain.GuestPhoto, error) {
	return s.upload(ctx, uploadedBy, files)
}
func (s stubPhotos) ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestPhoto, int64, error) {
	return s.list(ctx, page, pageSize)
}
func (stubPhotos) Stats(context.Context) (int64, *time.Time, error) { return 0, nil, nil }

type stubQuestions struct {
	ask      func(ctx context.Context, in domain.QuestionInput, key string) (*domain.Question, bool, error)
	list     func(ctx context.Context, approvedOnly bool, page, pageSize int) ([]domain.Question, int64, error)
	moderate func(ctx context.Context, id string, p domain.QuestionPatch) (*domain.Question, error)
}

func (s stubQuestions) Ask(ctx context.Context, in domain.QuestionInput, key string) (*domain.Question, bool, error) {
	return s.ask(ctx, in, key)
}
func (s stubQuestions) ListPage(ctx context.Context, approvedOnly bool, page, pageSize int) ([]domain.Question, int64, error) {
	return s.list(ctx, approvedOnly, page, pageSize)
}
func (stubQuestions) Stats(context.Context) (int64, *time.Time, error) { return 0, nil, nil }
func (s stubQuestions) Moderate(ctx context.Context, id string, p domain.QuestionPatch) (*domain.Question, error) {
	return s.moderate(ctx, id, p)
}

// ---------- helpers ----------

// mount registers every route on a bare engine behind the idempotency
// header validator (no replay lookup).
func mount(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/rsvps", h.SubmitRSVP)
	r.GET("/rsvps", h.ListRSVPs)
	r.POST("/guestbook", h.PostGuestbook)
	r.GET("/guestbook", h.ListGuestbook)
	r.DELETE("/guestbook/:id", h.DeleteGuestbook)
	r.POST("/photos", h.UploadPhotos)
	r.GET("/photos", h.ListPhotos)
	r.POST("/questions", h.AskQuestion)
	r.GET("/questions", h.ListQuestions)
	r.GET("/stream/:table", h.Stream)
	r.GET("/admin/stats", h.AdminStats)
	r.GET("/admin/questions", h.AdminListQuestions)
	r.PATCH("/admin/questions/:id", h.ModerateQuestion)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
