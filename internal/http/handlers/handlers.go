// Package handlers – service contracts and shared helpers.
//
// Handlers are transport-thin: they bind and check input, call application
// services, and translate results into HTTP responses (including weak-ETag
// conditional responses on list endpoints).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/services"
	"github.com/tbourn/go-wedding-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RSVPService defines the attendance-response operations.
type RSVPService interface {
	// Submit stores a response; replayed reports an Idempotency-Key replay.
	Submit(ctx context.Context, in domain.RSVPInput, key string) (*domain.RSVP, bool, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.RSVP, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
	Summary(ctx context.Context) (domain.RSVPStats, error)
}

// GuestbookService defines the guestbook operations, including the
// secret-checked deletion gate.
type GuestbookService interface {
	Post(ctx context.Context, in domain.GuestbookInput, key string) (*domain.GuestbookEntry, bool, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestbookEntry, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
	Delete(ctx context.Context, id, secret string) error
}

// PhotoService defines the photo upload pipeline.
type PhotoService interface {
	Upload(ctx context.Context, uploadedBy string, files []services.PhotoFile) ([]domain.GuestPhoto, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestPhoto, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// QuestionService defines the Q&A operations.
type QuestionService interface {
	Ask(ctx context.Context, in domain.QuestionInput, key string) (*domain.Question, bool, error)
	ListPage(ctx context.Context, approvedOnly bool, page, pageSize int) ([]domain.Question, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
	Moderate(ctx context.Context, id string, p domain.QuestionPatch) (*domain.Question, error)
}

// FeedSubscriber opens change-feed subscriptions for the stream endpoint.
type FeedSubscriber interface {
	Subscribe(ctx context.Context, table string) (*realtime.Subscription, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. Services are abstract so tests can
// substitute stubs.
type Handlers struct {
	rsvpSvc      RSVPService
	guestbookSvc GuestbookService
	photoSvc     PhotoService
	questionSvc  QuestionService
	feed         FeedSubscriber

	// Heartbeat is the SSE keep-alive interval; zero means 25s.
	Heartbeat time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(rsvp RSVPService, guestbook GuestbookService, photos PhotoService, questions QuestionService, feed FeedSubscriber) *Handlers {
	return &Handlers{
		rsvpSvc:      rsvp,
		guestbookSvc: guestbook,
		photoSvc:     photos,
		questionSvc:  questions,
		feed:         feed,
	}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

func paginate(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// notModified sets a weak ETag derived from the table stats and the page,
// and answers 304 when it matches If-None-Match. Stats errors skip the
// precondition rather than failing the request.
func notModified(c *gin.Context, table string, stats func(context.Context) (int64, *time.Time, error), page, pageSize int) bool {
	count, latest, err := stats(c.Request.Context())
	if err != nil {
		return false
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixMilli()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d:%d:%d"`, table, count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// submitted writes 201 for a new record and 200 for an idempotent replay.
func submitted(c *gin.Context, replayed bool, body any) {
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		ok(c, http.StatusOK, body)
		return
	}
	ok(c, http.StatusCreated, body)
}

// failService maps errors shared by every write endpoint.
func failService(c *gin.Context, err error, code, msg string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		failField(c, http.StatusBadRequest, ErrCodeValidation, ve.Error(), ve.Field)
	case errors.Is(err, services.ErrIdempotencyConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "Idempotency-Key was already used")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, code, msg)
	}
}
