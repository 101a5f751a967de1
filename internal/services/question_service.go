// Package services – QuestionService
//
// This file implements the Q&A board: guests ask questions, the couple
// approves and answers them, and only approved questions are public.
// Moderation publishes an UPDATE event once a question is approved so that
// open pages pick up new answers.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
)

// QuestionRepo defines the repository contract required by QuestionService.
type QuestionRepo interface {
	// CreateQuestion inserts a new, unapproved question.
	CreateQuestion(ctx context.Context, db *gorm.DB, in domain.QuestionInput) (*domain.Question, error)

	// GetQuestion fetches a question by id.
	GetQuestion(ctx context.Context, db *gorm.DB, id string) (*domain.Question, error)

	// CountQuestions counts approved (or all) questions.
	CountQuestions(ctx context.Context, db *gorm.DB, approvedOnly bool) (int64, error)

	// ListQuestionsPage returns a page of approved (or all) questions.
	ListQuestionsPage(ctx context.Context, db *gorm.DB, approvedOnly bool, offset, limit int) ([]domain.Question, error)

	// UpdateQuestion applies a moderation patch.
	UpdateQuestion(ctx context.Context, db *gorm.DB, id string, p domain.QuestionPatch) error

	// TableStats reports count and newest change time.
	TableStats(ctx context.Context, db *gorm.DB, table string, approvedOnly bool) (int64, *time.Time, error)
}

// QuestionService provides the Q&A use-cases.
type QuestionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the question repository used by this service.
	Repo QuestionRepo
	// Feed receives UPDATE events for approved questions. May be nil.
	Feed realtime.Publisher
	// IdempotencyTTL bounds how long an Idempotency-Key replays its record.
	IdempotencyTTL time.Duration
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(db *gorm.DB, r QuestionRepo, feed realtime.Publisher, ttl time.Duration) *QuestionService {
	return &QuestionService{DB: db, Repo: r, Feed: feed, IdempotencyTTL: ttl}
}

// Ask stores a new question awaiting approval. Unapproved questions are not
// public, so no feed event is published.
func (s *QuestionService) Ask(ctx context.Context, in domain.QuestionInput, key string) (*domain.Question, bool, error) {
	tr := otel.Tracer("services/QuestionService")
	ctx, span := tr.Start(ctx, "Ask")
	defer span.End()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	q, replayed, err := submitOnce(ctx, s.DB, domain.TableQuestions, key, s.IdempotencyTTL,
		func(tx *gorm.DB) (*domain.Question, string, error) {
			q, err := s.Repo.CreateQuestion(ctx, tx, in)
			if err != nil {
				return nil, "", err
			}
			return q, q.ID, nil
		},
		func(id string) (*domain.Question, error) { return s.Repo.GetQuestion(ctx, s.DB, id) },
	)
	if err != nil {
		span.RecordError(err)
	}
	return q, replayed, err
}

// ListPage returns approved questions oldest first, or every question
// newest first when approvedOnly is false.
func (s *QuestionService) ListPage(ctx context.Context, approvedOnly bool, page, pageSize int) ([]domain.Question, int64, error) {
	tr := otel.Tracer("services/QuestionService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Bool("approved_only", approvedOnly),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := s.Repo.CountQuestions(ctx, s.DB, approvedOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Question{}, 0, nil
	}
	items, err := s.Repo.ListQuestionsPage(ctx, s.DB, approvedOnly, offset, limit)
	return items, total, err
}

// Stats returns count and newest change time of the public questions.
func (s *QuestionService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.TableStats(ctx, s.DB, domain.TableQuestions, true)
}

// Moderate applies p to question id and returns the updated question.
func (s *QuestionService) Moderate(ctx context.Context, id string, p domain.QuestionPatch) (*domain.Question, error) {
	tr := otel.Tracer("services/QuestionService")
	ctx, span := tr.Start(ctx, "Moderate",
		trace.WithAttributes(attribute.String("question.id", id)),
	)
	defer span.End()

	if p.Empty() {
		return nil, ErrEmptyPatch
	}
	var err error
	if p.GroomAnswer, err = cleanAnswer("groom_answer", p.GroomAnswer); err != nil {
		return nil, err
	}
	if p.BrideAnswer, err = cleanAnswer("bride_answer", p.BrideAnswer); err != nil {
		return nil, err
	}

	if err := s.Repo.UpdateQuestion(ctx, s.DB, id, p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	q, err := s.Repo.GetQuestion(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	if q.Approved {
		publish(ctx, s.Feed, domain.TableQuestions, realtime.Update, q)
	}
	return q, nil
}

func cleanAnswer(field string, a *string) (*string, error) {
	if a == nil {
		return nil, nil
	}
	v := domain.CleanText(*a)
	if utf8.RuneCountInString(v) > domain.MaxMessageLen {
		return nil, &domain.ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", domain.MaxMessageLen)}
	}
	return &v, nil
}
