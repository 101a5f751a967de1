package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// CreateQuestion inserts an unapproved question.
func CreateQuestion(ctx context.Context, db *gorm.DB, in domain.QuestionInput) (*domain.Question, error) {
	now := time.Now().UTC()
	q := &domain.Question{
		ID:        uuid.NewString(),
		Question:  in.Question,
		AskerName: in.AskerName,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestion fetches a single question by id regardless of approval.
func GetQuestion(ctx context.Context, db *gorm.DB, id string) (*domain.Question, error) {
	var q domain.Question
	if err := db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func questionScope(db *gorm.DB, approvedOnly bool) *gorm.DB {
	q := db.Model(&domain.Question{})
	if approvedOnly {
		q = q.Where("is_approved = ?", true)
	}
	return q
}

// CountQuestions counts questions, optionally only approved ones.
func CountQuestions(ctx context.Context, db *gorm.DB, approvedOnly bool) (int64, error) {
	var total int64
	err := questionScope(db.WithContext(ctx), approvedOnly).Count(&total).Error
	return total, err
}

// ListQuestionsPage returns approved questions oldest first, or every
// question newest first for moderation.
func ListQuestionsPage(ctx context.Context, db *gorm.DB, approvedOnly bool, offset, limit int) ([]domain.Question, error) {
	order := newestFirst
	if approvedOnly {
		order = "created_at ASC, id ASC"
	}
	var out []domain.Question
	err := questionScope(db.WithContext(ctx), approvedOnly).
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateQuestion applies a moderation patch. Empty answers are stored as
// NULL. It returns ErrNotFound when no row matched.
func UpdateQuestion(ctx context.Context, db *gorm.DB, id string, p domain.QuestionPatch) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if p.Approved != nil {
		updates["is_approved"] = *p.Approved
	}
	if p.GroomAnswer != nil {
		updates["groom_answer"] = nilIfEmpty(*p.GroomAnswer)
	}
	if p.BrideAnswer != nil {
		updates["bride_answer"] = nilIfEmpty(*p.BrideAnswer)
	}
	res := db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
