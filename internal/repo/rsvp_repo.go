// Package repo implements the data persistence layer for domain entities,
// backed by GORM.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound).
//   - Other DB errors (constraint violations, connectivity) are propagated raw.
//
// Listing order is newest first (created_at DESC, id DESC) everywhere except
// for approved questions, which read oldest first like a conversation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

const newestFirst = "created_at DESC, id DESC"

// CreateRSVP inserts a response built from an already normalized input.
// An empty message is stored as NULL.
func CreateRSVP(ctx context.Context, db *gorm.DB, in domain.RSVPInput) (*domain.RSVP, error) {
	now := time.Now().UTC()
	r := &domain.RSVP{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Attending:  in.Attending,
		GuestCount: in.GuestCount,
		ChildCount: in.ChildCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Message != "" {
		msg := in.Message
		r.Message = &msg
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRSVP fetches a single response by id.
func GetRSVP(ctx context.Context, db *gorm.DB, id string) (*domain.RSVP, error) {
	var r domain.RSVP
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRSVPs returns the number of stored responses.
func CountRSVPs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.RSVP{}).Count(&total).Error
	return total, err
}

// ListRSVPsPage returns a page of responses, newest first.
func ListRSVPsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.RSVP, error) {
	var out []domain.RSVP
	err := db.WithContext(ctx).
		Order(newestFirst).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
