package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// ErrDuplicate means a record for the same (scope, key) already exists.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the record for (scope, key) that is still valid at
// now, or ErrNotFound. Blank scopes and keys never match.
func GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(&domain.Idempotency{Scope: scope, Key: key}).
		Where("expires_at > ?", now).
		Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency remembers that key produced recordID in scope for ttl.
// A concurrent submit that got there first yields ErrDuplicate.
func CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, recordID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := domain.Idempotency{
		ID:        uuid.NewString(),
		Scope:     scope,
		Key:       key,
		RecordID:  recordID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(&rec).Error
	switch {
	case IsUniqueViolation(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// PurgeExpiredIdempotency deletes records that expired at or before now and
// reports how many went.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// uniqueMarkers are the plain-text forms drivers use for unique violations;
// glebarez/sqlite does not translate them to gorm.ErrDuplicatedKey.
var uniqueMarkers = []string{
	"unique constraint failed",
	"constraint failed: unique",
	"duplicate key",
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range uniqueMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
