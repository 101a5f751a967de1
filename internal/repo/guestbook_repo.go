package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// guestbookPublicColumns is every column except the secret hash. Read paths
// select only these so the hash never leaves the repository.
var guestbookPublicColumns = []string{"id", "name", "message", "created_at"}

// CreateGuestbookEntry inserts a guestbook entry. secretHash must already be
// hashed; the returned entry has SecretHash cleared.
func CreateGuestbookEntry(ctx context.Context, db *gorm.DB, name, message, secretHash string) (*domain.GuestbookEntry, error) {
	e := &domain.GuestbookEntry{
		ID:         uuid.NewString(),
		Name:       name,
		Message:    message,
		SecretHash: secretHash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	e.SecretHash = ""
	return e, nil
}

// GetGuestbookEntry fetches the public view of one entry.
func GetGuestbookEntry(ctx context.Context, db *gorm.DB, id string) (*domain.GuestbookEntry, error) {
	var e domain.GuestbookEntry
	err := db.WithContext(ctx).
		Select(guestbookPublicColumns).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetGuestbookSecret returns the stored secret hash of one entry.
func GetGuestbookSecret(ctx context.Context, db *gorm.DB, id string) (string, error) {
	var e domain.GuestbookEntry
	err := db.WithContext(ctx).
		Select("id", "secret_hash").
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return "", err
	}
	return e.SecretHash, nil
}

// CountGuestbook returns the number of entries.
func CountGuestbook(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.GuestbookEntry{}).Count(&total).Error
	return total, err
}

// ListGuestbookPage returns a page of entries, newest first, without secrets.
func ListGuestbookPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.GuestbookEntry, error) {
	var out []domain.GuestbookEntry
	err := db.WithContext(ctx).
		Select(guestbookPublicColumns).
		Order(newestFirst).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteGuestbookEntry removes an entry permanently. It returns ErrNotFound
// when no row matched.
func DeleteGuestbookEntry(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.GuestbookEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
