package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// CreatePhoto inserts photo metadata. ID and CreatedAt are assigned when empty.
func CreatePhoto(ctx context.Context, db *gorm.DB, p *domain.GuestPhoto) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// CountPhotos returns the number of stored photos.
func CountPhotos(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.GuestPhoto{}).Count(&total).Error
	return total, err
}

// ListPhotosPage returns a page of photos, newest first.
func ListPhotosPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.GuestPhoto, error) {
	var out []domain.GuestPhoto
	err := db.WithContext(ctx).
		Order(newestFirst).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
