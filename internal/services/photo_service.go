// Package services – PhotoService
//
// This file implements guest photo uploads. Every image in a batch is
// decoded and compressed before anything is stored, so a batch with an
// unreadable file stores nothing. Compressed JPEGs go to the blob store
// under "<bucket>/<unix-ms>_<random>.jpg" and a row is inserted per photo.
// Storage itself is per photo: if a row cannot be written its blob is
// removed and the photos stored before it stay stored and published.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/media"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
)

// DefaultUploader labels photos uploaded without a name.
const DefaultUploader = "Anonymous"

// PhotoFile is one uploaded image.
type PhotoFile struct {
	Filename string
	Body     io.Reader
}

// PhotoService implements the photo upload pipeline.
type PhotoService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Feed receives an INSERT event per stored photo. May be nil.
	Feed realtime.Publisher
	// Store holds the compressed images.
	Store media.BlobStore
	// Bucket is the top-level folder for guest photos.
	Bucket string
	// Compress configures the image pipeline.
	Compress media.Options
	// MaxBatch caps files per upload; values <= 0 mean 10.
	MaxBatch int
	// Now is the clock used for object names; nil means time.Now.
	Now func() time.Time
}

// Upload compresses and stores files, returning the stored photos in
// upload order.
func (s *PhotoService) Upload(ctx context.Context, uploadedBy string, files []PhotoFile) ([]domain.GuestPhoto, error) {
	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "Upload",
		trace.WithAttributes(attribute.Int("files", len(files))),
	)
	defer span.End()

	maxBatch := s.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 10
	}
	switch {
	case len(files) == 0:
		return nil, ErrNoFiles
	case len(files) > maxBatch:
		return nil, ErrTooManyFiles
	}

	uploadedBy = domain.CleanText(uploadedBy)
	if uploadedBy == "" {
		uploadedBy = DefaultUploader
	}
	if utf8.RuneCountInString(uploadedBy) > domain.MaxNameLen {
		return nil, &domain.ValidationError{Field: "uploaded_by", Reason: fmt.Sprintf("must be at most %d characters", domain.MaxNameLen)}
	}

	results := make([]*media.Result, len(files))
	for i, f := range files {
		res, err := media.Compress(f.Body, s.Compress)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedFormat) || errors.Is(err, media.ErrTooManyPixels) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, f.Filename)
			}
			span.RecordError(err)
			return nil, err
		}
		results[i] = res
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	out := make([]domain.GuestPhoto, 0, len(results))
	for _, res := range results {
		name := media.ObjectName(now(), res.Ext())
		url, err := s.Store.Upload(ctx, s.Bucket, name, res.Data)
		if err != nil {
			span.RecordError(err)
			return out, err
		}
		p := domain.GuestPhoto{
			FilePath:   s.Bucket + "/" + name,
			URL:        url,
			UploadedBy: uploadedBy,
			Width:      res.Width,
			Height:     res.Height,
			Bytes:      int64(len(res.Data)),
		}
		if err := repo.CreatePhoto(ctx, s.DB, &p); err != nil {
			span.RecordError(err)
			if rmErr := s.Store.Remove(context.WithoutCancel(ctx), s.Bucket, name); rmErr != nil {
				log.Warn().Err(rmErr).Str("object", p.FilePath).Msg("orphaned photo blob")
			}
			return out, err
		}
		publish(ctx, s.Feed, domain.TablePhotos, realtime.Insert, p)
		out = append(out, p)
	}
	return out, nil
}

// ListPage returns photos newest first with the total count.
func (s *PhotoService) ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestPhoto, int64, error) {
	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountPhotos(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.GuestPhoto{}, 0, nil
	}
	items, err := repo.ListPhotosPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Stats returns the row count and newest change time, for ETags.
func (s *PhotoService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.TableStats(ctx, s.DB, domain.TablePhotos, false)
}
