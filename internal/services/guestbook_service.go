// Package services – GuestbookService
//
// This file implements the guestbook: posting messages, listing them without
// their deletion secrets, and the deletion gate that only removes an entry
// when the caller supplies the secret chosen when it was posted. Secrets are
// stored as bcrypt hashes.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
)

// GuestbookService implements the guestbook use-cases.
type GuestbookService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Feed receives an INSERT event for every new entry. May be nil.
	Feed realtime.Publisher
	// IdempotencyTTL bounds how long an Idempotency-Key replays its record.
	IdempotencyTTL time.Duration
	// HashCost is the bcrypt cost; values <= 0 use bcrypt.DefaultCost.
	HashCost int
}

// Post validates in, hashes the secret and stores the entry. The returned
// entry never carries the hash.
func (s *GuestbookService) Post(ctx context.Context, in domain.GuestbookInput, key string) (*domain.GuestbookEntry, bool, error) {
	tr := otel.Tracer("services/GuestbookService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(attribute.Bool("idempotent", key != "")),
	)
	defer span.End()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	cost := s.HashCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Secret), cost)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	rec, replayed, err := submitOnce(ctx, s.DB, domain.TableGuestbook, key, s.IdempotencyTTL,
		func(tx *gorm.DB) (*domain.GuestbookEntry, string, error) {
			e, err := repo.CreateGuestbookEntry(ctx, tx, in.Name, in.Message, string(hash))
			if err != nil {
				return nil, "", err
			}
			return e, e.ID, nil
		},
		func(id string) (*domain.GuestbookEntry, error) { return repo.GetGuestbookEntry(ctx, s.DB, id) },
	)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if !replayed {
		publish(ctx, s.Feed, domain.TableGuestbook, realtime.Insert, rec)
	}
	return rec, replayed, nil
}

// ListPage returns entries newest first with the total count.
func (s *GuestbookService) ListPage(ctx context.Context, page, pageSize int) ([]domain.GuestbookEntry, int64, error) {
	tr := otel.Tracer("services/GuestbookService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountGuestbook(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.GuestbookEntry{}, 0, nil
	}
	items, err := repo.ListGuestbookPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Stats returns the row count and newest change time, for ETags.
func (s *GuestbookService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.TableStats(ctx, s.DB, domain.TableGuestbook, false)
}

// Delete removes entry id when secret matches the stored one.
//
// Errors:
//   - ErrGuestbookNotFound when no such entry exists (or it vanished before
//     the delete ran).
//   - ErrSecretMismatch on any difference; nothing is deleted.
//   - Any other error is a store failure.
func (s *GuestbookService) Delete(ctx context.Context, id, secret string) error {
	tr := otel.Tracer("services/GuestbookService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("guestbook.id", id)),
	)
	defer span.End()

	hash, err := repo.GetGuestbookSecret(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrGuestbookNotFound
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	if len(secret) > domain.MaxSecretLen {
		return ErrSecretMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrSecretMismatch
		}
		span.RecordError(err)
		return err
	}

	if err := repo.DeleteGuestbookEntry(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrGuestbookNotFound
		}
		span.RecordError(err)
		return err
	}
	return nil
}
