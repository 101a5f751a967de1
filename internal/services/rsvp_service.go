// Package services – RSVPService
//
// This file implements the RSVPService, which accepts attendance responses,
// lists them for the admin dashboard and computes the dashboard summary.
// Inputs are normalized before validation: a declined response is always
// stored with zero guest and child counts.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
)

// RSVPService implements the attendance-response use-cases.
type RSVPService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Feed receives an INSERT event for every new response. May be nil.
	Feed realtime.Publisher
	// IdempotencyTTL bounds how long an Idempotency-Key replays its record.
	IdempotencyTTL time.Duration
}

// Submit validates in and stores a new response. With a non-empty key a
// repeated call replays the first stored response and reports replayed=true.
func (s *RSVPService) Submit(ctx context.Context, in domain.RSVPInput, key string) (*domain.RSVP, bool, error) {
	tr := otel.Tracer("services/RSVPService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("rsvp.attending", string(in.Attending)),
			attribute.Bool("idempotent", key != ""),
		),
	)
	defer span.End()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	rec, replayed, err := submitOnce(ctx, s.DB, domain.TableRSVPs, key, s.IdempotencyTTL,
		func(tx *gorm.DB) (*domain.RSVP, string, error) {
			r, err := repo.CreateRSVP(ctx, tx, in)
			if err != nil {
				return nil, "", err
			}
			return r, r.ID, nil
		},
		func(id string) (*domain.RSVP, error) { return repo.GetRSVP(ctx, s.DB, id) },
	)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if !replayed {
		publish(ctx, s.Feed, domain.TableRSVPs, realtime.Insert, rec)
	}
	return rec, replayed, nil
}

// ListPage returns responses newest first with the total count.
func (s *RSVPService) ListPage(ctx context.Context, page, pageSize int) ([]domain.RSVP, int64, error) {
	tr := otel.Tracer("services/RSVPService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountRSVPs(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.RSVP{}, 0, nil
	}
	items, err := repo.ListRSVPsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Stats returns the row count and newest change time, for ETags.
func (s *RSVPService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.TableStats(ctx, s.DB, domain.TableRSVPs, false)
}

// Summary aggregates the admin dashboard numbers.
func (s *RSVPService) Summary(ctx context.Context) (domain.RSVPStats, error) {
	tr := otel.Tracer("services/RSVPService")
	ctx, span := tr.Start(ctx, "Summary")
	defer span.End()
	return repo.RSVPSummary(ctx, s.DB)
}
