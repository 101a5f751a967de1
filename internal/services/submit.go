package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
	"github.com/tbourn/go-wedding-backend/internal/utils"
)

// defaultIdempotencyTTL applies when a service is built without a TTL.
const defaultIdempotencyTTL = 24 * time.Hour

// submitOnce inserts a record and, when key is set, an idempotency record
// in the same transaction. A key seen before replays the stored record via
// load instead of inserting again; the bool result reports a replay.
func submitOnce[T any](
	ctx context.Context,
	db *gorm.DB,
	scope, key string,
	ttl time.Duration,
	create func(tx *gorm.DB) (*T, string, error),
	load func(id string) (*T, error),
) (*T, bool, error) {
	if key == "" {
		rec, _, err := create(db)
		return rec, false, err
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	replay := func() (*T, bool, error) {
		idem, err := repo.GetIdempotency(ctx, db, scope, key, time.Now().UTC())
		if err != nil {
			return nil, false, err
		}
		rec, err := load(idem.RecordID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrIdempotencyConflict
		}
		return rec, err == nil, err
	}

	rec, replayed, err := replay()
	switch {
	case err == nil:
		return rec, replayed, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, false, err
	}

	var out *T
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, id, err := create(tx)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, scope, key, id, http.StatusCreated, ttl); err != nil {
			return err
		}
		out = r
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		return replay()
	}
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// publish emits a change-feed event after a commit. Feed failures are
// logged and never fail the write that triggered them.
func publish(ctx context.Context, feed realtime.Publisher, table string, typ realtime.EventType, record any) {
	if feed == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, record)
	if err == nil {
		err = feed.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("table", table).Str("type", string(typ)).Msg("feed publish failed")
	}
}

// pageBounds converts a 1-based page into an offset with defaults applied.
func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	return utils.PageOffset(page, pageSize), pageSize
}

// RunIdempotencyJanitor deletes expired idempotency records every interval
// until ctx is cancelled.
func RunIdempotencyJanitor(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency records expired")
			}
		}
	}
}
