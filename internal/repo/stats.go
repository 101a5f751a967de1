package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// latestColumn is the timestamp that changes whenever a visible row of the
// table changes. Guestbook entries and photos are immutable.
var latestColumn = map[string]string{
	domain.TableRSVPs:     "updated_at",
	domain.TableGuestbook: "created_at",
	domain.TablePhotos:    "created_at",
	domain.TableQuestions: "updated_at",
}

// TableStats returns the row count of table and the newest change
// timestamp, used for weak ETags on list endpoints. approvedOnly applies to
// the questions table only. When the table is empty latest is nil.
func TableStats(ctx context.Context, db *gorm.DB, table string, approvedOnly bool) (count int64, latest *time.Time, err error) {
	col, ok := latestColumn[table]
	if !ok {
		return 0, nil, fmt.Errorf("unknown table %q", table)
	}
	scope := func() *gorm.DB {
		q := db.WithContext(ctx).Table(table)
		if table == domain.TableQuestions && approvedOnly {
			q = q.Where("is_approved = ?", true)
		}
		return q
	}

	if err = scope().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Order+Limit instead of MAX(): SQLite returns MAX() of a DATETIME as TEXT.
	var ts []time.Time
	if err = scope().Order(col+" DESC").Limit(1).Pluck(col, &ts).Error; err != nil {
		return 0, nil, err
	}
	if len(ts) == 0 {
		return count, nil, nil
	}
	return count, &ts[0], nil
}

// RSVPSummary aggregates the admin dashboard numbers in one query. Adult
// and child totals only count guests who are attending.
func RSVPSummary(ctx context.Context, db *gorm.DB) (domain.RSVPStats, error) {
	var row struct {
		Total        int64
		Attending    int64
		NotAttending int64
		Adults       int64
		Children     int64
	}
	err := db.WithContext(ctx).
		Model(&domain.RSVP{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN attending = 'yes' THEN 1 ELSE 0 END), 0) AS attending,
			COALESCE(SUM(CASE WHEN attending = 'no' THEN 1 ELSE 0 END), 0) AS not_attending,
			COALESCE(SUM(CASE WHEN attending = 'yes' THEN guest_count ELSE 0 END), 0) AS adults,
			COALESCE(SUM(CASE WHEN attending = 'yes' THEN child_count ELSE 0 END), 0) AS children`).
		Scan(&row).Error
	if err != nil {
		return domain.RSVPStats{}, err
	}
	return domain.RSVPStats{
		TotalResponses: row.Total,
		Attending:      row.Attending,
		NotAttending:   row.NotAttending,
		TotalAdults:    row.Adults,
		TotalChildren:  row.Children,
	}, nil
}
