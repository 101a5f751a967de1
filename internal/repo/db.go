// Package repo implements the data persistence layer for the invitation
// records, backed by GORM over the pure-Go SQLite driver. This file opens
// the database and owns the schema.
package repo

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// pragmas go in the DSN so every pooled connection gets them, not only the
// first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
}

// sqliteDSN appends the pragmas to a database path.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenSQLite opens (or creates) the database file at path and registers the
// OpenTelemetry plugin, so every statement becomes a span under the request
// trace. The parent directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	// A missing directory otherwise surfaces as sqlite "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; a small pool keeps WAL readers busy.
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&domain.RSVP{},
		&domain.GuestbookEntry{},
		&domain.GuestPhoto{},
		&domain.Question{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates every table in Models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
