package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// newTestDB opens a private in-memory database and migrates the given models.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "wedding.db")

	db, err := OpenSQLite(bad)
	if db != nil || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("OpenSQLite(%q) = %v, %v; want ErrNotExist", bad, db, err)
	}
}

func TestSqliteDSN(t *testing.T) {
	dsn := sqliteDSN("data/wedding.db")
	path, query, ok := strings.Cut(dsn, "?")
	if !ok || path != "data/wedding.db" {
		t.Fatalf("dsn = %q", dsn)
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if got := q["_pragma"]; len(got) != len(pragmas) || got[0] != "journal_mode(WAL)" {
		t.Fatalf("_pragma = %v", got)
	}
}

func TestOpenSQLite_EveryConnectionConfigured(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "wedding.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("MaxOpenConnections = %d", stats.MaxOpenConnections)
	}

	// Hold one connection so the pragma reads below run on a second one.
	held, err := sqlDB.Conn(context.Background())
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer held.Close()

	var journal string
	var busy, fk int
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journal); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busy); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if strings.ToLower(journal) != "wal" || busy != 5000 || fk != 1 {
		t.Fatalf("journal=%q busy=%d fk=%d", journal, busy, fk)
	}
}

func TestAutoMigrate_CreatesEveryTable(t *testing.T) {
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Idempotent on an existing schema.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
	for _, m := range Models() {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}

	now := time.Now().UTC()
	r := &domain.RSVP{ID: "r1", Name: "n", Attending: domain.Attending, GuestCount: 1, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("insert rsvp: %v", err)
	}
}
