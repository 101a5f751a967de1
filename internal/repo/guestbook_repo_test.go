package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

func TestCreateGuestbookEntry_HidesHash(t *testing.T) {
	db := newTestDB(t, &domain.GuestbookEntry{})
	ctx := context.Background()

	e, err := CreateGuestbookEntry(ctx, db, "김철수", "축하해", "hash-1")
	if err != nil {
		t.Fatalf("CreateGuestbookEntry: %v", err)
	}
	if e.ID == "" || e.SecretHash != "" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	got, err := GetGuestbookEntry(ctx, db, e.ID)
	if err != nil {
		t.Fatalf("GetGuestbookEntry: %v", err)
	}
	if got.Name != "김철수" || got.Message != "축하해" || got.SecretHash != "" {
		t.Fatalf("public view mismatch: %+v", got)
	}

	hash, err := GetGuestbookSecret(ctx, db, e.ID)
	if err != nil || hash != "hash-1" {
		t.Fatalf("GetGuestbookSecret = %q, %v", hash, err)
	}
}

func TestListGuestbookPage_OrderAndNoSecrets(t *testing.T) {
	db := newTestDB(t, &domain.GuestbookEntry{})
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"g1", "g2", "g3"} {
		row := &domain.GuestbookEntry{ID: id, Name: id, Message: "m", SecretHash: "h" + id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if n, err := CountGuestbook(ctx, db); err != nil || n != 3 {
		t.Fatalf("CountGuestbook = %d, %v", n, err)
	}
	list, err := ListGuestbookPage(ctx, db, 0, 10)
	if err != nil {
		t.Fatalf("ListGuestbookPage: %v", err)
	}
	if len(list) != 3 || list[0].ID != "g3" || list[2].ID != "g1" {
		t.Fatalf("unexpected order: %+v", list)
	}
	for _, e := range list {
		if e.SecretHash != "" {
			t.Fatalf("secret hash selected for %s", e.ID)
		}
	}
}

func TestDeleteGuestbookEntry(t *testing.T) {
	db := newTestDB(t, &domain.GuestbookEntry{})
	ctx := context.Background()

	e, err := CreateGuestbookEntry(ctx, db, "n", "m", "h")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := DeleteGuestbookEntry(ctx, db, e.ID); err != nil {
		t.Fatalf("DeleteGuestbookEntry: %v", err)
	}
	if _, err := GetGuestbookEntry(ctx, db, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry still present: %v", err)
	}
	if err := DeleteGuestbookEntry(ctx, db, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if _, err := GetGuestbookSecret(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing secret, got %v", err)
	}
}
