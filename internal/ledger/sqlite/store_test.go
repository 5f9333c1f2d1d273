package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finease/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(owner string) core.TransactionRecord {
	return core.TransactionRecord{
		OwnerID:     owner,
		Title:       "Groceries",
		Amount:      decimal.RequireFromString("75.50"),
		Kind:        core.Expense,
		Category:    "food",
		Description: "weekly shop",
		OccurredAt:  time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRecord("owner-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() assigned no id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Create() assigned no creation time")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Groceries" || got.Category != "food" {
		t.Errorf("Get() = %+v, want stored fields back", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("75.50")) {
		t.Errorf("Get() amount = %s, want 75.50", got.Amount)
	}
	if got.Kind != core.Expense {
		t.Errorf("Get() kind = %q, want expense", got.Kind)
	}
	if !got.OccurredAt.Equal(time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Get() occurredAt = %v", got.OccurredAt)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want core.ErrNotFound", err)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRecord("owner-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.Title = "Restaurant"
	created.Amount = decimal.RequireFromString("120")
	if err := store.Update(ctx, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Restaurant" || !got.Amount.Equal(decimal.RequireFromString("120")) {
		t.Errorf("Get() after update = %+v", got)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want core.ErrNotFound", err)
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want core.ErrNotFound", err)
	}
}

func TestStore_ListScopesByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testRecord("owner-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, testRecord("owner-2")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	records, err := store.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(records))
	}
	if records[0].OwnerID != "owner-1" {
		t.Errorf("List() leaked record of %q", records[0].OwnerID)
	}
}

func TestStore_SubscribeDeliversSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := store.Subscribe(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Initial snapshot is empty.
	select {
	case snap := <-sub.Snapshots():
		if len(snap.Records) != 0 {
			t.Errorf("initial snapshot has %d records, want 0", len(snap.Records))
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	if _, err := store.Create(ctx, testRecord("owner-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	select {
	case snap := <-sub.Snapshots():
		if len(snap.Records) != 1 {
			t.Errorf("snapshot after create has %d records, want 1", len(snap.Records))
		}
		if snap.Seq == 0 {
			t.Error("snapshot seq not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}
}

func TestStore_CoercesMalformedAmount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRecord("owner-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Corrupt the stored amount directly; reads must coerce it to zero
	// instead of failing.
	if _, err := store.db.ExecContext(ctx,
		`UPDATE transactions SET amount = 'garbage' WHERE id = ?`, created.ID); err != nil {
		t.Fatalf("corrupt amount: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Amount.IsZero() {
		t.Errorf("Get() amount = %s, want 0", got.Amount)
	}
}
