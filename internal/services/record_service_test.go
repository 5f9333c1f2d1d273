package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finease/internal/core"
	"finease/internal/ledger/memory"
)

func newService() (*RecordService, *memory.Store) {
	store := memory.New()
	return NewRecordService(store, nil), store
}

func draft(title string) core.TransactionRecord {
	return core.TransactionRecord{
		Title:      title,
		Amount:     decimal.NewFromInt(1200),
		Kind:       core.Expense,
		Category:   "Housing",
		OccurredAt: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateRecord(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	id, err := svc.CreateRecord(ctx, "owner-1", draft("Rent"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected assigned id")
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.OwnerID != "owner-1" {
		t.Fatalf("owner not set: %+v", rec)
	}
}

func TestCreateRecordValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.CreateRecord(ctx, "", draft("Rent")); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	bad := draft("Rent")
	bad.Amount = decimal.Zero
	bad.Category = ""
	_, err := svc.CreateRecord(ctx, "owner-1", bad)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !ve.Has(core.FieldAmount) || !ve.Has(core.FieldCategory) {
		t.Fatalf("expected amount and category rejected, got %v", ve.Fields)
	}
}

func TestUpdateRecordOwnership(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	id, _ := svc.CreateRecord(ctx, "owner-1", draft("Rent"))

	title := "Mortgage"
	patch := core.RecordPatch{Title: &title}

	if err := svc.UpdateRecord(ctx, id, "owner-2", patch); !errors.Is(err, core.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.UpdateRecord(ctx, "missing", "owner-1", patch); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.UpdateRecord(ctx, id, "owner-1", patch); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateRecordAppliesPatch(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	id, _ := svc.CreateRecord(ctx, "owner-1", draft("Rent"))

	title := "Mortgage"
	amount := decimal.NewFromInt(1500)
	if err := svc.UpdateRecord(ctx, id, "owner-1", core.RecordPatch{Title: &title, Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec, _ := store.Get(ctx, id)
	if rec.Title != "Mortgage" || rec.Amount.String() != "1500" {
		t.Fatalf("patch not applied: %+v", rec)
	}
	if rec.Category != "Housing" {
		t.Fatalf("unset field changed: %+v", rec)
	}
}

func TestUpdateRecordRejectsBadPatch(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	id, _ := svc.CreateRecord(ctx, "owner-1", draft("Rent"))

	neg := decimal.NewFromInt(-5)
	err := svc.UpdateRecord(ctx, id, "owner-1", core.RecordPatch{Amount: &neg})
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	id, _ := svc.CreateRecord(ctx, "owner-1", draft("Rent"))

	if err := svc.DeleteRecord(ctx, id, "owner-2"); !errors.Is(err, core.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.DeleteRecord(ctx, id, "owner-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("record still present: %v", err)
	}
	if err := svc.DeleteRecord(ctx, id, "owner-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

type captureEvents struct {
	ops []string
}

func (c *captureEvents) PublishRecordChanged(_ context.Context, _, op, _ string) error {
	c.ops = append(c.ops, op)
	return nil
}

func TestMutationsPublishChangeEvents(t *testing.T) {
	store := memory.New()
	events := &captureEvents{}
	svc := NewRecordService(store, events)
	ctx := context.Background()

	id, _ := svc.CreateRecord(ctx, "owner-1", draft("Rent"))
	title := "Mortgage"
	svc.UpdateRecord(ctx, id, "owner-1", core.RecordPatch{Title: &title})
	svc.DeleteRecord(ctx, id, "owner-1")

	want := []string{"create", "update", "delete"}
	if len(events.ops) != len(want) {
		t.Fatalf("expected %v, got %v", want, events.ops)
	}
	for i := range want {
		if events.ops[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events.ops)
		}
	}
}
