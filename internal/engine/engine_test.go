package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finease/internal/core"
	"finease/internal/ledger"
	"finease/internal/ledger/memory"
)

type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*ledger.Subscription
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, ownerID string) (*ledger.Subscription, error) {
	sub := ledger.NewSubscription(ownerID, nil)
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (f *fakeSubscriber) last() *ledger.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func record(owner, title string, kind core.Kind, amount int64) core.TransactionRecord {
	return core.TransactionRecord{
		OwnerID:    owner,
		Title:      title,
		Amount:     decimal.NewFromInt(amount),
		Kind:       kind,
		Category:   "General",
		OccurredAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// waitView blocks until the published view satisfies cond.
func waitView(t *testing.T, e *Engine, cond func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		changed := e.Changed()
		v := e.View()
		if cond(v) {
			return v
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("timed out waiting for view, last: %+v", v)
		}
	}
}

func TestAttachRequiresOwner(t *testing.T) {
	e := New(&fakeSubscriber{})
	if err := e.Attach(context.Background(), ""); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestEndToEndSummary(t *testing.T) {
	store := memory.New()
	e := New(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer e.Detach()

	store.Create(ctx, record("owner-1", "Salary", core.Income, 5000))
	store.Create(ctx, record("owner-1", "Rent", core.Expense, 1200))

	v := waitView(t, e, func(v View) bool { return len(v.Records) == 2 })
	if v.Summary.TotalIncome.String() != "5000" ||
		v.Summary.TotalExpense.String() != "1200" ||
		v.Summary.TotalBalance.String() != "3800" {
		t.Fatalf("summary: %+v", v.Summary)
	}
	if len(v.Chart) != 2 {
		t.Fatalf("chart: got %d points", len(v.Chart))
	}
}

func TestSnapshotReplaceIsIdempotent(t *testing.T) {
	subs := &fakeSubscriber{}
	e := New(subs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer e.Detach()

	records := []core.TransactionRecord{
		record("owner-1", "Salary", core.Income, 5000),
		record("owner-1", "Rent", core.Expense, 1200),
	}

	sub := subs.last()
	sub.Publish(records)
	first := waitView(t, e, func(v View) bool { return len(v.Records) == 2 })

	// Redelivering the same full state must not accumulate.
	sub.Publish(records)
	second := waitView(t, e, func(v View) bool { return v.Seq > first.Seq })

	if !second.Summary.TotalIncome.Equal(first.Summary.TotalIncome) ||
		!second.Summary.TotalExpense.Equal(first.Summary.TotalExpense) ||
		!second.Summary.TotalBalance.Equal(first.Summary.TotalBalance) {
		t.Fatalf("summary drifted on redelivery: %+v vs %+v", first.Summary, second.Summary)
	}
	if len(second.Records) != len(first.Records) {
		t.Fatalf("record count drifted: %d vs %d", len(first.Records), len(second.Records))
	}
}

func TestOutOfOrderSnapshotsDiscarded(t *testing.T) {
	e := New(&fakeSubscriber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer e.Detach()

	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	newer := ledger.Snapshot{OwnerID: "owner-1", Seq: 5, Records: []core.TransactionRecord{
		record("owner-1", "Current", core.Income, 100),
	}}
	older := ledger.Snapshot{OwnerID: "owner-1", Seq: 3, Records: []core.TransactionRecord{
		record("owner-1", "Stale", core.Income, 999),
	}}

	e.apply(gen, newer)
	e.apply(gen, older)

	v := e.View()
	if v.Seq != 5 {
		t.Fatalf("expected seq 5, got %d", v.Seq)
	}
	if len(v.Records) != 1 || v.Records[0].Title != "Current" {
		t.Fatalf("stale snapshot applied: %+v", v.Records)
	}
}

func TestStreamErrorKeepsLastGoodView(t *testing.T) {
	subs := &fakeSubscriber{}
	e := New(subs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer e.Detach()

	sub := subs.last()
	sub.Publish([]core.TransactionRecord{record("owner-1", "Salary", core.Income, 5000)})
	waitView(t, e, func(v View) bool { return len(v.Records) == 1 })

	sub.Fail(&core.StreamError{Kind: core.StreamPermissionDenied, Message: "revoked"})
	v := waitView(t, e, func(v View) bool { return v.StreamErr != nil })
	if len(v.Records) != 1 || v.Summary.TotalIncome.String() != "5000" {
		t.Fatalf("last-known-good view lost: %+v", v)
	}

	// Recovery clears the error.
	sub.Publish([]core.TransactionRecord{record("owner-1", "Salary", core.Income, 5000)})
	waitView(t, e, func(v View) bool { return v.StreamErr == nil })
}

func TestDetachAttachRace(t *testing.T) {
	e := New(&fakeSubscriber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-a"); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	e.mu.Lock()
	staleGen := e.gen
	e.mu.Unlock()

	e.Detach()
	if err := e.Attach(ctx, "owner-b"); err != nil {
		t.Fatalf("attach b: %v", err)
	}
	defer e.Detach()

	// A snapshot for owner-a that was in flight across the switch.
	e.apply(staleGen, ledger.Snapshot{OwnerID: "owner-a", Seq: 1, Records: []core.TransactionRecord{
		record("owner-a", "Stale", core.Income, 999),
	}})

	v := e.View()
	if v.OwnerID != "owner-b" {
		t.Fatalf("expected owner-b view, got %q", v.OwnerID)
	}
	for _, r := range v.Records {
		if r.OwnerID != "owner-b" {
			t.Fatalf("foreign record leaked into view: %+v", r)
		}
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	e := New(&fakeSubscriber{})
	e.Detach()
	e.Detach()
	if v := e.View(); v.OwnerID != "" || len(v.Records) != 0 {
		t.Fatalf("expected empty view, got %+v", v)
	}
}

func TestRecordsOrderedNewestFirst(t *testing.T) {
	subs := &fakeSubscriber{}
	e := New(subs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Attach(ctx, "owner-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer e.Detach()

	old := record("owner-1", "old", core.Income, 1)
	old.ID = "1"
	old.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := record("owner-1", "mid", core.Income, 1)
	mid.ID = "2"
	mid.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	new_ := record("owner-1", "new", core.Income, 1)
	new_.ID = "3"
	new_.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	subs.last().Publish([]core.TransactionRecord{old, new_, mid})

	v := waitView(t, e, func(v View) bool { return len(v.Records) == 3 })
	if v.Records[0].Title != "new" || v.Records[1].Title != "mid" || v.Records[2].Title != "old" {
		t.Fatalf("wrong order: %s %s %s", v.Records[0].Title, v.Records[1].Title, v.Records[2].Title)
	}
}
