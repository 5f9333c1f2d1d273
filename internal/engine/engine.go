// Package engine maintains the derived view over one owner's live-updating
// transaction records: aggregate totals, the ordered record list and the
// chart series, rebuilt from every snapshot the store gateway delivers.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"finease/internal/core"
	"finease/internal/ledger"
)

// View is the engine's atomically published output. Consumers treat it as
// read-only; a new View replaces the old one wholesale, never field by field.
type View struct {
	OwnerID string
	Summary core.Summary
	// Records are ordered newest first by CreatedAt, ties broken by ID.
	Records []core.TransactionRecord
	Chart   []core.ChartPoint
	// Seq is the sequence of the snapshot this view was built from.
	Seq uint64
	// StreamErr is set while the subscription is degraded. The rest of the
	// view is the last-known-good state, not cleared.
	StreamErr *core.StreamError
}

// Engine observes one owner's records at a time. Attach switches owners;
// a snapshot that raced a Detach or owner switch is discarded, never applied
// under the new owner's identity.
type Engine struct {
	subscriber ledger.Subscriber

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	sub     *ledger.Subscription
	view    View
	lastSeq uint64
	changed chan struct{}
}

func New(subscriber ledger.Subscriber) *Engine {
	return &Engine{
		subscriber: subscriber,
		changed:    make(chan struct{}),
	}
}

// Attach begins observing ownerID's records, first fully detaching any prior
// subscription. Fails with core.ErrNotAuthenticated when no owner id is
// available. The subscription ends when ctx is cancelled or Detach is called.
func (e *Engine) Attach(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return core.ErrNotAuthenticated
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := e.subscriber.Subscribe(subCtx, ownerID)
	if err != nil {
		cancel()
		return err
	}

	e.mu.Lock()
	e.detachLocked()
	e.gen++
	gen := e.gen
	e.cancel = cancel
	e.sub = sub
	e.lastSeq = 0
	e.publishLocked(View{OwnerID: ownerID})
	e.mu.Unlock()

	go e.pump(subCtx, gen, sub)

	slog.InfoContext(ctx, "Engine attached", "owner_id", ownerID)
	return nil
}

// Detach stops observing and resets the view. Safe to call when not
// attached, and safe against a snapshot still in flight: the generation
// bump makes any late delivery a no-op.
func (e *Engine) Detach() {
	e.mu.Lock()
	e.gen++
	e.detachLocked()
	e.publishLocked(View{})
	e.mu.Unlock()
}

func (e *Engine) detachLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.sub != nil {
		e.sub.Close()
		e.sub = nil
	}
	e.lastSeq = 0
}

// View returns the current derived view. The contained slices are shared
// and must not be mutated by callers.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Changed returns a channel closed on the next view publication. Callers
// re-read View and call Changed again after each closure.
func (e *Engine) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

func (e *Engine) pump(ctx context.Context, gen uint64, sub *ledger.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			e.apply(gen, snap)
		}
	}
}

func (e *Engine) apply(gen uint64, snap ledger.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A detach or owner switch happened after this snapshot was sent.
	if gen != e.gen {
		return
	}

	if snap.Err != nil {
		slog.Warn("Snapshot stream degraded",
			"owner_id", snap.OwnerID,
			"kind", string(snap.Err.Kind),
			"error", snap.Err.Message)
		v := e.view
		v.StreamErr = snap.Err
		e.publishLocked(v)
		return
	}

	// The gateway promises in-order delivery; guard anyway.
	if snap.Seq <= e.lastSeq {
		return
	}
	e.lastSeq = snap.Seq

	records := orderRecords(snap.Records)
	e.publishLocked(View{
		OwnerID: snap.OwnerID,
		Summary: core.Summarize(records),
		Records: records,
		Chart:   core.ChartSeries(records),
		Seq:     snap.Seq,
	})
}

func (e *Engine) publishLocked(v View) {
	e.view = v
	close(e.changed)
	e.changed = make(chan struct{})
}

// orderRecords copies and sorts newest first; snapshot delivery order is
// unspecified by the gateway contract.
func orderRecords(records []core.TransactionRecord) []core.TransactionRecord {
	out := append([]core.TransactionRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
