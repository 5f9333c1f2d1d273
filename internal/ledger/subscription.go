package ledger

import (
	"sync"

	"finease/internal/core"
)

// Snapshot is a full, self-consistent materialized list of one owner's
// current records. Seq increases monotonically within a subscription;
// consumers drop anything at or below the last sequence they applied.
// A non-nil Err marks a degraded delivery; Records is empty in that case.
type Snapshot struct {
	OwnerID string
	Seq     uint64
	Records []core.TransactionRecord
	Err     *core.StreamError
}

// Subscription is one owner's live snapshot feed. Delivery coalesces: when
// the consumer lags, queued state is replaced by the newest snapshot rather
// than buffered, so the consumer always converges on current state.
type Subscription struct {
	ownerID string

	mu     sync.Mutex
	seq    uint64
	closed bool

	ch        chan Snapshot
	closeOnce sync.Once
	onClose   func(*Subscription)
}

// NewSubscription is used by store implementations; onClose detaches the
// subscription from the store's fan-out set and may be nil.
func NewSubscription(ownerID string, onClose func(*Subscription)) *Subscription {
	return &Subscription{
		ownerID: ownerID,
		ch:      make(chan Snapshot, 1),
		onClose: onClose,
	}
}

// OwnerID returns the owner this subscription is scoped to.
func (s *Subscription) OwnerID() string {
	return s.ownerID
}

// Snapshots returns the delivery channel. It is closed by Close.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Publish stamps the next sequence number and delivers a snapshot,
// replacing any undelivered predecessor. No-op after Close.
func (s *Subscription) Publish(records []core.TransactionRecord) {
	s.deliver(records, nil)
}

// Fail delivers a stream error. The consumer keeps its last applied view.
func (s *Subscription) Fail(err *core.StreamError) {
	s.deliver(nil, err)
}

func (s *Subscription) deliver(records []core.TransactionRecord, streamErr *core.StreamError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	snap := Snapshot{
		OwnerID: s.ownerID,
		Seq:     s.seq,
		Records: records,
		Err:     streamErr,
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			// Drop the stale queued snapshot and retry with the new one.
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Close stops delivery and closes the snapshot channel. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.onClose != nil {
			s.onClose(s)
		}
		close(s.ch)
	})
}
