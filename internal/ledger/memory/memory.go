// Package memory implements the record store gateway in process memory.
// It backs tests and the default development backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"finease/internal/core"
	"finease/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	records map[string]core.TransactionRecord
	subs    map[*ledger.Subscription]struct{}
	now     func() time.Time
}

var _ ledger.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{
		records: make(map[string]core.TransactionRecord),
		subs:    make(map[*ledger.Subscription]struct{}),
		now:     time.Now,
	}
}

// Create assigns id and creation time, stores the record and fans out a
// fresh snapshot to the owner's subscriptions.
func (s *Store) Create(_ context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	s.mu.Lock()
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.broadcast(rec.OwnerID)
	return rec, nil
}

func (s *Store) Update(_ context.Context, rec core.TransactionRecord) error {
	s.mu.Lock()
	prev, ok := s.records[rec.ID]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	// Immutable fields always come from the stored record.
	rec.OwnerID = prev.OwnerID
	rec.CreatedAt = prev.CreatedAt
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.broadcast(rec.OwnerID)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	delete(s.records, id)
	s.mu.Unlock()

	s.broadcast(rec.OwnerID)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return core.TransactionRecord{}, core.ErrNotFound
	}
	return rec, nil
}

func (s *Store) List(_ context.Context, ownerID string) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerRecordsLocked(ownerID), nil
}

// Subscribe registers a snapshot feed for one owner and delivers the current
// state immediately. The subscription closes when ctx is cancelled or Close
// is called, whichever comes first.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*ledger.Subscription, error) {
	sub := ledger.NewSubscription(ownerID, s.remove)

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	initial := s.ownerRecordsLocked(ownerID)
	s.mu.Unlock()

	sub.Publish(initial)

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// NotifyChanged re-broadcasts the owner's current state. Used when a change
// made by another process instance is announced over the message bus.
func (s *Store) NotifyChanged(_ context.Context, ownerID string) {
	s.broadcast(ownerID)
}

func (s *Store) remove(sub *ledger.Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (s *Store) broadcast(ownerID string) {
	s.mu.Lock()
	records := s.ownerRecordsLocked(ownerID)
	targets := make([]*ledger.Subscription, 0, len(s.subs))
	for sub := range s.subs {
		if sub.OwnerID() == ownerID {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.Publish(records)
	}
}

// ownerRecordsLocked copies the owner's records in map iteration order;
// consumers must not rely on any particular ordering.
func (s *Store) ownerRecordsLocked(ownerID string) []core.TransactionRecord {
	out := make([]core.TransactionRecord, 0)
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out
}
