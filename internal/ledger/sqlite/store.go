// Package sqlite implements the record store gateway on a local SQLite
// database. Snapshots fan out to in-process subscriptions after every
// committed mutation; NotifyChanged covers writes made by other processes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finease/internal/core"
	"finease/internal/ledger"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[*ledger.Subscription]struct{}
}

var _ ledger.Gateway = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:   db,
		subs: make(map[*ledger.Subscription]struct{}),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, title, amount, kind, category, description, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Title, rec.Amount.String(), string(rec.Kind),
		rec.Category, rec.Description, rec.OccurredAt.Format(dateLayout),
		rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", rec.ID,
		"owner_id", rec.OwnerID,
		"kind", string(rec.Kind),
		"amount", rec.Amount.String())

	s.broadcast(ctx, rec.OwnerID)
	return rec, nil
}

func (s *Store) Update(ctx context.Context, rec core.TransactionRecord) error {
	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, amount = ?, kind = ?, category = ?, description = ?, occurred_at = ?
		 WHERE id = ?`,
		rec.Title, rec.Amount.String(), string(rec.Kind), rec.Category,
		rec.Description, rec.OccurredAt.Format(dateLayout), rec.ID)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	s.broadcast(ctx, existing.OwnerID)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.broadcast(ctx, existing.OwnerID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (core.TransactionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, amount, kind, category, description, occurred_at, created_at
		 FROM transactions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, amount, kind, category, description, occurred_at, created_at
		 FROM transactions WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := make([]core.TransactionRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Subscribe registers a live snapshot feed for one owner; the current state
// is delivered immediately.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*ledger.Subscription, error) {
	initial, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sub := ledger.NewSubscription(ownerID, s.remove)
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.Publish(initial)

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// NotifyChanged re-reads an owner's records and republishes them to live
// subscriptions. Called when another process reports a write on this owner.
func (s *Store) NotifyChanged(ctx context.Context, ownerID string) {
	s.broadcast(ctx, ownerID)
}

func (s *Store) remove(sub *ledger.Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (s *Store) broadcast(ctx context.Context, ownerID string) {
	s.mu.Lock()
	targets := make([]*ledger.Subscription, 0, len(s.subs))
	for sub := range s.subs {
		if sub.OwnerID() == ownerID {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	records, err := s.List(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build snapshot", "owner_id", ownerID, "error", err)
		streamErr := &core.StreamError{Kind: core.StreamNetworkError, Message: err.Error()}
		for _, sub := range targets {
			sub.Fail(streamErr)
		}
		return
	}

	for _, sub := range targets {
		sub.Publish(records)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.TransactionRecord, error) {
	var (
		rec        core.TransactionRecord
		amount     string
		kind       string
		occurredAt string
		createdAt  string
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Title, &amount, &kind,
		&rec.Category, &rec.Description, &occurredAt, &createdAt)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	// Malformed stored amounts coerce to zero instead of failing the whole
	// snapshot.
	rec.Amount = core.CoerceAmount(amount)
	rec.Kind = core.Kind(kind)
	if t, err := time.Parse(dateLayout, occurredAt); err == nil {
		rec.OccurredAt = t
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
