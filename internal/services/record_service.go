package services

import (
	"context"
	"fmt"
	"log/slog"

	"finease/internal/core"
	"finease/internal/ledger"
)

// ChangePublisher broadcasts committed record mutations so other instances
// can refresh their subscriptions. A nil publisher disables broadcasting.
type ChangePublisher interface {
	PublishRecordChanged(ctx context.Context, ownerID, op, recordID string) error
}

// RecordService is the command boundary for record mutations. Writes are
// fire-and-reconcile: callers observe their effect through the next
// snapshot the store gateway delivers, never through the return value.
type RecordService struct {
	store  ledger.Store
	events ChangePublisher
}

func NewRecordService(store ledger.Store, events ChangePublisher) *RecordService {
	return &RecordService{
		store:  store,
		events: events,
	}
}

// CreateRecord validates and stores a new record for ownerID, returning the
// assigned id.
func (s *RecordService) CreateRecord(ctx context.Context, ownerID string, rec core.TransactionRecord) (string, error) {
	if ownerID == "" {
		return "", core.ErrNotAuthenticated
	}
	rec.OwnerID = ownerID
	if err := rec.Validate(); err != nil {
		return "", err
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}

	slog.InfoContext(ctx, "Record created",
		"id", created.ID,
		"owner_id", ownerID,
		"kind", string(created.Kind),
		"amount", created.Amount.String())

	s.publishChange(ctx, ownerID, "create", created.ID)
	return created.ID, nil
}

// GetRecord returns a single record after checking ownership. Fails with
// core.ErrNotFound for unknown ids and core.ErrNotOwner when the record
// belongs to someone else.
func (s *RecordService) GetRecord(ctx context.Context, id, ownerID string) (core.TransactionRecord, error) {
	if ownerID == "" {
		return core.TransactionRecord{}, core.ErrNotAuthenticated
	}
	return s.resolveOwned(ctx, id, ownerID)
}

// UpdateRecord applies a partial update to an existing record. Fails with
// core.ErrNotFound for unknown ids and core.ErrNotOwner when the record
// belongs to someone else.
func (s *RecordService) UpdateRecord(ctx context.Context, id, ownerID string, patch core.RecordPatch) error {
	if ownerID == "" {
		return core.ErrNotAuthenticated
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	existing, err := s.resolveOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.store.Update(ctx, patch.Apply(existing)); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	slog.InfoContext(ctx, "Record updated", "id", id, "owner_id", ownerID)
	s.publishChange(ctx, ownerID, "update", id)
	return nil
}

// DeleteRecord removes a record permanently after the same ownership and
// existence checks as UpdateRecord.
func (s *RecordService) DeleteRecord(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return core.ErrNotAuthenticated
	}
	if _, err := s.resolveOwned(ctx, id, ownerID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	slog.InfoContext(ctx, "Record deleted", "id", id, "owner_id", ownerID)
	s.publishChange(ctx, ownerID, "delete", id)
	return nil
}

func (s *RecordService) resolveOwned(ctx context.Context, id, ownerID string) (core.TransactionRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	if rec.OwnerID != ownerID {
		return core.TransactionRecord{}, core.ErrNotOwner
	}
	return rec, nil
}

func (s *RecordService) publishChange(ctx context.Context, ownerID, op, recordID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRecordChanged(ctx, ownerID, op, recordID); err != nil {
		// The local write already succeeded; broadcasting is best effort.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"op", op, "record_id", recordID, "error", err)
	}
}
