// Package ledger defines the record store gateway: point operations on
// transaction records plus a live subscription that delivers full snapshots
// of one owner's records after every change.
package ledger

import (
	"context"

	"finease/internal/core"
)

// Ports for record store implementations.
type (
	// Store offers point operations over transaction records. Create assigns
	// ID and CreatedAt; lookups of unknown ids fail with core.ErrNotFound.
	Store interface {
		Create(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error)
		Update(ctx context.Context, rec core.TransactionRecord) error
		Delete(ctx context.Context, id string) error
		Get(ctx context.Context, id string) (core.TransactionRecord, error)
		List(ctx context.Context, ownerID string) ([]core.TransactionRecord, error)
	}

	// Subscriber delivers live snapshots for one owner. The initial snapshot
	// arrives immediately; a fresh one follows every committed change.
	Subscriber interface {
		Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
	}

	// Gateway is the full record store surface the application wires up.
	Gateway interface {
		Store
		Subscriber
	}
)
