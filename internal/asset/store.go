package asset

import (
	"context"
)

// Store is the asset record store shared by the lifecycle, ledger,
// verification, and revenue services.
//
// Update runs mutate with the asset's record exclusively held: the
// in-memory store keeps its lock for the closure, postgres runs it
// inside a row-locking transaction. Either every effect of mutate is
// applied or, when mutate errors, none is. This is what makes the
// multi-field invariants (split sum, balance accounting) safe without
// callers holding their own locks.
type Store interface {
	Create(ctx context.Context, a *Asset) error
	Find(ctx context.Context, id uint64) (*Asset, error)
	Update(ctx context.Context, id uint64, mutate func(*Asset) error) (*Asset, error)

	// NextID hands out the next sequential asset id.
	NextID(ctx context.Context) (uint64, error)
}

// PendingStore holds PendingVerification records keyed by the request id
// the external network assigned.
//
// Take atomically loads and deletes the record, which is the single-use
// guarantee fulfill relies on: the second delivery of the same request
// id observes sentinel.ErrNotFound.
type PendingStore interface {
	Put(ctx context.Context, requestID string, pending PendingVerification) error
	Take(ctx context.Context, requestID string) (PendingVerification, error)
}
