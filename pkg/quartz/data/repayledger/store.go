package repayledger

import (
	"context"
)

type Store interface {
	// Put creates a new ledger record. ErrLedgerAlreadyExists is returned if
	// a record for the address already exists.
	Put(ctx context.Context, record *Record) error

	// Save updates an existing ledger record's balance snapshots.
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a ledger record by the ledger account address.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// Delete removes the ledger record for the provided address. Deleting a
	// missing record is not an error.
	Delete(ctx context.Context, address string) error

	// Count returns the total number of ledger records.
	Count(ctx context.Context) (uint64, error)
}
