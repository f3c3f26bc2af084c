package vault

import (
	"context"
)

type Store interface {
	// Put creates a new vault record. ErrVaultAlreadyExists is returned if a
	// record for the address already exists.
	Put(ctx context.Context, record *Record) error

	// Save updates an existing vault record's spend limit state.
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a vault record by the vault account address.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByOwner gets a vault record by the owner's address.
	GetByOwner(ctx context.Context, owner string) (*Record, error)

	// Delete removes the vault record for the provided address. Deleting a
	// missing record is not an error.
	Delete(ctx context.Context, address string) error

	// Count returns the total number of vault records.
	Count(ctx context.Context) (uint64, error)
}
