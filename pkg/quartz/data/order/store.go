package order

import (
	"context"

	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
)

type Store interface {
	// Put creates a new order record in the initiated state.
	// ErrOrderAlreadyExists is returned if a record for the address already
	// exists.
	Put(ctx context.Context, record *Record) error

	// MarkFulfilled transitions an initiated order to the fulfilled state.
	// ErrInvalidOrderState is returned if the order was already fulfilled or
	// cancelled.
	MarkFulfilled(ctx context.Context, address string) error

	// MarkCancelled transitions an initiated order to the cancelled state.
	// ErrInvalidOrderState is returned if the order was already fulfilled or
	// cancelled.
	MarkCancelled(ctx context.Context, address string) error

	// GetByAddress gets an order record by the order account address.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetAllByOwner gets all order records for the provided owner, in any
	// state.
	GetAllByOwner(ctx context.Context, owner string) ([]*Record, error)

	// GetAllReleased gets initiated order records whose release slot is at or
	// before the provided slot.
	GetAllReleased(ctx context.Context, currentSlot uint64, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetCountByState gets the count of records in the provided state.
	GetCountByState(ctx context.Context, state State) (uint64, error)
}
