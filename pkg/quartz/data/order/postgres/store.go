package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed order.Store
func New(db *sql.DB) order.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements order.Store.Put
func (s *store) Put(ctx context.Context, record *order.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbPut(ctx, s.db); err != nil {
		return err
	}

	res := fromModel(model)
	res.CopyTo(record)

	return nil
}

// MarkFulfilled implements order.Store.MarkFulfilled
func (s *store) MarkFulfilled(ctx context.Context, address string) error {
	return dbMarkState(ctx, s.db, address, order.StateFulfilled)
}

// MarkCancelled implements order.Store.MarkCancelled
func (s *store) MarkCancelled(ctx context.Context, address string) error {
	return dbMarkState(ctx, s.db, address, order.StateCancelled)
}

// GetByAddress implements order.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*order.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetAllByOwner implements order.Store.GetAllByOwner
func (s *store) GetAllByOwner(ctx context.Context, owner string) ([]*order.Record, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}

	res := make([]*order.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetAllReleased implements order.Store.GetAllReleased
func (s *store) GetAllReleased(ctx context.Context, currentSlot uint64, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*order.Record, error) {
	models, err := dbGetAllReleased(ctx, s.db, currentSlot, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*order.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetCountByState implements order.Store.GetCountByState
func (s *store) GetCountByState(ctx context.Context, state order.State) (uint64, error) {
	return dbGetCountByState(ctx, s.db, state)
}
