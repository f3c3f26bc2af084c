package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed repayledger.Store
func New(db *sql.DB) repayledger.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements repayledger.Store.Put
func (s *store) Put(ctx context.Context, record *repayledger.Record) error {
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

// Save implements repayledger.Store.Save
func (s *store) Save(ctx context.Context, record *repayledger.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	res := fromModel(model)
	res.CopyTo(record)

	return nil
}

// GetByAddress implements repayledger.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*repayledger.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// Delete implements repayledger.Store.Delete
func (s *store) Delete(ctx context.Context, address string) error {
	return dbDelete(ctx, s.db, address)
}

// Count implements repayledger.Store.Count
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbCount(ctx, s.db)
}
