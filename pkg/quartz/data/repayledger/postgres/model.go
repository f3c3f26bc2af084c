package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/quartz-labs/quartz-protocol/pkg/database/postgres"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
)

const (
	tableName = "quartz__core_repayledger"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Owner   string `db:"owner"`

	Deposit  uint64 `db:"deposit"`
	Withdraw uint64 `db:"withdraw"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *repayledger.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address: obj.Address,
		Owner:   obj.Owner,

		Deposit:  obj.Deposit,
		Withdraw: obj.Withdraw,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *repayledger.Record {
	return &repayledger.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Owner:   obj.Owner,

		Deposit:  obj.Deposit,
		Withdraw: obj.Withdraw,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, owner, deposit, withdraw, last_updated_at)
			VALUES ($1, $2, $3, $4, $5)

			RETURNING
				id, address, owner, deposit, withdraw, last_updated_at`

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,
			m.Owner,

			m.Deposit,
			m.Withdraw,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckUniqueViolation(err, repayledger.ErrLedgerAlreadyExists)
	})
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET deposit = $2, withdraw = $3, last_updated_at = $4
			WHERE address = $1

			RETURNING
				id, address, owner, deposit, withdraw, last_updated_at`

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,

			m.Deposit,
			m.Withdraw,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckNoRows(err, repayledger.ErrLedgerNotFound)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, owner, deposit, withdraw, last_updated_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, repayledger.ErrLedgerNotFound)
	}
	return res, nil
}

func dbDelete(ctx context.Context, db *sqlx.DB, address string) error {
	query := `DELETE FROM ` + tableName + ` WHERE address = $1`

	_, err := db.ExecContext(ctx, query, address)
	return err
}

func dbCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}
