package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/quartz-labs/quartz-protocol/pkg/database/postgres"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
)

const (
	tableName = "quartz__core_vault"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Bump    uint   `db:"bump"`

	Owner string `db:"owner"`

	SpendLimitPerTransaction        uint64 `db:"spend_limit_per_transaction"`
	SpendLimitPerTimeframe          uint64 `db:"spend_limit_per_timeframe"`
	RemainingSpendLimitPerTimeframe uint64 `db:"remaining_spend_limit_per_timeframe"`
	NextTimeframeResetTimestamp     uint64 `db:"next_timeframe_reset_timestamp"`
	TimeframeInSeconds              uint64 `db:"timeframe_in_seconds"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *vault.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address: obj.Address,
		Bump:    uint(obj.Bump),

		Owner: obj.Owner,

		SpendLimitPerTransaction:        obj.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          obj.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: obj.RemainingSpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     obj.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              obj.TimeframeInSeconds,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *vault.Record {
	return &vault.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Bump:    uint8(obj.Bump),

		Owner: obj.Owner,

		SpendLimitPerTransaction:        obj.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          obj.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: obj.RemainingSpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     obj.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              obj.TimeframeInSeconds,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, bump, owner, spend_limit_per_transaction, spend_limit_per_timeframe, remaining_spend_limit_per_timeframe, next_timeframe_reset_timestamp, timeframe_in_seconds, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)

			RETURNING
				id, address, bump, owner, spend_limit_per_transaction, spend_limit_per_timeframe, remaining_spend_limit_per_timeframe, next_timeframe_reset_timestamp, timeframe_in_seconds, last_updated_at`

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,
			m.Bump,

			m.Owner,

			m.SpendLimitPerTransaction,
			m.SpendLimitPerTimeframe,
			m.RemainingSpendLimitPerTimeframe,
			m.NextTimeframeResetTimestamp,
			m.TimeframeInSeconds,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckUniqueViolation(err, vault.ErrVaultAlreadyExists)
	})
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET spend_limit_per_transaction = $2, spend_limit_per_timeframe = $3, remaining_spend_limit_per_timeframe = $4, next_timeframe_reset_timestamp = $5, timeframe_in_seconds = $6, last_updated_at = $7
			WHERE address = $1

			RETURNING
				id, address, bump, owner, spend_limit_per_transaction, spend_limit_per_timeframe, remaining_spend_limit_per_timeframe, next_timeframe_reset_timestamp, timeframe_in_seconds, last_updated_at`

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,

			m.SpendLimitPerTransaction,
			m.SpendLimitPerTimeframe,
			m.RemainingSpendLimitPerTimeframe,
			m.NextTimeframeResetTimestamp,
			m.TimeframeInSeconds,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, bump, owner, spend_limit_per_transaction, spend_limit_per_timeframe, remaining_spend_limit_per_timeframe, next_timeframe_reset_timestamp, timeframe_in_seconds, last_updated_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	}
	return res, nil
}

func dbGetByOwner(ctx context.Context, db *sqlx.DB, owner string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, bump, owner, spend_limit_per_transaction, spend_limit_per_timeframe, remaining_spend_limit_per_timeframe, next_timeframe_reset_timestamp, timeframe_in_seconds, last_updated_at
		FROM ` + tableName + `
		WHERE owner = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, owner)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
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
