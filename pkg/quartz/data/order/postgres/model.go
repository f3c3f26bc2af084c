package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/quartz-labs/quartz-protocol/pkg/database/postgres"
	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
)

const (
	tableName = "quartz__core_order"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address    string `db:"address"`
	OrderType  uint   `db:"order_type"`
	OrderState uint   `db:"order_state"`

	Owner        string `db:"owner"`
	IsOwnerPayer bool   `db:"is_owner_payer"`
	ReleaseSlot  uint64 `db:"release_slot"`

	AmountBaseUnits uint64 `db:"amount_base_units"`
	MarketIndex     uint   `db:"market_index"`
	ReduceOnly      bool   `db:"reduce_only"`
	Destination     string `db:"destination"`

	SpendLimitPerTransaction    uint64 `db:"spend_limit_per_transaction"`
	SpendLimitPerTimeframe      uint64 `db:"spend_limit_per_timeframe"`
	TimeframeInSeconds          uint64 `db:"timeframe_in_seconds"`
	NextTimeframeResetTimestamp uint64 `db:"next_timeframe_reset_timestamp"`

	SpendFee bool `db:"spend_fee"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

const allColumns = `id, address, order_type, order_state, owner, is_owner_payer, release_slot, amount_base_units, market_index, reduce_only, destination, spend_limit_per_transaction, spend_limit_per_timeframe, timeframe_in_seconds, next_timeframe_reset_timestamp, spend_fee, last_updated_at`

func toModel(obj *order.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address:    obj.Address,
		OrderType:  uint(obj.OrderType),
		OrderState: uint(obj.OrderState),

		Owner:        obj.Owner,
		IsOwnerPayer: obj.IsOwnerPayer,
		ReleaseSlot:  obj.ReleaseSlot,

		AmountBaseUnits: obj.AmountBaseUnits,
		MarketIndex:     uint(obj.MarketIndex),
		ReduceOnly:      obj.ReduceOnly,
		Destination:     obj.Destination,

		SpendLimitPerTransaction:    obj.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:      obj.SpendLimitPerTimeframe,
		TimeframeInSeconds:          obj.TimeframeInSeconds,
		NextTimeframeResetTimestamp: obj.NextTimeframeResetTimestamp,

		SpendFee: obj.SpendFee,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *order.Record {
	return &order.Record{
		Id: uint64(obj.Id.Int64),

		Address:    obj.Address,
		OrderType:  order.Type(obj.OrderType),
		OrderState: order.State(obj.OrderState),

		Owner:        obj.Owner,
		IsOwnerPayer: obj.IsOwnerPayer,
		ReleaseSlot:  obj.ReleaseSlot,

		AmountBaseUnits: obj.AmountBaseUnits,
		MarketIndex:     uint16(obj.MarketIndex),
		ReduceOnly:      obj.ReduceOnly,
		Destination:     obj.Destination,

		SpendLimitPerTransaction:    obj.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:      obj.SpendLimitPerTimeframe,
		TimeframeInSeconds:          obj.TimeframeInSeconds,
		NextTimeframeResetTimestamp: obj.NextTimeframeResetTimestamp,

		SpendFee: obj.SpendFee,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, order_type, order_state, owner, is_owner_payer, release_slot, amount_base_units, market_index, reduce_only, destination, spend_limit_per_transaction, spend_limit_per_timeframe, timeframe_in_seconds, next_timeframe_reset_timestamp, spend_fee, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)

			RETURNING ` + allColumns

		m.OrderState = uint(order.StateInitiated)
		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,
			m.OrderType,
			m.OrderState,

			m.Owner,
			m.IsOwnerPayer,
			m.ReleaseSlot,

			m.AmountBaseUnits,
			m.MarketIndex,
			m.ReduceOnly,
			m.Destination,

			m.SpendLimitPerTransaction,
			m.SpendLimitPerTimeframe,
			m.TimeframeInSeconds,
			m.NextTimeframeResetTimestamp,

			m.SpendFee,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckUniqueViolation(err, order.ErrOrderAlreadyExists)
	})
}

func dbMarkState(ctx context.Context, db *sqlx.DB, address string, newState order.State) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET order_state = $3, last_updated_at = $4
			WHERE address = $1 AND order_state = $2

			RETURNING ` + allColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			address,
			uint(order.StateInitiated),
			uint(newState),
			time.Now().UTC(),
		).StructScan(&model{})
		if err == nil {
			return nil
		}

		if !pgutil.IsNoRows(err) {
			return err
		}

		// No initiated record was updated. Work out whether the order is
		// missing or already finalized.
		existsQuery := `SELECT COUNT(*) FROM ` + tableName + ` WHERE address = $1`

		var count int
		if err := tx.GetContext(ctx, &count, existsQuery, address); err != nil {
			return err
		}

		if count == 0 {
			return order.ErrOrderNotFound
		}
		return order.ErrInvalidOrderState
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, order.ErrOrderNotFound)
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE owner = $1
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, owner)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, order.ErrOrderNotFound)
	}

	if len(res) == 0 {
		return nil, order.ErrOrderNotFound
	}

	return res, nil
}

func dbGetAllReleased(ctx context.Context, db *sqlx.DB, currentSlot uint64, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*model, error) {
	res := []*model{}

	queryStr := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE (order_state = $1 AND release_slot <= $2)`
	opts := []interface{}{uint(order.StateInitiated), currentSlot}

	queryStr, opts = query.PaginateQuery(queryStr, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, queryStr, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, order.ErrOrderNotFound)
	}

	if len(res) == 0 {
		return nil, order.ErrOrderNotFound
	}

	return res, nil
}

func dbGetCountByState(ctx context.Context, db *sqlx.DB, state order.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE order_state = $1`

	err := db.GetContext(ctx, &res, query, uint(state))
	if err != nil {
		return 0, err
	}
	return res, nil
}
