// Package pg provides shared helpers for the postgres backed data stores.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
)

type txStructContextKey struct{}
type txIsolationContextKey struct{}

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

// ExecuteRetryable retries fn when it fails with a serialization failure.
func ExecuteRetryable(fn func() error) error {
	if err := fn(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure {
			return ExecuteRetryable(fn)
		}
		return err
	}
	return nil
}

// ExecuteTxWithinCtx executes a DB transaction scoped to a call to fn. The
// transaction rides along on the context, so store methods called from fn
// through ExecuteInTx join it instead of opening their own. Commit or
// rollback happens based on fn's returned error.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	existing := ctx.Value(txStructContextKey{})
	if existing != nil {
		return ErrAlreadyInTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txStructContextKey{}, tx)
	ctx = context.WithValue(ctx, txIsolationContextKey{}, isolation)

	err = fn(ctx)
	if err != nil {
		// A Rollback() must always execute so sql.DB releases the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rollbackErr)
		}

		return err
	}
	return tx.Commit()
}

// ExecuteInTx runs a store operation within a DB transaction. If the context
// already carries a transaction from ExecuteTxWithinCtx, the operation joins
// it and commit or rollback responsibility stays with the outer scope.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) (err error) {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	tx, err := getTxFromCtx(ctx, isolation)
	if err != nil && err != ErrNotInTx {
		return err
	}

	var startedNewTx bool
	if err == ErrNotInTx {
		startedNewTx = true
		tx, err = db.BeginTxx(ctx, &sql.TxOptions{
			Isolation: isolation,
		})
		if err != nil {
			return err
		}
	}

	err = fn(tx)
	if err != nil {
		if startedNewTx {
			// A Rollback() must always execute so sql.DB releases the connection.
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				return fmt.Errorf("failed to rollback transaction: %w", rollBackErr)
			}
		}
		return err
	}
	if startedNewTx {
		return tx.Commit()
	}
	return nil
}

func getTxFromCtx(ctx context.Context, desiredIsolation sql.IsolationLevel) (*sqlx.Tx, error) {
	txFromCtx := ctx.Value(txStructContextKey{})
	if txFromCtx == nil {
		return nil, ErrNotInTx
	}

	isolationFromCtx := ctx.Value(txIsolationContextKey{})
	if isolationFromCtx == nil {
		return nil, errors.New("unexpectedly don't have isolation level set")
	}

	tx, ok := txFromCtx.(*sqlx.Tx)
	if !ok {
		return nil, errors.New("invalid type for tx")
	}

	currentIsolation, ok := isolationFromCtx.(sql.IsolationLevel)
	if !ok {
		return nil, errors.New("invalid type for isolation")
	}

	if currentIsolation < desiredIsolation {
		return nil, errors.New("current tx doesn't meet isolation level requirements")
	}

	return tx, nil
}
