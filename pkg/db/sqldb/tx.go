package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/pkg/db"
)

type TxFunc func(ctx context.Context, tx *sql.Tx) error

// TxRunner executes scoped read-modify-write transactions with bounded retry.
type TxRunner struct {
	db      *sql.DB
	dialect Dialect
	policy  db.RetryPolicy
}

func NewTxRunner(sqlDB *sql.DB, dialect Dialect, policy db.RetryPolicy) *TxRunner {
	return &TxRunner{db: sqlDB, dialect: dialect, policy: policy}
}

func (r *TxRunner) DB() *sql.DB { return r.db }

func (r *TxRunner) Dialect() Dialect { return r.dialect }

// InTx runs fn in a transaction. The transaction is replayed on lock or
// serialization conflicts; fn must therefore derive all state from its reads.
func (r *TxRunner) InTx(ctx context.Context, fn TxFunc) error {
	return r.policy.Run(ctx, IsRetryable, func(ctx context.Context) error {
		return r.once(ctx, fn)
	})
}

func (r *TxRunner) once(ctx context.Context, fn TxFunc) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
