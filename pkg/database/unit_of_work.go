package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/bpmflow/bpmflow/pkg/observability"
)

// UnitOfWork runs a multi-step write as a single transaction. Commit and
// rollback are owned by Execute; the callback only reports success or
// failure.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	ExecuteWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error
}

type unitOfWork struct {
	db     *sqlx.DB
	logger observability.Logger
}

// NewUnitOfWork creates a UnitOfWork over the given database
func NewUnitOfWork(db *Database, logger observability.Logger) UnitOfWork {
	return &unitOfWork{db: db.DB(), logger: logger}
}

// Execute runs fn inside a read-committed transaction
func (u *unitOfWork) Execute(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return u.ExecuteWithOptions(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// ExecuteWithOptions runs fn inside a transaction with the given options,
// rolling back on error or panic
func (u *unitOfWork) ExecuteWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := u.db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				u.logger.Error("rollback after panic failed", map[string]interface{}{"error": rbErr.Error()})
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			u.logger.Error("transaction rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
