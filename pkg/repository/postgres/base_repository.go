// Package postgres implements the repository interfaces over sqlx/lib-pq.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/retry"
)

// BaseRepositoryConfig tunes query execution for a repository
type BaseRepositoryConfig struct {
	QueryTimeout time.Duration
	MaxRetries   int
}

// BaseRepository carries the shared query plumbing: timeout, transient
// retry, tracing and logging.
type BaseRepository struct {
	db     *sqlx.DB
	logger observability.Logger
	tracer observability.StartSpanFunc
	config BaseRepositoryConfig
	policy retry.Policy
}

// NewBaseRepository creates the shared repository core
func NewBaseRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc, config BaseRepositoryConfig) *BaseRepository {
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	return &BaseRepository{
		db:     db,
		logger: logger,
		tracer: tracer,
		config: config,
		policy: retry.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2.0, config.MaxRetries),
	}
}

// execute runs fn under the configured timeout, retrying transient driver
// failures. Classified application errors pass through untouched.
func (r *BaseRepository) execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer(ctx, operation)
	defer span.End()

	var permanent error
	err := r.policy.Execute(ctx, func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, r.config.QueryTimeout)
		defer cancel()

		err := fn(qctx)
		if err != nil && !isTransient(err) {
			// permanent failures end the retry loop immediately
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		err = permanent
	}
	if err != nil {
		span.RecordError(err)
		r.logger.Error("repository operation failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
	}
	return err
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection, resource, operator intervention
			return true
		}
		return false
	}
	return errors.Is(err, sql.ErrConnDone)
}

// isUniqueViolation reports whether err is a unique-constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ext returns the execution target: the transaction when one is supplied,
// the pool otherwise
func (r *BaseRepository) ext(tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return r.db
}

// notFoundOr converts sql.ErrNoRows into a classified not-found error and
// wraps anything else as a persistence failure
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.Persistence("failed to load "+resource, err)
}

// pageBounds converts 1-based page parameters to LIMIT/OFFSET
func pageBounds(page, pageSize int) (limit, offset int) {
	return pageSize, (page - 1) * pageSize
}
