// Package database provides the sqlx connection and the unit-of-work
// abstraction every multi-step write goes through.
package database

import (
	"context"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/bpmflow/bpmflow/pkg/common/config"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

// Database represents the database access layer
type Database struct {
	db     *sqlx.DB
	logger observability.Logger
}

// NewDatabase opens a connection pool and verifies it with a ping, retrying
// the ping with exponential backoff until the connect timeout elapses.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, logger observability.Logger) (*Database, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout

	err = backoff.Retry(func() error {
		pingErr := db.PingContext(ctx)
		if pingErr != nil {
			logger.Warn("database ping failed, retrying", map[string]interface{}{
				"dsn":   sanitizeDSN(cfg.DSN),
				"error": pingErr.Error(),
			})
		}
		return pingErr
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database unreachable")
	}

	logger.Info("database connection established", map[string]interface{}{
		"driver": cfg.Driver,
		"dsn":    sanitizeDSN(cfg.DSN),
	})

	return &Database{db: db, logger: logger}, nil
}

// NewFromDB wraps an existing sqlx.DB. Used in tests with sqlmock.
func NewFromDB(db *sqlx.DB, logger observability.Logger) *Database {
	return &Database{db: db, logger: logger}
}

// DB returns the underlying sqlx handle
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.db.Close()
}

// sanitizeDSN masks credentials in a DSN for safe logging
func sanitizeDSN(dsn string) string {
	if idx := strings.Index(dsn, "://"); idx != -1 {
		if atIdx := strings.Index(dsn[idx:], "@"); atIdx != -1 {
			return dsn[:idx+3] + "***:***" + dsn[idx+atIdx:]
		}
	}
	if strings.Contains(dsn, "password=") {
		parts := strings.Split(dsn, " ")
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	}
	return dsn
}
