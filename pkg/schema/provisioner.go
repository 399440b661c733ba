// Package schema provisions physical storage for user-defined forms and
// lockup tables. All DDL flows through the Provisioner interface so the
// storage engine is swappable and callers never build SQL strings.
package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/resilience"
)

// Table name prefixes for provisioned storage
const (
	FormTablePrefix   = "ts_"
	LockupTablePrefix = "lkt_"
)

// Provisioner creates and alters physical tables derived from field-type
// metadata
type Provisioner interface {
	// CreateFormTable creates the submissions table for a form and returns
	// its physical name. Creation is idempotent (IF NOT EXISTS).
	CreateFormTable(ctx context.Context, formName string, fields []models.FieldSpec) (string, error)
	// CreateLockupTable creates the entries table for a lockup
	CreateLockupTable(ctx context.Context, lockupName string) (string, error)
	// AddColumn alters an existing provisioned table with one new field.
	// Never triggered automatically; field changes after creation require
	// an explicit call.
	AddColumn(ctx context.Context, tableName, fieldName, fieldType string) error
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Slug lowercases a logical name and replaces spaces with underscores
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// FormTableName derives the physical table name for a form. Fails with a
// validation error when the slug is not identifier-safe.
func FormTableName(formName string) (string, error) {
	return tableName(FormTablePrefix, formName)
}

// LockupTableName derives the physical table name for a lockup
func LockupTableName(lockupName string) (string, error) {
	return tableName(LockupTablePrefix, lockupName)
}

func tableName(prefix, name string) (string, error) {
	slug := Slug(name)
	if !identifierPattern.MatchString(slug) {
		return "", apperrors.Validation(
			fmt.Sprintf("name %q does not derive a valid table identifier", name), nil)
	}
	return prefix + slug, nil
}

// ColumnType maps a declared field type to a storage type
func ColumnType(fieldType string) string {
	switch fieldType {
	case "text":
		return "VARCHAR(255)"
	case "number":
		return "INT"
	case "date":
		return "DATE"
	case "dropdown", "multi_select":
		return "JSON"
	case "file":
		return "TEXT"
	default:
		return "TEXT"
	}
}

type sqlProvisioner struct {
	db      *sqlx.DB
	breaker *resilience.CircuitBreaker
	logger  observability.Logger
}

// NewProvisioner creates a Provisioner executing DDL against db. DDL runs
// through a circuit breaker: repeated storage failures trip it and later
// calls fail fast.
func NewProvisioner(db *sqlx.DB, logger observability.Logger) Provisioner {
	return &sqlProvisioner{
		db: db,
		breaker: resilience.NewCircuitBreaker("schema_provisioner", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
		}, logger),
		logger: logger.WithPrefix("schema"),
	}
}

func (p *sqlProvisioner) CreateFormTable(ctx context.Context, formName string, fields []models.FieldSpec) (string, error) {
	table, err := FormTableName(formName)
	if err != nil {
		return "", err
	}

	columns := []string{"id SERIAL PRIMARY KEY"}
	for _, field := range fields {
		name := Slug(field.Name)
		if !identifierPattern.MatchString(name) {
			return "", apperrors.Validation(
				fmt.Sprintf("field name %q does not derive a valid column identifier", field.Name), nil)
		}
		columns = append(columns, fmt.Sprintf("%s %s", name, ColumnType(field.FieldType)))
	}
	columns = append(columns, "is_deleted INT DEFAULT 0")

	if err := p.execDDL(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(columns, ", "))); err != nil {
		return "", err
	}

	p.logger.Info("form table provisioned", map[string]interface{}{
		"table":  table,
		"fields": len(fields),
	})
	return table, nil
}

func (p *sqlProvisioner) CreateLockupTable(ctx context.Context, lockupName string) (string, error) {
	table, err := LockupTableName(lockupName)
	if err != nil {
		return "", err
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, name VARCHAR(255), is_deleted INT DEFAULT 0)", table)
	if err := p.execDDL(ctx, ddl); err != nil {
		return "", err
	}

	p.logger.Info("lockup table provisioned", map[string]interface{}{"table": table})
	return table, nil
}

func (p *sqlProvisioner) AddColumn(ctx context.Context, tableName, fieldName, fieldType string) error {
	if !identifierPattern.MatchString(tableName) {
		return apperrors.Validation(fmt.Sprintf("invalid table name %q", tableName), nil)
	}
	column := Slug(fieldName)
	if !identifierPattern.MatchString(column) {
		return apperrors.Validation(fmt.Sprintf("field name %q does not derive a valid column identifier", fieldName), nil)
	}

	return p.execDDL(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, column, ColumnType(fieldType)))
}

func (p *sqlProvisioner) execDDL(ctx context.Context, ddl string) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		_, execErr := p.db.ExecContext(ctx, ddl)
		return nil, execErr
	})
	if err != nil {
		p.logger.Error("ddl execution failed", map[string]interface{}{"error": err.Error()})
		return apperrors.Persistence("failed to provision table", pkgerrors.Wrap(err, "ddl exec"))
	}
	return nil
}
