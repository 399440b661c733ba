package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Form is the metadata for a manual task's input form. TableName is the
// physical table provisioned for submissions (ts_ prefix).
type Form struct {
	ID          int64      `json:"id" db:"id"`
	TaskID      int64      `json:"task_id" db:"task_id"`
	FormName    string     `json:"form_name" db:"form_name"`
	TableName   string     `json:"table_name" db:"table_name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FormField is one field definition of a form. Options holds the JSON
// encoded choices for dropdown/multi_select fields.
type FormField struct {
	ID          int64          `json:"id" db:"id"`
	FormID      int64          `json:"form_id" db:"form_id"`
	Label       string         `json:"label" db:"label"`
	Name        string         `json:"name" db:"name"`
	Placeholder string         `json:"placeholder,omitempty" db:"placeholder"`
	FieldType   string         `json:"field_type" db:"field_type"`
	Options     types.JSONText `json:"options,omitempty" db:"options"`
	Required    bool           `json:"required" db:"required"`
	Enabled     bool           `json:"enabled" db:"enabled"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FieldSpec is the field declaration accepted by the registry and carried
// inside diagram nodes
type FieldSpec struct {
	Label       string      `json:"label"`
	Name        string      `json:"name"`
	Placeholder string      `json:"placeholder,omitempty"`
	FieldType   string      `json:"field_type"`
	Options     interface{} `json:"options,omitempty"`
	Required    int         `json:"required"`
	Enabled     int         `json:"enabled"`
}
