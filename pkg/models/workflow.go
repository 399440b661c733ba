package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// WorkflowStatus is the lifecycle state of a workflow definition
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusDisabled WorkflowStatus = "disabled"
)

// Workflow is the root definition owning templates
type Workflow struct {
	ID          int64          `json:"id" db:"id"`
	Label       string         `json:"label" db:"label"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description,omitempty" db:"description"`
	Status      WorkflowStatus `json:"status" db:"status"`
	CreatedBy   int64          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// TemplateStatus is the lifecycle state of a template. An executed template
// is immutable: re-compiling it is rejected rather than duplicating tasks.
type TemplateStatus string

const (
	TemplateStatusDraft  TemplateStatus = "draft"
	TemplateStatusActive TemplateStatus = "active"
)

// Template is a versioned task-graph definition. DiagramJSON is the source
// of truth for graph shape; Task and TaskDependency rows are its compiled
// materialization.
type Template struct {
	ID          int64          `json:"id" db:"id"`
	WorkflowID  int64          `json:"workflow_id" db:"workflow_id"`
	DiagramJSON types.JSONText `json:"diagram_json" db:"diagram_json"`
	Status      TemplateStatus `json:"status" db:"status"`
	Executed    bool           `json:"executed" db:"executed"`
	CreatedBy   int64          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Diagram is the deserialized form of Template.DiagramJSON
type Diagram struct {
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

// DiagramNode is one node of the visual diagram
type DiagramNode struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Data  NodeData `json:"data"`
}

// NodeData carries the task attributes attached to a diagram node.
// Role, Group, FormName and FormFields are required for a node to compile;
// nodes missing any of them are skipped.
type NodeData struct {
	Role       *int64      `json:"role"`
	Group      *int64      `json:"group"`
	Level      *int64      `json:"level"`
	Type       string      `json:"type"`
	FormName   string      `json:"form_name"`
	FormFields []FieldSpec `json:"form_fields"`
	Actions    []int64     `json:"actions,omitempty"`
	Config     JSONMap     `json:"config"`
}

// HasRequiredFields reports whether the node carries everything the
// compiler needs to materialize a task
func (d NodeData) HasRequiredFields() bool {
	return d.Role != nil && d.Group != nil && d.FormName != "" && d.FormFields != nil
}

// DiagramEdge is a directed dependency between two nodes
type DiagramEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
