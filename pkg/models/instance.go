package models

import "time"

// InstanceStatus is the state of a workflow instance
type InstanceStatus string

const (
	InstanceStatusRunning   InstanceStatus = "Running"
	InstanceStatusCompleted InstanceStatus = "Completed"
)

// WorkflowInstance is one execution run of a template, identified
// externally by the caller-supplied RequestID. A unique index on
// request_id is the authoritative duplicate guard.
type WorkflowInstance struct {
	ID          int64          `json:"id" db:"id"`
	TemplateID  int64          `json:"template_id" db:"template_id"`
	RequestID   string         `json:"request_id" db:"request_id"`
	Status      InstanceStatus `json:"status" db:"status"`
	StartedAt   time.Time      `json:"started_at" db:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsTerminal reports whether the instance reached its final state
func (i *WorkflowInstance) IsTerminal() bool {
	return i.Status == InstanceStatusCompleted
}

// ProcessStatus is the state of a live work item
type ProcessStatus string

const (
	ProcessStatusPending    ProcessStatus = "Pending"
	ProcessStatusProcessing ProcessStatus = "Processing"
	ProcessStatusCompleted  ProcessStatus = "Completed"
	ProcessStatusFailed     ProcessStatus = "Failed"
)

// ValidProcessStatus reports whether s is an accepted process status
func ValidProcessStatus(s ProcessStatus) bool {
	switch s {
	case ProcessStatusPending, ProcessStatusProcessing, ProcessStatusCompleted, ProcessStatusFailed:
		return true
	}
	return false
}

// Process is a live work item: one of the instance's current positions in
// the task graph. A fanned-out instance holds several Processing rows at
// once.
type Process struct {
	ID          int64         `json:"id" db:"id"`
	InstanceID  int64         `json:"instance_id" db:"instance_id"`
	TaskID      int64         `json:"task_id" db:"task_id"`
	Status      ProcessStatus `json:"status" db:"status"`
	AssignedTo  *int64        `json:"assigned_to,omitempty" db:"assigned_to"`
	GroupID     *int64        `json:"group_id,omitempty" db:"group_id"`
	LevelID     *int64        `json:"level_id,omitempty" db:"level_id"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}
