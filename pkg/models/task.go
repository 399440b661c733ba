package models

import "time"

// TaskTypeManual marks a task routed to a person through a form. Any other
// task_type value names an automated action.
const TaskTypeManual = "manual"

// Task is one node of a compiled template graph. Tasks are immutable after
// compilation except for soft delete.
type Task struct {
	ID           int64      `json:"id" db:"id"`
	TemplateID   int64      `json:"template_id" db:"template_id"`
	Name         string     `json:"name" db:"name"`
	TaskType     string     `json:"task_type" db:"task_type"`
	AssignedRole *int64     `json:"assigned_role,omitempty" db:"assigned_role"`
	AssignedTo   *int64     `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsManual reports whether the task needs a form and human routing
func (t *Task) IsManual() bool {
	return t.TaskType == TaskTypeManual
}

// TaskDependency is a directed edge of the compiled graph: DependentTaskID
// starts after TaskID completes. TaskCondition is a recorded predicate,
// currently unevaluated.
type TaskDependency struct {
	ID              int64      `json:"id" db:"id"`
	TemplateID      int64      `json:"template_id" db:"template_id"`
	TaskID          int64      `json:"task_id" db:"task_id"`
	DependentTaskID int64      `json:"dependent_task_id" db:"dependent_task_id"`
	TaskCondition   *string    `json:"task_condition,omitempty" db:"task_condition"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DependentTask is a dependency row joined with the target task attributes,
// used when advancing an instance.
type DependentTask struct {
	NextTaskID    int64   `json:"next_task" db:"next_task"`
	TemplateID    int64   `json:"template_id" db:"template_id"`
	Name          string  `json:"name" db:"name"`
	TaskType      string  `json:"task_type" db:"task_type"`
	AssignedRole  *int64  `json:"assigned_role,omitempty" db:"assigned_role"`
	AssignedTo    *int64  `json:"assigned_to,omitempty" db:"assigned_to"`
	TaskCondition *string `json:"task_condition,omitempty" db:"task_condition"`
}

// AutomatedAction is the descriptor attached to a non-manual task.
// Execution of the action itself is an external concern.
type AutomatedAction struct {
	ID           int64      `json:"id" db:"id"`
	TaskID       int64      `json:"task_id" db:"task_id"`
	ActionType   string     `json:"action_type" db:"action_type"`
	ActionConfig JSONMap    `json:"action_config" db:"action_config"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// TaskGroup maps a task to the group/level responsible for it
type TaskGroup struct {
	ID      int64  `json:"id" db:"id"`
	TaskID  int64  `json:"task_id" db:"task_id"`
	GroupID int64  `json:"group_id" db:"group_id"`
	LevelID *int64 `json:"level_id,omitempty" db:"level_id"`
}

// TaskGroupAction maps {task, group, level} to a permitted action
type TaskGroupAction struct {
	ID       int64  `json:"id" db:"id"`
	TaskID   int64  `json:"task_id" db:"task_id"`
	GroupID  int64  `json:"group_id" db:"group_id"`
	LevelID  *int64 `json:"level_id,omitempty" db:"level_id"`
	ActionID int64  `json:"action_id" db:"action_id"`
}

// TaskGroupWorkflow records an allowed hand-off between groups for a task
type TaskGroupWorkflow struct {
	ID          int64 `json:"id" db:"id"`
	TaskID      int64 `json:"task_id" db:"task_id"`
	FromGroupID int64 `json:"from_group_id" db:"from_group_id"`
	ToGroupID   int64 `json:"to_group_id" db:"to_group_id"`
}

// RoutingInfo is the resolved responsibility for a task. Unresolved fields
// are nil; callers must tolerate partial routing (a task may carry a group
// but no explicit assignee).
type RoutingInfo struct {
	TaskID     int64   `json:"task_id" db:"id"`
	TemplateID int64   `json:"template_id" db:"template_id"`
	Name       string  `json:"name" db:"name"`
	TaskType   string  `json:"task_type" db:"task_type"`
	AssignedTo *int64  `json:"assigned_to,omitempty" db:"assigned_to"`
	GroupID    *int64  `json:"group_id,omitempty" db:"group_id"`
	LevelID    *int64  `json:"level_id,omitempty" db:"level_id"`
	GroupName  *string `json:"group_name,omitempty" db:"group_name"`
	LevelName  *string `json:"level_name,omitempty" db:"level_name"`
}
