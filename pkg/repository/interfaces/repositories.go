// Package interfaces declares the repository contracts consumed by the
// service layer. Implementations live in repository/postgres. Methods that
// participate in multi-step writes accept an optional *sqlx.Tx; a nil tx
// runs against the pool directly.
package interfaces

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bpmflow/bpmflow/pkg/models"
)

// TemplateRepository persists workflows and their templates
type TemplateRepository interface {
	CreateWorkflow(ctx context.Context, w *models.Workflow) error
	GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, page, pageSize int) ([]models.Workflow, int, error)
	SoftDeleteWorkflow(ctx context.Context, id int64) error

	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, id int64) (*models.Template, error)
	UpdateTemplate(ctx context.Context, t *models.Template) error
	ListTemplatesByWorkflow(ctx context.Context, workflowID int64) ([]models.Template, error)
	// MarkExecuted flags a compiled template as executed inside the
	// compile transaction
	MarkExecuted(ctx context.Context, tx *sqlx.Tx, templateID int64) error
	SoftDeleteTemplate(ctx context.Context, id int64) error
}

// TaskRepository persists the compiled task graph and its routing tables
type TaskRepository interface {
	CreateTask(ctx context.Context, tx *sqlx.Tx, task *models.Task) error
	CreateDependency(ctx context.Context, tx *sqlx.Tx, dep *models.TaskDependency) error
	CreateAutomatedAction(ctx context.Context, tx *sqlx.Tx, action *models.AutomatedAction) error
	AssignTaskGroup(ctx context.Context, tx *sqlx.Tx, tg *models.TaskGroup) error

	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, templateID int64) ([]models.Task, error)
	SoftDeleteTask(ctx context.Context, id int64) error

	// GetRootTask returns the template's entry task: the lowest-id task
	// with no incoming dependency, falling back to the lowest-id task when
	// every task has a predecessor
	GetRootTask(ctx context.Context, templateID int64) (int64, error)
	// GetRoutingInfo joins a task with its group/level assignment.
	// Unresolved routing fields come back nil.
	GetRoutingInfo(ctx context.Context, taskID int64) (*models.RoutingInfo, error)
	// GetDependents returns the tasks that depend on taskID
	GetDependents(ctx context.Context, taskID int64) ([]models.DependentTask, error)
	// GetDependencies returns the dependency edges pointing at
	// dependentTaskID
	GetDependencies(ctx context.Context, dependentTaskID int64) ([]models.TaskDependency, error)

	CreateTaskGroupActions(ctx context.Context, tx *sqlx.Tx, rows []models.TaskGroupAction) error
	ListTaskGroupActions(ctx context.Context, taskID int64) ([]models.TaskGroupAction, error)
	CreateTaskGroupWorkflow(ctx context.Context, tx *sqlx.Tx, row *models.TaskGroupWorkflow) error
}

// FormRepository persists form metadata and field definitions
type FormRepository interface {
	CreateForm(ctx context.Context, tx *sqlx.Tx, form *models.Form) error
	CreateFields(ctx context.Context, tx *sqlx.Tx, formID int64, fields []models.FieldSpec) error

	GetFormByTask(ctx context.Context, taskID int64) (*models.Form, error)
	GetFields(ctx context.Context, formID int64) ([]models.FormField, error)
	GetField(ctx context.Context, formID, fieldID int64) (*models.FormField, error)
	AddField(ctx context.Context, formID int64, field models.FieldSpec) (int64, error)
	UpdateField(ctx context.Context, formID, fieldID int64, field models.FieldSpec) error
	DeleteField(ctx context.Context, formID, fieldID int64) error
}

// InstanceRepository persists workflow instances and their processes
type InstanceRepository interface {
	ExistsByRequestID(ctx context.Context, requestID string) (bool, error)
	CreateInstance(ctx context.Context, tx *sqlx.Tx, inst *models.WorkflowInstance) error
	GetInstance(ctx context.Context, id int64) (*models.WorkflowInstance, error)
	ListInstancesByStatus(ctx context.Context, status models.InstanceStatus, page, pageSize int) ([]models.WorkflowInstance, int, error)
	UpdateInstanceStatus(ctx context.Context, instanceID int64, status models.InstanceStatus) error

	CreateProcess(ctx context.Context, tx *sqlx.Tx, p *models.Process) error
	GetProcess(ctx context.Context, id int64) (*models.Process, error)
	ListProcesses(ctx context.Context, instanceID int64, status *models.ProcessStatus) ([]models.Process, error)
	UpdateProcessStatus(ctx context.Context, processID int64, status models.ProcessStatus) error
	// CountCompletedTasks reports how many of the given tasks have a
	// Completed process within the instance. Used by the all-join policy.
	CountCompletedTasks(ctx context.Context, instanceID int64, taskIDs []int64) (int, error)
}

// UserRepository reads user records for authentication. User management
// itself is an external concern.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// DirectoryRepository persists organizational metadata: groups, levels,
// action types, field types and user-defined lockups
type DirectoryRepository interface {
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context, page, pageSize int) ([]models.Group, int, error)
	SearchGroups(ctx context.Context, query string) ([]models.Group, error)
	SoftDeleteGroup(ctx context.Context, id int64) error

	CreateLevel(ctx context.Context, l *models.Level) error
	ListLevels(ctx context.Context, page, pageSize int) ([]models.Level, int, error)

	CreateActionType(ctx context.Context, a *models.ActionType) error
	ListActionTypes(ctx context.Context, page, pageSize int) ([]models.ActionType, int, error)

	CreateFieldType(ctx context.Context, f *models.FieldType) error
	ListFieldTypes(ctx context.Context, page, pageSize int) ([]models.FieldType, int, error)

	CreateLockup(ctx context.Context, l *models.Lockup) error
	GetLockup(ctx context.Context, id int64) (*models.Lockup, error)
	ListLockups(ctx context.Context, page, pageSize int) ([]models.Lockup, int, error)
	SearchLockups(ctx context.Context, query string) ([]models.Lockup, error)
	SoftDeleteLockup(ctx context.Context, id int64) error

	CreateLockupEntry(ctx context.Context, tableName, name string) (int64, error)
	ListLockupEntries(ctx context.Context, tableName string) ([]models.LockupEntry, error)
	SoftDeleteLockupEntry(ctx context.Context, tableName string, id int64) error
}
