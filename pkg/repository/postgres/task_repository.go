package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type taskRepository struct {
	*BaseRepository
}

// NewTaskRepository creates the task graph repository
func NewTaskRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.TaskRepository {
	return &taskRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("task_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *taskRepository) CreateTask(ctx context.Context, tx *sqlx.Tx, task *models.Task) error {
	ctx, span := r.tracer(ctx, "TaskRepository.CreateTask")
	defer span.End()

	task.CreatedAt = time.Now()
	query := `
		INSERT INTO workflow_tasks (template_id, name, task_type, assigned_role, assigned_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		task.TemplateID, task.Name, task.TaskType, task.AssignedRole, task.AssignedTo, task.CreatedAt).Scan(&task.ID)
	if err != nil {
		return apperrors.Persistence("failed to create task", err)
	}
	return nil
}

func (r *taskRepository) CreateDependency(ctx context.Context, tx *sqlx.Tx, dep *models.TaskDependency) error {
	ctx, span := r.tracer(ctx, "TaskRepository.CreateDependency")
	defer span.End()

	query := `
		INSERT INTO task_dependencies (template_id, task_id, dependent_task_id, task_condition)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		dep.TemplateID, dep.TaskID, dep.DependentTaskID, dep.TaskCondition).Scan(&dep.ID)
	if err != nil {
		return apperrors.Persistence("failed to create task dependency", err)
	}
	return nil
}

func (r *taskRepository) CreateAutomatedAction(ctx context.Context, tx *sqlx.Tx, action *models.AutomatedAction) error {
	ctx, span := r.tracer(ctx, "TaskRepository.CreateAutomatedAction")
	defer span.End()

	query := `
		INSERT INTO automated_actions (task_id, action_type, action_config)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		action.TaskID, action.ActionType, action.ActionConfig).Scan(&action.ID)
	if err != nil {
		return apperrors.Persistence("failed to create automated action", err)
	}
	return nil
}

func (r *taskRepository) AssignTaskGroup(ctx context.Context, tx *sqlx.Tx, tg *models.TaskGroup) error {
	ctx, span := r.tracer(ctx, "TaskRepository.AssignTaskGroup")
	defer span.End()

	query := `
		INSERT INTO task_groups (task_id, group_id, level_id)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query, tg.TaskID, tg.GroupID, tg.LevelID).Scan(&tg.ID)
	if err != nil {
		return apperrors.Persistence("failed to assign task group", err)
	}
	return nil
}

func (r *taskRepository) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	err := r.execute(ctx, "TaskRepository.GetTask", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_tasks WHERE id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &task, query, id); err != nil {
			return notFoundOr(err, "task", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListTasks(ctx context.Context, templateID int64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.execute(ctx, "TaskRepository.ListTasks", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_tasks WHERE template_id = $1 AND deleted_at IS NULL ORDER BY id`
		if err := r.db.SelectContext(ctx, &tasks, query, templateID); err != nil {
			return apperrors.Persistence("failed to list tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) SoftDeleteTask(ctx context.Context, id int64) error {
	return r.execute(ctx, "TaskRepository.SoftDeleteTask", func(ctx context.Context) error {
		query := `UPDATE workflow_tasks SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return apperrors.Persistence("failed to delete task", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("task", id)
		}
		return nil
	})
}

// GetRootTask prefers a task with no incoming dependency; a template
// compiled without edges falls back to its lowest-id task.
func (r *taskRepository) GetRootTask(ctx context.Context, templateID int64) (int64, error) {
	var taskID int64
	err := r.execute(ctx, "TaskRepository.GetRootTask", func(ctx context.Context) error {
		query := `
			SELECT t.id
			FROM workflow_tasks t
			WHERE t.template_id = $1 AND t.deleted_at IS NULL
			  AND NOT EXISTS (
				SELECT 1 FROM task_dependencies td
				WHERE td.dependent_task_id = t.id AND td.deleted_at IS NULL
			  )
			ORDER BY t.id
			LIMIT 1`
		err := r.db.GetContext(ctx, &taskID, query, templateID)
		if errors.Is(err, sql.ErrNoRows) {
			fallback := `SELECT id FROM workflow_tasks WHERE template_id = $1 AND deleted_at IS NULL ORDER BY id LIMIT 1`
			err = r.db.GetContext(ctx, &taskID, fallback, templateID)
		}
		if err != nil {
			return notFoundOr(err, "root task for template", templateID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return taskID, nil
}

func (r *taskRepository) GetRoutingInfo(ctx context.Context, taskID int64) (*models.RoutingInfo, error) {
	var info models.RoutingInfo
	err := r.execute(ctx, "TaskRepository.GetRoutingInfo", func(ctx context.Context) error {
		query := `
			SELECT t.id, t.template_id, t.name, t.task_type, t.assigned_to,
			       tg.group_id, tg.level_id, g.group_name, l.name AS level_name
			FROM workflow_tasks t
			LEFT JOIN task_groups tg ON tg.task_id = t.id
			LEFT JOIN groups g ON g.group_id = tg.group_id
			LEFT JOIN group_levels l ON l.id = tg.level_id
			WHERE t.id = $1 AND t.deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &info, query, taskID); err != nil {
			return notFoundOr(err, "task", taskID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *taskRepository) GetDependents(ctx context.Context, taskID int64) ([]models.DependentTask, error) {
	var dependents []models.DependentTask
	err := r.execute(ctx, "TaskRepository.GetDependents", func(ctx context.Context) error {
		query := `
			SELECT t.id AS next_task, t.template_id, t.name, t.task_type,
			       t.assigned_role, t.assigned_to, td.task_condition
			FROM workflow_tasks t
			JOIN task_dependencies td ON t.id = td.dependent_task_id
			WHERE td.task_id = $1 AND t.deleted_at IS NULL AND td.deleted_at IS NULL
			ORDER BY t.id`
		if err := r.db.SelectContext(ctx, &dependents, query, taskID); err != nil {
			return apperrors.Persistence("failed to load dependent tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dependents, nil
}

func (r *taskRepository) GetDependencies(ctx context.Context, dependentTaskID int64) ([]models.TaskDependency, error) {
	var deps []models.TaskDependency
	err := r.execute(ctx, "TaskRepository.GetDependencies", func(ctx context.Context) error {
		query := `
			SELECT td.*
			FROM task_dependencies td
			JOIN workflow_tasks t ON t.id = td.task_id
			WHERE td.dependent_task_id = $1 AND t.deleted_at IS NULL AND td.deleted_at IS NULL
			ORDER BY td.id`
		if err := r.db.SelectContext(ctx, &deps, query, dependentTaskID); err != nil {
			return apperrors.Persistence("failed to load task dependencies", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func (r *taskRepository) CreateTaskGroupActions(ctx context.Context, tx *sqlx.Tx, rows []models.TaskGroupAction) error {
	if len(rows) == 0 {
		return apperrors.Validation("at least one task group action row is required", nil)
	}
	ctx, span := r.tracer(ctx, "TaskRepository.CreateTaskGroupActions")
	defer span.End()

	query := `
		INSERT INTO task_group_actions (task_id, group_id, level_id, action_id)
		VALUES (:task_id, :group_id, :level_id, :action_id)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(tx), query, rows); err != nil {
		return apperrors.Persistence("failed to create task group actions", err)
	}
	return nil
}

func (r *taskRepository) ListTaskGroupActions(ctx context.Context, taskID int64) ([]models.TaskGroupAction, error) {
	var rows []models.TaskGroupAction
	err := r.execute(ctx, "TaskRepository.ListTaskGroupActions", func(ctx context.Context) error {
		query := `SELECT * FROM task_group_actions WHERE task_id = $1 ORDER BY id`
		if err := r.db.SelectContext(ctx, &rows, query, taskID); err != nil {
			return apperrors.Persistence("failed to list task group actions", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepository) CreateTaskGroupWorkflow(ctx context.Context, tx *sqlx.Tx, row *models.TaskGroupWorkflow) error {
	ctx, span := r.tracer(ctx, "TaskRepository.CreateTaskGroupWorkflow")
	defer span.End()

	query := `
		INSERT INTO task_group_workflows (task_id, from_group_id, to_group_id)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query, row.TaskID, row.FromGroupID, row.ToGroupID).Scan(&row.ID)
	if err != nil {
		return apperrors.Persistence("failed to create task group workflow", err)
	}
	return nil
}
