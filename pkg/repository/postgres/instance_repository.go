package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type instanceRepository struct {
	*BaseRepository
}

// NewInstanceRepository creates the instance/process repository
func NewInstanceRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.InstanceRepository {
	return &instanceRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("instance_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *instanceRepository) ExistsByRequestID(ctx context.Context, requestID string) (bool, error) {
	var exists bool
	err := r.execute(ctx, "InstanceRepository.ExistsByRequestID", func(ctx context.Context) error {
		query := `SELECT EXISTS (SELECT 1 FROM workflow_instances WHERE request_id = $1 AND deleted_at IS NULL)`
		if err := r.db.GetContext(ctx, &exists, query, requestID); err != nil {
			return apperrors.Persistence("failed to check request id", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *instanceRepository) CreateInstance(ctx context.Context, tx *sqlx.Tx, inst *models.WorkflowInstance) error {
	ctx, span := r.tracer(ctx, "InstanceRepository.CreateInstance")
	defer span.End()

	if inst.StartedAt.IsZero() {
		inst.StartedAt = time.Now()
	}
	query := `
		INSERT INTO workflow_instances (template_id, request_id, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		inst.TemplateID, inst.RequestID, inst.Status, inst.StartedAt).Scan(&inst.ID)
	if err != nil {
		// the unique index on request_id is the authoritative guard; the
		// pre-check in the runtime is an optimization only
		if isUniqueViolation(err) {
			return apperrors.Duplicate("duplicate request detected")
		}
		return apperrors.Persistence("failed to create workflow instance", err)
	}
	return nil
}

func (r *instanceRepository) GetInstance(ctx context.Context, id int64) (*models.WorkflowInstance, error) {
	var inst models.WorkflowInstance
	err := r.execute(ctx, "InstanceRepository.GetInstance", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_instances WHERE id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
			return notFoundOr(err, "workflow instance", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *instanceRepository) ListInstancesByStatus(ctx context.Context, status models.InstanceStatus, page, pageSize int) ([]models.WorkflowInstance, int, error) {
	var instances []models.WorkflowInstance
	var total int
	err := r.execute(ctx, "InstanceRepository.ListInstancesByStatus", func(ctx context.Context) error {
		limit, offset := pageBounds(page, pageSize)
		query := `
			SELECT * FROM workflow_instances
			WHERE status = $1 AND deleted_at IS NULL
			ORDER BY id
			LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &instances, query, status, limit, offset); err != nil {
			return apperrors.Persistence("failed to list workflow instances", err)
		}
		countQuery := `SELECT COUNT(*) FROM workflow_instances WHERE status = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &total, countQuery, status); err != nil {
			return apperrors.Persistence("failed to count workflow instances", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return instances, total, nil
}

func (r *instanceRepository) UpdateInstanceStatus(ctx context.Context, instanceID int64, status models.InstanceStatus) error {
	return r.execute(ctx, "InstanceRepository.UpdateInstanceStatus", func(ctx context.Context) error {
		query := `
			UPDATE workflow_instances
			SET status = $1,
			    completed_at = CASE WHEN $1 = 'Completed' THEN NOW() ELSE completed_at END
			WHERE id = $2 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, status, instanceID)
		if err != nil {
			return apperrors.Persistence("failed to update instance status", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("workflow instance", instanceID)
		}
		return nil
	})
}

func (r *instanceRepository) CreateProcess(ctx context.Context, tx *sqlx.Tx, p *models.Process) error {
	ctx, span := r.tracer(ctx, "InstanceRepository.CreateProcess")
	defer span.End()

	if !models.ValidProcessStatus(p.Status) {
		return apperrors.Validation("invalid process status", map[string]interface{}{"status": p.Status})
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = time.Now()
	}
	query := `
		INSERT INTO workflow_processes (instance_id, task_id, status, assigned_to, group_id, level_id, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		p.InstanceID, p.TaskID, p.Status, p.AssignedTo, p.GroupID, p.LevelID, p.StartedAt).Scan(&p.ID)
	if err != nil {
		return apperrors.Persistence("failed to create workflow process", err)
	}
	return nil
}

func (r *instanceRepository) GetProcess(ctx context.Context, id int64) (*models.Process, error) {
	var p models.Process
	err := r.execute(ctx, "InstanceRepository.GetProcess", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_processes WHERE id = $1`
		if err := r.db.GetContext(ctx, &p, query, id); err != nil {
			return notFoundOr(err, "workflow process", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *instanceRepository) ListProcesses(ctx context.Context, instanceID int64, status *models.ProcessStatus) ([]models.Process, error) {
	var processes []models.Process
	err := r.execute(ctx, "InstanceRepository.ListProcesses", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_processes WHERE instance_id = $1`
		args := []interface{}{instanceID}
		if status != nil {
			query += ` AND status = $2`
			args = append(args, *status)
		}
		query += ` ORDER BY id`
		if err := r.db.SelectContext(ctx, &processes, query, args...); err != nil {
			return apperrors.Persistence("failed to list workflow processes", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return processes, nil
}

func (r *instanceRepository) UpdateProcessStatus(ctx context.Context, processID int64, status models.ProcessStatus) error {
	if !models.ValidProcessStatus(status) {
		return apperrors.Validation("invalid process status", map[string]interface{}{"status": status})
	}
	return r.execute(ctx, "InstanceRepository.UpdateProcessStatus", func(ctx context.Context) error {
		query := `
			UPDATE workflow_processes
			SET status = $1,
			    completed_at = CASE WHEN $1 = 'Completed' THEN NOW() ELSE completed_at END
			WHERE id = $2`
		result, err := r.db.ExecContext(ctx, query, status, processID)
		if err != nil {
			return apperrors.Persistence("failed to update process status", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("workflow process", processID)
		}
		return nil
	})
}

func (r *instanceRepository) CountCompletedTasks(ctx context.Context, instanceID int64, taskIDs []int64) (int, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.execute(ctx, "InstanceRepository.CountCompletedTasks", func(ctx context.Context) error {
		query := `
			SELECT COUNT(DISTINCT task_id)
			FROM workflow_processes
			WHERE instance_id = $1 AND status = 'Completed' AND task_id = ANY($2)`
		if err := r.db.GetContext(ctx, &count, query, instanceID, pq.Array(taskIDs)); err != nil {
			return apperrors.Persistence("failed to count completed predecessors", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
