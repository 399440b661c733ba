package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type templateRepository struct {
	*BaseRepository
}

// NewTemplateRepository creates the workflow/template repository
func NewTemplateRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.TemplateRepository {
	return &templateRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("template_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *templateRepository) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	return r.execute(ctx, "TemplateRepository.CreateWorkflow", func(ctx context.Context) error {
		now := time.Now()
		w.CreatedAt = now
		w.UpdatedAt = now
		if w.Status == "" {
			w.Status = models.WorkflowStatusActive
		}
		query := `
			INSERT INTO workflows (label, name, description, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		err := r.db.QueryRowContext(ctx, query,
			w.Label, w.Name, w.Description, w.Status, w.CreatedBy, w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
		if err != nil {
			return apperrors.Persistence("failed to create workflow", err)
		}
		return nil
	})
}

func (r *templateRepository) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	var w models.Workflow
	err := r.execute(ctx, "TemplateRepository.GetWorkflow", func(ctx context.Context) error {
		query := `SELECT * FROM workflows WHERE id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &w, query, id); err != nil {
			return notFoundOr(err, "workflow", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *templateRepository) ListWorkflows(ctx context.Context, page, pageSize int) ([]models.Workflow, int, error) {
	var workflows []models.Workflow
	var total int
	err := r.execute(ctx, "TemplateRepository.ListWorkflows", func(ctx context.Context) error {
		limit, offset := pageBounds(page, pageSize)
		query := `
			SELECT * FROM workflows
			WHERE deleted_at IS NULL
			ORDER BY id
			LIMIT $1 OFFSET $2`
		if err := r.db.SelectContext(ctx, &workflows, query, limit, offset); err != nil {
			return apperrors.Persistence("failed to list workflows", err)
		}
		countQuery := `SELECT COUNT(*) FROM workflows WHERE deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
			return apperrors.Persistence("failed to count workflows", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return workflows, total, nil
}

func (r *templateRepository) SoftDeleteWorkflow(ctx context.Context, id int64) error {
	return r.execute(ctx, "TemplateRepository.SoftDeleteWorkflow", func(ctx context.Context) error {
		query := `UPDATE workflows SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return apperrors.Persistence("failed to delete workflow", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("workflow", id)
		}
		return nil
	})
}

func (r *templateRepository) CreateTemplate(ctx context.Context, t *models.Template) error {
	return r.execute(ctx, "TemplateRepository.CreateTemplate", func(ctx context.Context) error {
		now := time.Now()
		t.CreatedAt = now
		t.UpdatedAt = now
		if t.Status == "" {
			t.Status = models.TemplateStatusDraft
		}
		query := `
			INSERT INTO workflow_templates (workflow_id, diagram_json, status, executed, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		err := r.db.QueryRowContext(ctx, query,
			t.WorkflowID, t.DiagramJSON, t.Status, t.Executed, t.CreatedBy, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
		if err != nil {
			return apperrors.Persistence("failed to create template", err)
		}
		return nil
	})
}

func (r *templateRepository) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	var t models.Template
	err := r.execute(ctx, "TemplateRepository.GetTemplate", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_templates WHERE id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &t, query, id); err != nil {
			return notFoundOr(err, "template", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepository) UpdateTemplate(ctx context.Context, t *models.Template) error {
	return r.execute(ctx, "TemplateRepository.UpdateTemplate", func(ctx context.Context) error {
		query := `
			UPDATE workflow_templates
			SET workflow_id = $1, diagram_json = $2, status = $3, updated_at = NOW()
			WHERE id = $4 AND deleted_at IS NULL AND executed = FALSE`
		result, err := r.db.ExecContext(ctx, query, t.WorkflowID, t.DiagramJSON, t.Status, t.ID)
		if err != nil {
			return apperrors.Persistence("failed to update template", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.Conflict("template is executed or absent; executed templates are immutable")
		}
		return nil
	})
}

func (r *templateRepository) ListTemplatesByWorkflow(ctx context.Context, workflowID int64) ([]models.Template, error) {
	var templates []models.Template
	err := r.execute(ctx, "TemplateRepository.ListTemplatesByWorkflow", func(ctx context.Context) error {
		query := `SELECT * FROM workflow_templates WHERE workflow_id = $1 AND deleted_at IS NULL ORDER BY id`
		if err := r.db.SelectContext(ctx, &templates, query, workflowID); err != nil {
			return apperrors.Persistence("failed to list templates", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) MarkExecuted(ctx context.Context, tx *sqlx.Tx, templateID int64) error {
	ctx, span := r.tracer(ctx, "TemplateRepository.MarkExecuted")
	defer span.End()

	query := `
		UPDATE workflow_templates
		SET executed = TRUE, status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND executed = FALSE`
	result, err := r.ext(tx).ExecContext(ctx, query, models.TemplateStatusActive, templateID)
	if err != nil {
		return apperrors.Persistence("failed to mark template executed", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.Conflict("template already executed")
	}
	return nil
}

func (r *templateRepository) SoftDeleteTemplate(ctx context.Context, id int64) error {
	return r.execute(ctx, "TemplateRepository.SoftDeleteTemplate", func(ctx context.Context) error {
		query := `UPDATE workflow_templates SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return apperrors.Persistence("failed to delete template", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("template", id)
		}
		return nil
	})
}
