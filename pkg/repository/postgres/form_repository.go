package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type formRepository struct {
	*BaseRepository
}

// NewFormRepository creates the form metadata repository
func NewFormRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.FormRepository {
	return &formRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("form_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *formRepository) CreateForm(ctx context.Context, tx *sqlx.Tx, form *models.Form) error {
	ctx, span := r.tracer(ctx, "FormRepository.CreateForm")
	defer span.End()

	form.CreatedAt = time.Now()
	query := `
		INSERT INTO forms (task_id, form_name, table_name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.ext(tx).QueryRowxContext(ctx, query,
		form.TaskID, form.FormName, form.TableName, form.Description, form.CreatedAt).Scan(&form.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a form already uses table " + form.TableName)
		}
		return apperrors.Persistence("failed to create form", err)
	}
	return nil
}

func (r *formRepository) CreateFields(ctx context.Context, tx *sqlx.Tx, formID int64, fields []models.FieldSpec) error {
	ctx, span := r.tracer(ctx, "FormRepository.CreateFields")
	defer span.End()

	query := `
		INSERT INTO form_fields (form_id, label, name, placeholder, field_type, options, required, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, field := range fields {
		options, err := encodeOptions(field.Options)
		if err != nil {
			return err
		}
		_, err = r.ext(tx).ExecContext(ctx, query,
			formID, field.Label, field.Name, field.Placeholder, field.FieldType,
			options, field.Required != 0, field.Enabled != 0)
		if err != nil {
			return apperrors.Persistence("failed to create form field", err)
		}
	}
	return nil
}

func (r *formRepository) GetFormByTask(ctx context.Context, taskID int64) (*models.Form, error) {
	var form models.Form
	err := r.execute(ctx, "FormRepository.GetFormByTask", func(ctx context.Context) error {
		query := `SELECT * FROM forms WHERE task_id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &form, query, taskID); err != nil {
			return notFoundOr(err, "form for task", taskID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepository) GetFields(ctx context.Context, formID int64) ([]models.FormField, error) {
	var fields []models.FormField
	err := r.execute(ctx, "FormRepository.GetFields", func(ctx context.Context) error {
		query := `SELECT * FROM form_fields WHERE form_id = $1 AND deleted_at IS NULL ORDER BY id`
		if err := r.db.SelectContext(ctx, &fields, query, formID); err != nil {
			return apperrors.Persistence("failed to list form fields", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *formRepository) GetField(ctx context.Context, formID, fieldID int64) (*models.FormField, error) {
	var field models.FormField
	err := r.execute(ctx, "FormRepository.GetField", func(ctx context.Context) error {
		query := `SELECT * FROM form_fields WHERE id = $1 AND form_id = $2 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &field, query, fieldID, formID); err != nil {
			return notFoundOr(err, "form field", fieldID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *formRepository) AddField(ctx context.Context, formID int64, field models.FieldSpec) (int64, error) {
	var fieldID int64
	err := r.execute(ctx, "FormRepository.AddField", func(ctx context.Context) error {
		options, err := encodeOptions(field.Options)
		if err != nil {
			return err
		}
		query := `
			INSERT INTO form_fields (form_id, label, name, placeholder, field_type, options, required, enabled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		err = r.db.QueryRowContext(ctx, query,
			formID, field.Label, field.Name, field.Placeholder, field.FieldType,
			options, field.Required != 0, field.Enabled != 0).Scan(&fieldID)
		if err != nil {
			return apperrors.Persistence("failed to add form field", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fieldID, nil
}

func (r *formRepository) UpdateField(ctx context.Context, formID, fieldID int64, field models.FieldSpec) error {
	return r.execute(ctx, "FormRepository.UpdateField", func(ctx context.Context) error {
		options, err := encodeOptions(field.Options)
		if err != nil {
			return err
		}
		query := `
			UPDATE form_fields
			SET label = $1, name = $2, placeholder = $3, field_type = $4, options = $5, required = $6, enabled = $7
			WHERE id = $8 AND form_id = $9 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query,
			field.Label, field.Name, field.Placeholder, field.FieldType, options,
			field.Required != 0, field.Enabled != 0, fieldID, formID)
		if err != nil {
			return apperrors.Persistence("failed to update form field", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("form field", fieldID)
		}
		return nil
	})
}

func (r *formRepository) DeleteField(ctx context.Context, formID, fieldID int64) error {
	return r.execute(ctx, "FormRepository.DeleteField", func(ctx context.Context) error {
		query := `UPDATE form_fields SET deleted_at = NOW() WHERE id = $1 AND form_id = $2 AND deleted_at IS NULL`
		result, err := r.db.ExecContext(ctx, query, fieldID, formID)
		if err != nil {
			return apperrors.Persistence("failed to delete form field", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("form field", fieldID)
		}
		return nil
	})
}

// encodeOptions serializes the declared options payload, keeping NULL for
// fields without options
func encodeOptions(options interface{}) (interface{}, error) {
	if options == nil {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, apperrors.Validation("field options are not serializable", nil).WithCause(err)
	}
	return data, nil
}
