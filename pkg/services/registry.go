package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bpmflow/bpmflow/pkg/database"
	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
	"github.com/bpmflow/bpmflow/pkg/schema"
)

// FormDetail is a form together with its field definitions
type FormDetail struct {
	Form   *models.Form       `json:"form"`
	Fields []models.FormField `json:"fields"`
}

// RegistryService manages form metadata and the physical tables behind it.
// Metadata writes are transactional; table DDL runs after commit.
type RegistryService struct {
	forms       interfaces.FormRepository
	tasks       interfaces.TaskRepository
	uow         database.UnitOfWork
	provisioner schema.Provisioner
	logger      observability.Logger
}

// NewRegistryService creates the form registry
func NewRegistryService(
	forms interfaces.FormRepository,
	tasks interfaces.TaskRepository,
	uow database.UnitOfWork,
	provisioner schema.Provisioner,
	logger observability.Logger,
) *RegistryService {
	return &RegistryService{
		forms:       forms,
		tasks:       tasks,
		uow:         uow,
		provisioner: provisioner,
		logger:      logger.WithPrefix("registry"),
	}
}

// CreateForm registers a form for a manual task and provisions its
// submissions table. A task can only carry one form per physical table;
// a name collision surfaces as a conflict.
func (s *RegistryService) CreateForm(ctx context.Context, taskID int64, formName, description string, fields []models.FieldSpec) (*models.Form, error) {
	if formName == "" {
		return nil, apperrors.Validation("form_name is required", nil)
	}
	if len(fields) == 0 {
		return nil, apperrors.Validation("at least one field is required", nil)
	}

	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsManual() {
		return nil, apperrors.Validation("forms attach to manual tasks only", nil)
	}

	tableName, err := schema.FormTableName(formName)
	if err != nil {
		return nil, err
	}

	form := &models.Form{
		TaskID:      taskID,
		FormName:    formName,
		TableName:   tableName,
		Description: description,
	}
	err = s.uow.Execute(ctx, func(tx *sqlx.Tx) error {
		if err := s.forms.CreateForm(ctx, tx, form); err != nil {
			return err
		}
		return s.forms.CreateFields(ctx, tx, form.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.provisioner.CreateFormTable(ctx, formName, fields); err != nil {
		return nil, err
	}

	s.logger.Info("form created", map[string]interface{}{
		"form_id": form.ID,
		"task_id": taskID,
		"table":   tableName,
	})
	return form, nil
}

// GetForm returns the form attached to a task together with its fields
func (s *RegistryService) GetForm(ctx context.Context, taskID int64) (*FormDetail, error) {
	form, err := s.forms.GetFormByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	fields, err := s.forms.GetFields(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	return &FormDetail{Form: form, Fields: fields}, nil
}

// AddField appends a field to a form and alters the physical table to
// match. The two steps are not atomic; a failed ALTER leaves the metadata
// in place and the call retryable.
func (s *RegistryService) AddField(ctx context.Context, taskID int64, field models.FieldSpec) (int64, error) {
	if field.Name == "" {
		return 0, apperrors.Validation("field name is required", nil)
	}

	form, err := s.forms.GetFormByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	fieldID, err := s.forms.AddField(ctx, form.ID, field)
	if err != nil {
		return 0, err
	}
	if err := s.provisioner.AddColumn(ctx, form.TableName, field.Name, field.FieldType); err != nil {
		return 0, err
	}

	s.logger.Info("field added", map[string]interface{}{
		"form_id":  form.ID,
		"field_id": fieldID,
		"name":     field.Name,
	})
	return fieldID, nil
}

// UpdateField changes a field's metadata. Stored columns are untouched:
// changing a field's type after provisioning needs an explicit migration.
func (s *RegistryService) UpdateField(ctx context.Context, taskID, fieldID int64, field models.FieldSpec) error {
	form, err := s.forms.GetFormByTask(ctx, taskID)
	if err != nil {
		return err
	}
	return s.forms.UpdateField(ctx, form.ID, fieldID, field)
}

// DeleteField soft-deletes a field definition. The physical column stays
// so existing submissions keep their data.
func (s *RegistryService) DeleteField(ctx context.Context, taskID, fieldID int64) error {
	form, err := s.forms.GetFormByTask(ctx, taskID)
	if err != nil {
		return err
	}
	return s.forms.DeleteField(ctx, form.ID, fieldID)
}
