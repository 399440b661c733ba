package services

import (
	"context"
	"encoding/json"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

// TemplateService manages workflow definitions and their templates
type TemplateService struct {
	templates interfaces.TemplateRepository
	logger    observability.Logger
}

// NewTemplateService creates the definition management service
func NewTemplateService(templates interfaces.TemplateRepository, logger observability.Logger) *TemplateService {
	return &TemplateService{templates: templates, logger: logger.WithPrefix("templates")}
}

func (s *TemplateService) CreateWorkflow(ctx context.Context, label, name, description string, createdBy int64) (*models.Workflow, error) {
	if name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	if label == "" {
		label = name
	}
	w := &models.Workflow{
		Label:       label,
		Name:        name,
		Description: description,
		Status:      models.WorkflowStatusActive,
		CreatedBy:   createdBy,
	}
	if err := s.templates.CreateWorkflow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *TemplateService) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	return s.templates.GetWorkflow(ctx, id)
}

func (s *TemplateService) ListWorkflows(ctx context.Context, page, pageSize int) ([]models.Workflow, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	workflows, total, err := s.templates.ListWorkflows(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return workflows, models.NewPagination(page, pageSize, total), nil
}

func (s *TemplateService) DeleteWorkflow(ctx context.Context, id int64) error {
	return s.templates.SoftDeleteWorkflow(ctx, id)
}

// CreateTemplate stores a new diagram version under a workflow. The diagram
// must at least be well-formed JSON; structural validation happens at
// compile time.
func (s *TemplateService) CreateTemplate(ctx context.Context, workflowID int64, diagram json.RawMessage, createdBy int64) (*models.Template, error) {
	if len(diagram) == 0 {
		return nil, apperrors.Validation("diagram_json is required", nil)
	}
	if !json.Valid(diagram) {
		return nil, apperrors.Validation("diagram_json is not valid JSON", nil)
	}
	if _, err := s.templates.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}

	t := &models.Template{
		WorkflowID:  workflowID,
		DiagramJSON: []byte(diagram),
		Status:      models.TemplateStatusDraft,
		CreatedBy:   createdBy,
	}
	if err := s.templates.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	return s.templates.GetTemplate(ctx, id)
}

// UpdateTemplate replaces a draft template's diagram. Executed templates
// are immutable and the update is rejected with a conflict.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id int64, diagram json.RawMessage) (*models.Template, error) {
	if len(diagram) == 0 || !json.Valid(diagram) {
		return nil, apperrors.Validation("diagram_json is not valid JSON", nil)
	}
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.DiagramJSON = []byte(diagram)
	if err := s.templates.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) ListTemplatesByWorkflow(ctx context.Context, workflowID int64) ([]models.Template, error) {
	return s.templates.ListTemplatesByWorkflow(ctx, workflowID)
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, id int64) error {
	return s.templates.SoftDeleteTemplate(ctx, id)
}
