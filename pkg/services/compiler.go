// Package services implements the workflow engine: template compilation,
// instance runtime, task routing, the form registry and the organizational
// directory. Services orchestrate repositories and never build SQL.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bpmflow/bpmflow/pkg/database"
	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
	"github.com/bpmflow/bpmflow/pkg/schema"
)

// diagramSchema is the structural contract for Template.DiagramJSON.
// Node data requirements are intentionally absent: incomplete nodes are
// skipped by the compiler, not rejected.
const diagramSchema = `{
	"type": "object",
	"required": ["nodes", "edges"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"label": {"type": "string"},
					"data": {"type": "object"}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "target"],
				"properties": {
					"source": {"type": "string", "minLength": 1},
					"target": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// CompileResult summarizes one compilation run
type CompileResult struct {
	TemplateID          int64    `json:"template_id"`
	TasksCreated        int      `json:"tasks_created"`
	DependenciesCreated int      `json:"dependencies_created"`
	FormsCreated        int      `json:"forms_created"`
	SkippedNodes        []string `json:"skipped_nodes,omitempty"`
}

// CompilerService turns a template diagram into executable task rows.
// Compilation is transactional: either the full graph materializes or
// nothing does. Physical form tables are provisioned after commit since
// DDL does not participate in the transaction.
type CompilerService struct {
	templates   interfaces.TemplateRepository
	tasks       interfaces.TaskRepository
	forms       interfaces.FormRepository
	uow         database.UnitOfWork
	provisioner schema.Provisioner
	validator   *gojsonschema.Schema
	logger      observability.Logger
}

// NewCompilerService creates the template compiler
func NewCompilerService(
	templates interfaces.TemplateRepository,
	tasks interfaces.TaskRepository,
	forms interfaces.FormRepository,
	uow database.UnitOfWork,
	provisioner schema.Provisioner,
	logger observability.Logger,
) (*CompilerService, error) {
	validator, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(diagramSchema))
	if err != nil {
		return nil, err
	}
	return &CompilerService{
		templates:   templates,
		tasks:       tasks,
		forms:       forms,
		uow:         uow,
		provisioner: provisioner,
		validator:   validator,
		logger:      logger.WithPrefix("compiler"),
	}, nil
}

// pendingTable is a form table to provision once the metadata committed
type pendingTable struct {
	formName string
	fields   []models.FieldSpec
}

// Compile materializes the template's diagram into tasks, dependencies,
// forms and routing assignments, then marks the template executed.
// An already-executed template is rejected with a conflict.
func (s *CompilerService) Compile(ctx context.Context, templateID int64) (*CompileResult, error) {
	template, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.Executed {
		return nil, apperrors.Conflict("template already executed")
	}

	diagram, err := s.parseDiagram(template.DiagramJSON)
	if err != nil {
		return nil, err
	}

	result := &CompileResult{TemplateID: templateID}
	var pending []pendingTable

	err = s.uow.Execute(ctx, func(tx *sqlx.Tx) error {
		nodeTask := make(map[string]int64, len(diagram.Nodes))
		nodeGroup := make(map[string]int64, len(diagram.Nodes))

		for _, node := range diagram.Nodes {
			if !node.Data.HasRequiredFields() {
				result.SkippedNodes = append(result.SkippedNodes, node.ID)
				s.logger.Warn("node skipped, required attributes missing", map[string]interface{}{
					"template_id": templateID,
					"node_id":     node.ID,
					"label":       node.Label,
				})
				continue
			}

			taskID, forms, err := s.compileNode(ctx, tx, templateID, node, &pending)
			if err != nil {
				return err
			}
			nodeTask[node.ID] = taskID
			if node.Data.Group != nil {
				nodeGroup[node.ID] = *node.Data.Group
			}
			result.TasksCreated++
			result.FormsCreated += forms
		}

		for _, edge := range diagram.Edges {
			sourceID, sourceOK := nodeTask[edge.Source]
			targetID, targetOK := nodeTask[edge.Target]
			if !sourceOK || !targetOK {
				// an edge touching a skipped node vanishes with it
				continue
			}
			dep := &models.TaskDependency{
				TemplateID:      templateID,
				TaskID:          sourceID,
				DependentTaskID: targetID,
			}
			if err := s.tasks.CreateDependency(ctx, tx, dep); err != nil {
				return err
			}
			result.DependenciesCreated++

			// a cross-group edge records the permitted hand-off
			fromGroup, fromOK := nodeGroup[edge.Source]
			toGroup, toOK := nodeGroup[edge.Target]
			if fromOK && toOK && fromGroup != toGroup {
				handoff := &models.TaskGroupWorkflow{
					TaskID:      targetID,
					FromGroupID: fromGroup,
					ToGroupID:   toGroup,
				}
				if err := s.tasks.CreateTaskGroupWorkflow(ctx, tx, handoff); err != nil {
					return err
				}
			}
		}

		return s.templates.MarkExecuted(ctx, tx, templateID)
	})
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		if _, err := s.provisioner.CreateFormTable(ctx, p.formName, p.fields); err != nil {
			return nil, err
		}
	}

	s.logger.Info("template compiled", map[string]interface{}{
		"template_id":  templateID,
		"tasks":        result.TasksCreated,
		"dependencies": result.DependenciesCreated,
		"skipped":      len(result.SkippedNodes),
	})
	return result, nil
}

// compileNode creates the task row plus its form or automated action.
// Returns the new task id and the number of forms created.
func (s *CompilerService) compileNode(ctx context.Context, tx *sqlx.Tx, templateID int64, node models.DiagramNode, pending *[]pendingTable) (int64, int, error) {
	taskType := node.Data.Type
	if taskType == "" {
		taskType = models.TaskTypeManual
	}

	task := &models.Task{
		TemplateID:   templateID,
		Name:         node.Label,
		TaskType:     taskType,
		AssignedRole: node.Data.Role,
	}
	if err := s.tasks.CreateTask(ctx, tx, task); err != nil {
		return 0, 0, err
	}

	if !task.IsManual() {
		action := &models.AutomatedAction{
			TaskID:       task.ID,
			ActionType:   taskType,
			ActionConfig: node.Data.Config,
		}
		if err := s.tasks.CreateAutomatedAction(ctx, tx, action); err != nil {
			return 0, 0, err
		}
		return task.ID, 0, nil
	}

	tableName, err := schema.FormTableName(node.Data.FormName)
	if err != nil {
		return 0, 0, err
	}
	form := &models.Form{
		TaskID:    task.ID,
		FormName:  node.Data.FormName,
		TableName: tableName,
	}
	if err := s.forms.CreateForm(ctx, tx, form); err != nil {
		return 0, 0, err
	}
	if err := s.forms.CreateFields(ctx, tx, form.ID, node.Data.FormFields); err != nil {
		return 0, 0, err
	}
	*pending = append(*pending, pendingTable{formName: node.Data.FormName, fields: node.Data.FormFields})

	tg := &models.TaskGroup{
		TaskID:  task.ID,
		GroupID: *node.Data.Group,
		LevelID: node.Data.Level,
	}
	if err := s.tasks.AssignTaskGroup(ctx, tx, tg); err != nil {
		return 0, 0, err
	}

	if len(node.Data.Actions) > 0 {
		rows := make([]models.TaskGroupAction, 0, len(node.Data.Actions))
		for _, actionID := range node.Data.Actions {
			rows = append(rows, models.TaskGroupAction{
				TaskID:   task.ID,
				GroupID:  *node.Data.Group,
				LevelID:  node.Data.Level,
				ActionID: actionID,
			})
		}
		if err := s.tasks.CreateTaskGroupActions(ctx, tx, rows); err != nil {
			return 0, 0, err
		}
	}

	return task.ID, 1, nil
}

func (s *CompilerService) parseDiagram(raw []byte) (*models.Diagram, error) {
	res, err := s.validator.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, apperrors.Validation("diagram is not valid JSON", err.Error())
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, issue := range res.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", issue.Field(), issue.Description()))
		}
		return nil, apperrors.Validation("diagram does not match the expected structure", details)
	}

	var diagram models.Diagram
	if err := json.Unmarshal(raw, &diagram); err != nil {
		return nil, apperrors.Validation("diagram is not valid JSON", err.Error())
	}
	return &diagram, nil
}
