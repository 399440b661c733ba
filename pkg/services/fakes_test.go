package services

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
)

// In-memory fakes implementing the repository interfaces. They mirror the
// postgres semantics the services rely on: conflicts on re-execution,
// duplicates on repeated request ids, soft-delete filtering left out since
// the services never exercise it here.

type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Execute(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (fakeUnitOfWork) ExecuteWithOptions(ctx context.Context, _ *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type fakeTemplateRepo struct {
	workflows map[int64]*models.Workflow
	templates map[int64]*models.Template
	nextID    int64
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{
		workflows: map[int64]*models.Workflow{},
		templates: map[int64]*models.Template{},
	}
}

func (r *fakeTemplateRepo) CreateWorkflow(_ context.Context, w *models.Workflow) error {
	r.nextID++
	w.ID = r.nextID
	r.workflows[w.ID] = w
	return nil
}

func (r *fakeTemplateRepo) GetWorkflow(_ context.Context, id int64) (*models.Workflow, error) {
	w, ok := r.workflows[id]
	if !ok {
		return nil, apperrors.NotFound("workflow", id)
	}
	return w, nil
}

func (r *fakeTemplateRepo) ListWorkflows(context.Context, int, int) ([]models.Workflow, int, error) {
	var out []models.Workflow
	for _, w := range r.workflows {
		out = append(out, *w)
	}
	return out, len(out), nil
}

func (r *fakeTemplateRepo) SoftDeleteWorkflow(_ context.Context, id int64) error {
	delete(r.workflows, id)
	return nil
}

func (r *fakeTemplateRepo) CreateTemplate(_ context.Context, t *models.Template) error {
	r.nextID++
	t.ID = r.nextID
	r.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) GetTemplate(_ context.Context, id int64) (*models.Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, apperrors.NotFound("template", id)
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTemplateRepo) UpdateTemplate(_ context.Context, t *models.Template) error {
	existing, ok := r.templates[t.ID]
	if !ok || existing.Executed {
		return apperrors.Conflict("template is executed or absent; executed templates are immutable")
	}
	r.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) ListTemplatesByWorkflow(_ context.Context, workflowID int64) ([]models.Template, error) {
	var out []models.Template
	for _, t := range r.templates {
		if t.WorkflowID == workflowID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) MarkExecuted(_ context.Context, _ *sqlx.Tx, templateID int64) error {
	t, ok := r.templates[templateID]
	if !ok || t.Executed {
		return apperrors.Conflict("template already executed")
	}
	t.Executed = true
	t.Status = models.TemplateStatusActive
	return nil
}

func (r *fakeTemplateRepo) SoftDeleteTemplate(_ context.Context, id int64) error {
	delete(r.templates, id)
	return nil
}

type fakeTaskRepo struct {
	tasks        map[int64]*models.Task
	deps         []*models.TaskDependency
	actions      []*models.AutomatedAction
	taskGroups   []*models.TaskGroup
	groupActions []models.TaskGroupAction
	handoffs     []*models.TaskGroupWorkflow
	nextID       int64
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[int64]*models.Task{}}
}

func (r *fakeTaskRepo) CreateTask(_ context.Context, _ *sqlx.Tx, task *models.Task) error {
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) CreateDependency(_ context.Context, _ *sqlx.Tx, dep *models.TaskDependency) error {
	r.nextID++
	dep.ID = r.nextID
	r.deps = append(r.deps, dep)
	return nil
}

func (r *fakeTaskRepo) CreateAutomatedAction(_ context.Context, _ *sqlx.Tx, action *models.AutomatedAction) error {
	r.nextID++
	action.ID = r.nextID
	r.actions = append(r.actions, action)
	return nil
}

func (r *fakeTaskRepo) AssignTaskGroup(_ context.Context, _ *sqlx.Tx, tg *models.TaskGroup) error {
	r.nextID++
	tg.ID = r.nextID
	r.taskGroups = append(r.taskGroups, tg)
	return nil
}

func (r *fakeTaskRepo) GetTask(_ context.Context, id int64) (*models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, apperrors.NotFound("task", id)
	}
	return task, nil
}

func (r *fakeTaskRepo) ListTasks(_ context.Context, templateID int64) ([]models.Task, error) {
	var out []models.Task
	for _, task := range r.tasks {
		if task.TemplateID == templateID {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) SoftDeleteTask(_ context.Context, id int64) error {
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) GetRootTask(_ context.Context, templateID int64) (int64, error) {
	incoming := map[int64]bool{}
	for _, dep := range r.deps {
		incoming[dep.DependentTaskID] = true
	}
	var candidates, all []int64
	for id, task := range r.tasks {
		if task.TemplateID != templateID {
			continue
		}
		all = append(all, id)
		if !incoming[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		candidates = all
	}
	if len(candidates) == 0 {
		return 0, apperrors.NotFound("root task for template", templateID)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates[0], nil
}

func (r *fakeTaskRepo) GetRoutingInfo(_ context.Context, taskID int64) (*models.RoutingInfo, error) {
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, apperrors.NotFound("task", taskID)
	}
	info := &models.RoutingInfo{
		TaskID:     task.ID,
		TemplateID: task.TemplateID,
		Name:       task.Name,
		TaskType:   task.TaskType,
		AssignedTo: task.AssignedTo,
	}
	for _, tg := range r.taskGroups {
		if tg.TaskID == taskID {
			groupID := tg.GroupID
			info.GroupID = &groupID
			info.LevelID = tg.LevelID
		}
	}
	return info, nil
}

func (r *fakeTaskRepo) GetDependents(_ context.Context, taskID int64) ([]models.DependentTask, error) {
	var out []models.DependentTask
	for _, dep := range r.deps {
		if dep.TaskID != taskID {
			continue
		}
		task := r.tasks[dep.DependentTaskID]
		out = append(out, models.DependentTask{
			NextTaskID: task.ID,
			TemplateID: task.TemplateID,
			Name:       task.Name,
			TaskType:   task.TaskType,
			AssignedTo: task.AssignedTo,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextTaskID < out[j].NextTaskID })
	return out, nil
}

func (r *fakeTaskRepo) GetDependencies(_ context.Context, dependentTaskID int64) ([]models.TaskDependency, error) {
	var out []models.TaskDependency
	for _, dep := range r.deps {
		if dep.DependentTaskID == dependentTaskID {
			out = append(out, *dep)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) CreateTaskGroupActions(_ context.Context, _ *sqlx.Tx, rows []models.TaskGroupAction) error {
	for i := range rows {
		r.nextID++
		rows[i].ID = r.nextID
	}
	r.groupActions = append(r.groupActions, rows...)
	return nil
}

func (r *fakeTaskRepo) ListTaskGroupActions(_ context.Context, taskID int64) ([]models.TaskGroupAction, error) {
	var out []models.TaskGroupAction
	for _, ga := range r.groupActions {
		if ga.TaskID == taskID {
			out = append(out, ga)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) CreateTaskGroupWorkflow(_ context.Context, _ *sqlx.Tx, row *models.TaskGroupWorkflow) error {
	r.nextID++
	row.ID = r.nextID
	r.handoffs = append(r.handoffs, row)
	return nil
}

type fakeFormRepo struct {
	forms  map[int64]*models.Form
	fields map[int64][]models.FieldSpec
	nextID int64
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{forms: map[int64]*models.Form{}, fields: map[int64][]models.FieldSpec{}}
}

func (r *fakeFormRepo) CreateForm(_ context.Context, _ *sqlx.Tx, form *models.Form) error {
	for _, existing := range r.forms {
		if existing.TableName == form.TableName {
			return apperrors.Conflict("a form already uses table " + form.TableName)
		}
	}
	r.nextID++
	form.ID = r.nextID
	r.forms[form.ID] = form
	return nil
}

func (r *fakeFormRepo) CreateFields(_ context.Context, _ *sqlx.Tx, formID int64, fields []models.FieldSpec) error {
	r.fields[formID] = append(r.fields[formID], fields...)
	return nil
}

func (r *fakeFormRepo) GetFormByTask(_ context.Context, taskID int64) (*models.Form, error) {
	for _, form := range r.forms {
		if form.TaskID == taskID {
			return form, nil
		}
	}
	return nil, apperrors.NotFound("form for task", taskID)
}

func (r *fakeFormRepo) GetFields(_ context.Context, formID int64) ([]models.FormField, error) {
	var out []models.FormField
	for i, spec := range r.fields[formID] {
		out = append(out, models.FormField{
			ID:        int64(i + 1),
			FormID:    formID,
			Label:     spec.Label,
			Name:      spec.Name,
			FieldType: spec.FieldType,
		})
	}
	return out, nil
}

func (r *fakeFormRepo) GetField(_ context.Context, formID, fieldID int64) (*models.FormField, error) {
	return nil, apperrors.NotFound("form field", fieldID)
}

func (r *fakeFormRepo) AddField(_ context.Context, formID int64, field models.FieldSpec) (int64, error) {
	r.fields[formID] = append(r.fields[formID], field)
	return int64(len(r.fields[formID])), nil
}

func (r *fakeFormRepo) UpdateField(context.Context, int64, int64, models.FieldSpec) error {
	return nil
}

func (r *fakeFormRepo) DeleteField(context.Context, int64, int64) error {
	return nil
}

type fakeInstanceRepo struct {
	instances     map[int64]*models.WorkflowInstance
	processes     map[int64]*models.Process
	nextID        int64
	updateFailure error
}

func newFakeInstanceRepo() *fakeInstanceRepo {
	return &fakeInstanceRepo{
		instances: map[int64]*models.WorkflowInstance{},
		processes: map[int64]*models.Process{},
	}
}

func (r *fakeInstanceRepo) ExistsByRequestID(_ context.Context, requestID string) (bool, error) {
	for _, inst := range r.instances {
		if inst.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInstanceRepo) CreateInstance(_ context.Context, _ *sqlx.Tx, inst *models.WorkflowInstance) error {
	for _, existing := range r.instances {
		if existing.RequestID == inst.RequestID {
			return apperrors.Duplicate("duplicate request detected")
		}
	}
	r.nextID++
	inst.ID = r.nextID
	r.instances[inst.ID] = inst
	return nil
}

func (r *fakeInstanceRepo) GetInstance(_ context.Context, id int64) (*models.WorkflowInstance, error) {
	inst, ok := r.instances[id]
	if !ok {
		return nil, apperrors.NotFound("workflow instance", id)
	}
	return inst, nil
}

func (r *fakeInstanceRepo) ListInstancesByStatus(_ context.Context, status models.InstanceStatus, _, _ int) ([]models.WorkflowInstance, int, error) {
	var out []models.WorkflowInstance
	for _, inst := range r.instances {
		if inst.Status == status {
			out = append(out, *inst)
		}
	}
	return out, len(out), nil
}

func (r *fakeInstanceRepo) UpdateInstanceStatus(_ context.Context, instanceID int64, status models.InstanceStatus) error {
	inst, ok := r.instances[instanceID]
	if !ok {
		return apperrors.NotFound("workflow instance", instanceID)
	}
	inst.Status = status
	return nil
}

func (r *fakeInstanceRepo) CreateProcess(_ context.Context, _ *sqlx.Tx, p *models.Process) error {
	r.nextID++
	p.ID = r.nextID
	r.processes[p.ID] = p
	return nil
}

func (r *fakeInstanceRepo) GetProcess(_ context.Context, id int64) (*models.Process, error) {
	p, ok := r.processes[id]
	if !ok {
		return nil, apperrors.NotFound("workflow process", id)
	}
	return p, nil
}

func (r *fakeInstanceRepo) ListProcesses(_ context.Context, instanceID int64, status *models.ProcessStatus) ([]models.Process, error) {
	var out []models.Process
	for _, p := range r.processes {
		if p.InstanceID != instanceID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeInstanceRepo) UpdateProcessStatus(_ context.Context, processID int64, status models.ProcessStatus) error {
	if r.updateFailure != nil {
		return r.updateFailure
	}
	p, ok := r.processes[processID]
	if !ok {
		return apperrors.NotFound("workflow process", processID)
	}
	p.Status = status
	return nil
}

func (r *fakeInstanceRepo) CountCompletedTasks(_ context.Context, instanceID int64, taskIDs []int64) (int, error) {
	completed := map[int64]bool{}
	for _, p := range r.processes {
		if p.InstanceID == instanceID && p.Status == models.ProcessStatusCompleted {
			completed[p.TaskID] = true
		}
	}
	count := 0
	for _, id := range taskIDs {
		if completed[id] {
			count++
		}
	}
	return count, nil
}

type fakeProvisioner struct {
	formTables   []string
	lockupTables []string
	columns      []string
}

func (p *fakeProvisioner) CreateFormTable(_ context.Context, formName string, _ []models.FieldSpec) (string, error) {
	table := "ts_" + formName
	p.formTables = append(p.formTables, table)
	return table, nil
}

func (p *fakeProvisioner) CreateLockupTable(_ context.Context, lockupName string) (string, error) {
	table := "lkt_" + lockupName
	p.lockupTables = append(p.lockupTables, table)
	return table, nil
}

func (p *fakeProvisioner) AddColumn(_ context.Context, tableName, fieldName, _ string) error {
	p.columns = append(p.columns, tableName+"."+fieldName)
	return nil
}

type fakeNotifier struct {
	assigned []int64
}

func (n *fakeNotifier) TaskAssigned(_ context.Context, process *models.Process, _ *models.RoutingInfo) {
	n.assigned = append(n.assigned, process.TaskID)
}
