package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bpmflow/bpmflow/pkg/database"
	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
	"github.com/bpmflow/bpmflow/pkg/retry"
)

// StartResult reports the instance and its entry process
type StartResult struct {
	InstanceID int64               `json:"instance_id"`
	ProcessID  int64               `json:"process_id"`
	TaskID     int64               `json:"task_id"`
	Routing    *models.RoutingInfo `json:"routing,omitempty"`
}

// SpawnedProcess is one dependent process created during completion
type SpawnedProcess struct {
	ProcessID int64               `json:"process_id"`
	TaskID    int64               `json:"task_id"`
	Routing   *models.RoutingInfo `json:"routing,omitempty"`
}

// CompleteResult reports what completing a process produced
type CompleteResult struct {
	ProcessID         int64            `json:"process_id"`
	Spawned           []SpawnedProcess `json:"spawned,omitempty"`
	InstanceCompleted bool             `json:"instance_completed"`
}

// RuntimeService drives workflow instances: starting them at the root task
// and advancing them as processes complete.
type RuntimeService struct {
	templates      interfaces.TemplateRepository
	tasks          interfaces.TaskRepository
	instances      interfaces.InstanceRepository
	uow            database.UnitOfWork
	resolver       *RoutingResolver
	join           JoinPolicy
	notifier       Notifier
	completePolicy retry.Policy
	logger         observability.Logger
}

// NewRuntimeService creates the instance runtime. completePolicy guards the
// process status update during completion against transient storage hiccups.
func NewRuntimeService(
	templates interfaces.TemplateRepository,
	tasks interfaces.TaskRepository,
	instances interfaces.InstanceRepository,
	uow database.UnitOfWork,
	resolver *RoutingResolver,
	join JoinPolicy,
	notifier Notifier,
	completePolicy retry.Policy,
	logger observability.Logger,
) *RuntimeService {
	return &RuntimeService{
		templates:      templates,
		tasks:          tasks,
		instances:      instances,
		uow:            uow,
		resolver:       resolver,
		join:           join,
		notifier:       notifier,
		completePolicy: completePolicy,
		logger:         logger.WithPrefix("runtime"),
	}
}

// Start creates an instance of a compiled template and opens its first
// process at the root task. The caller-supplied requestID makes the call
// idempotent: a repeated requestID is rejected as a duplicate.
func (s *RuntimeService) Start(ctx context.Context, templateID int64, requestID string) (*StartResult, error) {
	if requestID == "" {
		return nil, apperrors.Validation("request_id is required", nil)
	}

	template, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.Executed {
		return nil, apperrors.Validation("template has not been compiled", nil)
	}

	// advisory pre-check for a friendlier error; the unique index on
	// request_id is the authoritative guard
	exists, err := s.instances.ExistsByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Duplicate("duplicate request detected")
	}

	rootTaskID, err := s.tasks.GetRootTask(ctx, templateID)
	if err != nil {
		return nil, err
	}
	routing, err := s.resolver.Resolve(ctx, rootTaskID)
	if err != nil {
		return nil, err
	}

	instance := &models.WorkflowInstance{
		TemplateID: templateID,
		RequestID:  requestID,
		Status:     models.InstanceStatusRunning,
	}
	process := &models.Process{
		TaskID:     rootTaskID,
		Status:     models.ProcessStatusProcessing,
		AssignedTo: routing.AssignedTo,
		GroupID:    routing.GroupID,
		LevelID:    routing.LevelID,
	}

	err = s.uow.Execute(ctx, func(tx *sqlx.Tx) error {
		if err := s.instances.CreateInstance(ctx, tx, instance); err != nil {
			return err
		}
		process.InstanceID = instance.ID
		return s.instances.CreateProcess(ctx, tx, process)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.TaskAssigned(ctx, process, routing)
	s.logger.Info("instance started", map[string]interface{}{
		"instance_id": instance.ID,
		"template_id": templateID,
		"request_id":  requestID,
		"root_task":   rootTaskID,
	})

	return &StartResult{
		InstanceID: instance.ID,
		ProcessID:  process.ID,
		TaskID:     rootTaskID,
		Routing:    routing,
	}, nil
}

// Complete closes a process and advances the instance: dependents that pass
// the join policy get a new process each, and an instance with no work left
// is marked completed.
func (s *RuntimeService) Complete(ctx context.Context, processID, taskID int64) (*CompleteResult, error) {
	process, err := s.instances.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	if process.TaskID != taskID {
		return nil, apperrors.Validation("task_id does not match the process", nil)
	}
	if process.Status == models.ProcessStatusCompleted {
		return nil, apperrors.Conflict("process already completed")
	}

	err = s.completePolicy.Execute(ctx, func(ctx context.Context) error {
		return s.instances.UpdateProcessStatus(ctx, processID, models.ProcessStatusCompleted)
	})
	if err != nil {
		return nil, apperrors.RetryExhausted("failed to complete process", err)
	}

	result := &CompleteResult{ProcessID: processID}

	dependents, err := s.tasks.GetDependents(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if len(dependents) == 0 {
		done, err := s.finishIfIdle(ctx, process.InstanceID)
		if err != nil {
			return nil, err
		}
		result.InstanceCompleted = done
		return result, nil
	}

	for _, dep := range dependents {
		ready, err := s.join.Ready(ctx, process.InstanceID, dep.NextTaskID)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}

		routing, err := s.resolver.Resolve(ctx, dep.NextTaskID)
		if err != nil {
			return nil, err
		}
		next := &models.Process{
			InstanceID: process.InstanceID,
			TaskID:     dep.NextTaskID,
			Status:     models.ProcessStatusProcessing,
			AssignedTo: routing.AssignedTo,
			GroupID:    routing.GroupID,
			LevelID:    routing.LevelID,
		}
		if err := s.instances.CreateProcess(ctx, nil, next); err != nil {
			return nil, err
		}
		s.notifier.TaskAssigned(ctx, next, routing)
		result.Spawned = append(result.Spawned, SpawnedProcess{
			ProcessID: next.ID,
			TaskID:    dep.NextTaskID,
			Routing:   routing,
		})
	}

	s.logger.Info("process completed", map[string]interface{}{
		"process_id":  processID,
		"instance_id": process.InstanceID,
		"spawned":     len(result.Spawned),
	})
	return result, nil
}

// GetInstance returns one workflow instance
func (s *RuntimeService) GetInstance(ctx context.Context, id int64) (*models.WorkflowInstance, error) {
	return s.instances.GetInstance(ctx, id)
}

// ListInstances pages through instances in the given state
func (s *RuntimeService) ListInstances(ctx context.Context, status models.InstanceStatus, page, pageSize int) ([]models.WorkflowInstance, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.instances.ListInstancesByStatus(ctx, status, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(page, pageSize, total), nil
}

// ListProcesses returns an instance's processes, optionally filtered by
// status
func (s *RuntimeService) ListProcesses(ctx context.Context, instanceID int64, status *models.ProcessStatus) ([]models.Process, error) {
	if status != nil && !models.ValidProcessStatus(*status) {
		return nil, apperrors.Validation("unknown process status", nil)
	}
	if _, err := s.instances.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.instances.ListProcesses(ctx, instanceID, status)
}

// TaskInfo pairs a task's resolved routing with the actions the assigned
// group is permitted to take on it
type TaskInfo struct {
	Routing *models.RoutingInfo      `json:"routing"`
	Actions []models.TaskGroupAction `json:"actions,omitempty"`
}

// GetTaskInfo resolves the routing for a live process: the task attributes,
// the responsible group and level, and the group's permitted actions
func (s *RuntimeService) GetTaskInfo(ctx context.Context, processID int64) (*TaskInfo, error) {
	process, err := s.instances.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	routing, err := s.resolver.Resolve(ctx, process.TaskID)
	if err != nil {
		return nil, err
	}
	actions, err := s.tasks.ListTaskGroupActions(ctx, process.TaskID)
	if err != nil {
		return nil, err
	}
	return &TaskInfo{Routing: routing, Actions: actions}, nil
}

// finishIfIdle marks the instance completed when no open processes remain
func (s *RuntimeService) finishIfIdle(ctx context.Context, instanceID int64) (bool, error) {
	processes, err := s.instances.ListProcesses(ctx, instanceID, nil)
	if err != nil {
		return false, err
	}
	for _, p := range processes {
		if p.Status != models.ProcessStatusCompleted {
			return false, nil
		}
	}
	if err := s.instances.UpdateInstanceStatus(ctx, instanceID, models.InstanceStatusCompleted); err != nil {
		return false, err
	}
	s.logger.Info("instance completed", map[string]interface{}{"instance_id": instanceID})
	return true, nil
}
