package services

import (
	"context"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

// JoinPolicy names for configuration
const (
	JoinPolicyAny = "any"
	JoinPolicyAll = "all"
)

// JoinPolicy decides whether a dependent task is ready to start once one
// of its predecessors completes
type JoinPolicy interface {
	Ready(ctx context.Context, instanceID, dependentTaskID int64) (bool, error)
}

// anyJoin starts the dependent as soon as any predecessor completes
type anyJoin struct{}

func (anyJoin) Ready(context.Context, int64, int64) (bool, error) {
	return true, nil
}

// allJoin waits until every predecessor of the dependent has a completed
// process within the instance
type allJoin struct {
	tasks     interfaces.TaskRepository
	instances interfaces.InstanceRepository
}

func (j allJoin) Ready(ctx context.Context, instanceID, dependentTaskID int64) (bool, error) {
	deps, err := j.tasks.GetDependencies(ctx, dependentTaskID)
	if err != nil {
		return false, err
	}
	if len(deps) <= 1 {
		return true, nil
	}

	taskIDs := make([]int64, 0, len(deps))
	for _, dep := range deps {
		taskIDs = append(taskIDs, dep.TaskID)
	}
	completed, err := j.instances.CountCompletedTasks(ctx, instanceID, taskIDs)
	if err != nil {
		return false, err
	}
	return completed >= len(taskIDs), nil
}

// NewJoinPolicy selects a join policy by name
func NewJoinPolicy(name string, tasks interfaces.TaskRepository, instances interfaces.InstanceRepository) (JoinPolicy, error) {
	switch name {
	case JoinPolicyAny, "":
		return anyJoin{}, nil
	case JoinPolicyAll:
		return allJoin{tasks: tasks, instances: instances}, nil
	default:
		return nil, apperrors.Validation("unknown join policy "+name, nil)
	}
}
