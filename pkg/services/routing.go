package services

import (
	"context"

	"github.com/bpmflow/bpmflow/pkg/cache"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

// RoutingResolver answers who is responsible for a task. Compiled routing
// is immutable, so resolved entries are cached in a bounded LRU.
type RoutingResolver struct {
	tasks  interfaces.TaskRepository
	cache  *cache.LRU[int64, *models.RoutingInfo]
	logger observability.Logger
}

// NewRoutingResolver creates a resolver with an LRU of the given size
func NewRoutingResolver(tasks interfaces.TaskRepository, cacheSize int, logger observability.Logger) (*RoutingResolver, error) {
	c, err := cache.NewLRU[int64, *models.RoutingInfo](cacheSize)
	if err != nil {
		return nil, err
	}
	return &RoutingResolver{
		tasks:  tasks,
		cache:  c,
		logger: logger.WithPrefix("routing"),
	}, nil
}

// Resolve returns the routing assignment for a task. Partial routing is
// valid: a task may resolve with a group but no assignee, or neither.
func (r *RoutingResolver) Resolve(ctx context.Context, taskID int64) (*models.RoutingInfo, error) {
	if info, ok := r.cache.Get(taskID); ok {
		return info, nil
	}

	info, err := r.tasks.GetRoutingInfo(ctx, taskID)
	if err != nil {
		return nil, err
	}

	r.cache.Set(taskID, info)
	r.logger.Debug("routing resolved", map[string]interface{}{
		"task_id":  taskID,
		"group_id": info.GroupID,
	})
	return info, nil
}
