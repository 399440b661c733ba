package services

import (
	"context"

	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

// Notifier is told when a process lands on someone's desk. Delivery
// transports (mail, chat) plug in behind this interface; the default
// implementation only logs.
type Notifier interface {
	TaskAssigned(ctx context.Context, process *models.Process, routing *models.RoutingInfo)
}

type logNotifier struct {
	logger observability.Logger
}

// NewLogNotifier creates a Notifier that records assignments in the log
func NewLogNotifier(logger observability.Logger) Notifier {
	return &logNotifier{logger: logger.WithPrefix("notify")}
}

func (n *logNotifier) TaskAssigned(_ context.Context, process *models.Process, routing *models.RoutingInfo) {
	fields := map[string]interface{}{
		"process_id":  process.ID,
		"instance_id": process.InstanceID,
		"task_id":     process.TaskID,
		"task_name":   routing.Name,
	}
	if routing.GroupName != nil {
		fields["group"] = *routing.GroupName
	}
	if routing.AssignedTo != nil {
		fields["assigned_to"] = *routing.AssignedTo
	}
	n.logger.Info("task assigned", fields)
}
