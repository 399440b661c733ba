package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/retry"
)

type runtimeFixture struct {
	runtime    *RuntimeService
	templates  *fakeTemplateRepo
	tasks      *fakeTaskRepo
	instances  *fakeInstanceRepo
	notifier   *fakeNotifier
	templateID int64
}

// newRuntimeFixture builds a compiled template whose tasks and edges are
// provided by the caller. taskNames are created in order; edges index into
// taskNames (0-based).
func newRuntimeFixture(t *testing.T, joinPolicy string, taskNames []string, edges [][2]int) *runtimeFixture {
	t.Helper()
	templates := newFakeTemplateRepo()
	tasks := newFakeTaskRepo()
	instances := newFakeInstanceRepo()
	notifier := &fakeNotifier{}

	tpl := &models.Template{WorkflowID: 1, DiagramJSON: []byte(`{}`), Executed: true}
	require.NoError(t, templates.CreateTemplate(context.Background(), tpl))

	ids := make([]int64, len(taskNames))
	for i, name := range taskNames {
		task := &models.Task{TemplateID: tpl.ID, Name: name, TaskType: models.TaskTypeManual}
		require.NoError(t, tasks.CreateTask(context.Background(), nil, task))
		ids[i] = task.ID
	}
	for _, edge := range edges {
		dep := &models.TaskDependency{TemplateID: tpl.ID, TaskID: ids[edge[0]], DependentTaskID: ids[edge[1]]}
		require.NoError(t, tasks.CreateDependency(context.Background(), nil, dep))
	}

	resolver, err := NewRoutingResolver(tasks, 16, observability.NewNoopLogger())
	require.NoError(t, err)
	join, err := NewJoinPolicy(joinPolicy, tasks, instances)
	require.NoError(t, err)

	runtime := NewRuntimeService(
		templates, tasks, instances, fakeUnitOfWork{},
		resolver, join, notifier,
		retry.NewFixedDelay(time.Millisecond, 3),
		observability.NewNoopLogger(),
	)

	return &runtimeFixture{
		runtime:    runtime,
		templates:  templates,
		tasks:      tasks,
		instances:  instances,
		notifier:   notifier,
		templateID: tpl.ID,
	}
}

func TestStartOpensRootProcess(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit", "Review"}, [][2]int{{0, 1}})

	result, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	process, err := f.instances.GetProcess(context.Background(), result.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusProcessing, process.Status)
	assert.Equal(t, result.TaskID, process.TaskID)
	assert.Equal(t, []int64{result.TaskID}, f.notifier.assigned)
}

func TestStartDuplicateRequestID(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)

	_, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	_, err = f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicate(err))
}

func TestStartRequiresCompiledTemplate(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)
	draft := &models.Template{WorkflowID: 1, DiagramJSON: []byte(`{}`)}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), draft))

	_, err := f.runtime.Start(context.Background(), draft.ID, "REQ-002")
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassValidation, apperrors.ClassOf(err))
}

func TestStartRequiresRequestID(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)

	_, err := f.runtime.Start(context.Background(), f.templateID, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassValidation, apperrors.ClassOf(err))
}

func TestCompleteAdvancesLinearWorkflow(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit", "Review"}, [][2]int{{0, 1}})

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	result, err := f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.NoError(t, err)

	require.Len(t, result.Spawned, 1)
	assert.False(t, result.InstanceCompleted)

	next, err := f.instances.GetProcess(context.Background(), result.Spawned[0].ProcessID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusProcessing, next.Status)

	// finishing the last task closes the instance
	final, err := f.runtime.Complete(context.Background(), next.ID, next.TaskID)
	require.NoError(t, err)
	assert.Empty(t, final.Spawned)
	assert.True(t, final.InstanceCompleted)

	inst, err := f.instances.GetInstance(context.Background(), start.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, inst.Status)
}

func TestCompleteFansOut(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit", "Audit", "Archive"}, [][2]int{{0, 1}, {0, 2}})

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	result, err := f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.NoError(t, err)
	assert.Len(t, result.Spawned, 2)
}

func TestCompleteAllJoinWaitsForEveryPredecessor(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAll, []string{"Submit", "Audit", "Publish"}, [][2]int{{0, 2}, {1, 2}})

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	// the second branch runs independently of the entry process
	second := &models.Process{InstanceID: start.InstanceID, TaskID: 2, Status: models.ProcessStatusProcessing}
	require.NoError(t, f.instances.CreateProcess(context.Background(), nil, second))

	first, err := f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.NoError(t, err)
	assert.Empty(t, first.Spawned, "join target must wait for both predecessors")

	joined, err := f.runtime.Complete(context.Background(), second.ID, second.TaskID)
	require.NoError(t, err)
	require.Len(t, joined.Spawned, 1)
	assert.Equal(t, int64(3), joined.Spawned[0].TaskID)
}

func TestCompleteRejectsTaskMismatch(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit", "Review"}, [][2]int{{0, 1}})

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	_, err = f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID+1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassValidation, apperrors.ClassOf(err))
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	_, err = f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.NoError(t, err)

	_, err = f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassConflict, apperrors.ClassOf(err))
}

func TestGetTaskInfoIncludesGroupActions(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	require.NoError(t, f.tasks.CreateTaskGroupActions(context.Background(), nil, []models.TaskGroupAction{
		{TaskID: start.TaskID, GroupID: 2, ActionID: 10},
	}))

	info, err := f.runtime.GetTaskInfo(context.Background(), start.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, "Submit", info.Routing.Name)
	require.Len(t, info.Actions, 1)
	assert.Equal(t, int64(10), info.Actions[0].ActionID)
}

func TestCompleteRetryExhausted(t *testing.T) {
	f := newRuntimeFixture(t, JoinPolicyAny, []string{"Submit"}, nil)

	start, err := f.runtime.Start(context.Background(), f.templateID, "REQ-001")
	require.NoError(t, err)

	f.instances.updateFailure = errors.New("connection reset")

	_, err = f.runtime.Complete(context.Background(), start.ProcessID, start.TaskID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassRetryExhausted, apperrors.ClassOf(err))
}
