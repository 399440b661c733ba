package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

func newTaskRepo(t *testing.T) (*taskRepository, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db, testLogger(), observability.NoopStartSpan())
	return repo.(*taskRepository), mock
}

func TestCreateTask(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workflow_tasks")).
		WithArgs(int64(3), "Review request", models.TaskTypeManual, nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	task := &models.Task{TemplateID: 3, Name: "Review request", TaskType: models.TaskTypeManual}
	require.NoError(t, repo.CreateTask(context.Background(), nil, task))
	assert.Equal(t, int64(11), task.ID)
}

func TestGetRootTask(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	taskID, err := repo.GetRootTask(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), taskID)
}

func TestGetRootTaskFallsBackToLowestID(t *testing.T) {
	repo, mock := newTaskRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS")).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM workflow_tasks")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	taskID, err := repo.GetRootTask(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), taskID)
}

func TestGetDependents(t *testing.T) {
	repo, mock := newTaskRepo(t)

	rows := sqlmock.NewRows([]string{"next_task", "template_id", "name", "task_type", "assigned_role", "assigned_to", "task_condition"}).
		AddRow(int64(8), int64(3), "Approve", models.TaskTypeManual, nil, nil, nil).
		AddRow(int64(9), int64(3), "Notify", "email", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN task_dependencies")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	dependents, err := repo.GetDependents(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, dependents, 2)
	assert.Equal(t, int64(8), dependents[0].NextTaskID)
	assert.Equal(t, "Notify", dependents[1].Name)
}

func TestGetRoutingInfo(t *testing.T) {
	repo, mock := newTaskRepo(t)

	groupID := int64(4)
	groupName := "Support"
	rows := sqlmock.NewRows([]string{"id", "template_id", "name", "task_type", "assigned_to", "group_id", "level_id", "group_name", "level_name"}).
		AddRow(int64(5), int64(3), "Review request", models.TaskTypeManual, nil, groupID, nil, groupName, nil)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN task_groups")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	info, err := repo.GetRoutingInfo(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, info.GroupID)
	assert.Equal(t, groupID, *info.GroupID)
	require.NotNil(t, info.GroupName)
	assert.Equal(t, groupName, *info.GroupName)
	assert.Nil(t, info.AssignedTo)
}
