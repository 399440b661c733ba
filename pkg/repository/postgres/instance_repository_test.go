package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

func newInstanceRepo(t *testing.T) (*instanceRepository, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	repo := NewInstanceRepository(db, testLogger(), observability.NoopStartSpan())
	return repo.(*instanceRepository), mock
}

func TestCreateInstance(t *testing.T) {
	repo, mock := newInstanceRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workflow_instances")).
		WithArgs(int64(7), "REQ-001", models.InstanceStatusRunning, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	inst := &models.WorkflowInstance{
		TemplateID: 7,
		RequestID:  "REQ-001",
		Status:     models.InstanceStatusRunning,
	}
	require.NoError(t, repo.CreateInstance(context.Background(), nil, inst))
	assert.Equal(t, int64(42), inst.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInstanceDuplicateRequestID(t *testing.T) {
	repo, mock := newInstanceRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workflow_instances")).
		WillReturnError(&pq.Error{Code: "23505"})

	inst := &models.WorkflowInstance{
		TemplateID: 7,
		RequestID:  "REQ-001",
		Status:     models.InstanceStatusRunning,
	}
	err := repo.CreateInstance(context.Background(), nil, inst)
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicate(err))
}

func TestExistsByRequestID(t *testing.T) {
	repo, mock := newInstanceRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("REQ-001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByRequestID(context.Background(), "REQ-001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateProcessStatusNotFound(t *testing.T) {
	repo, mock := newInstanceRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_processes")).
		WithArgs(models.ProcessStatusCompleted, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProcessStatus(context.Background(), 99, models.ProcessStatusCompleted)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateProcessStatusInvalid(t *testing.T) {
	repo, _ := newInstanceRepo(t)

	err := repo.UpdateProcessStatus(context.Background(), 1, models.ProcessStatus("bogus"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassValidation, apperrors.ClassOf(err))
}

func TestCountCompletedTasks(t *testing.T) {
	repo, mock := newInstanceRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT task_id)")).
		WithArgs(int64(5), pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountCompletedTasks(context.Background(), 5, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCountCompletedTasksEmpty(t *testing.T) {
	repo, _ := newInstanceRepo(t)

	count, err := repo.CountCompletedTasks(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
