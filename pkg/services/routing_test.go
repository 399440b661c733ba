package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

// countingTaskRepo counts routing lookups so tests can observe cache hits.
type countingTaskRepo struct {
	*fakeTaskRepo
	routingCalls int
}

func (r *countingTaskRepo) GetRoutingInfo(ctx context.Context, taskID int64) (*models.RoutingInfo, error) {
	r.routingCalls++
	return r.fakeTaskRepo.GetRoutingInfo(ctx, taskID)
}

func TestResolveCachesRouting(t *testing.T) {
	repo := &countingTaskRepo{fakeTaskRepo: newFakeTaskRepo()}
	task := &models.Task{TemplateID: 1, Name: "Review", TaskType: models.TaskTypeManual}
	require.NoError(t, repo.CreateTask(context.Background(), nil, task))

	resolver, err := NewRoutingResolver(repo, 16, observability.NewNoopLogger())
	require.NoError(t, err)

	first, err := resolver.Resolve(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review", first.Name)
	assert.Equal(t, 1, repo.routingCalls)

	second, err := resolver.Resolve(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.routingCalls)
}

func TestResolveUnknownTask(t *testing.T) {
	resolver, err := NewRoutingResolver(newFakeTaskRepo(), 16, observability.NewNoopLogger())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassNotFound, apperrors.ClassOf(err))
}

func TestNewRoutingResolverRejectsBadSize(t *testing.T) {
	_, err := NewRoutingResolver(newFakeTaskRepo(), 0, observability.NewNoopLogger())
	require.Error(t, err)
}
