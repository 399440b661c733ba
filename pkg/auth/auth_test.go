package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
)

type fakeUserStore struct {
	users map[int64]*models.User
}

func (s *fakeUserStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return user, nil
}

func newVerifier(ttl time.Duration) (*Verifier, *fakeUserStore) {
	store := &fakeUserStore{users: map[int64]*models.User{
		1: {ID: 1, Name: "Sami", RoleID: 2, Status: models.UserStatusActive},
		2: {ID: 2, Name: "Nour", RoleID: 2, Status: models.UserStatusInactive},
	}}
	return NewVerifier("test-secret", store, ttl), store
}

func TestVerifyRoundTrip(t *testing.T) {
	v, _ := newVerifier(time.Hour)

	token, err := v.IssueToken(1, 2)
	require.NoError(t, err)

	user, err := v.Verify(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	v, _ := newVerifier(time.Hour)

	_, err := v.Verify(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassAuth, apperrors.ClassOf(err))

	_, err = v.Verify(context.Background(), "Bearer ")
	require.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	v, _ := newVerifier(time.Hour)

	token, err := v.IssueToken(1, 2)
	require.NoError(t, err)

	other := NewVerifier("other-secret", nil, time.Hour)
	otherToken, err := other.IssueToken(1, 2)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "Bearer "+otherToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassAuth, apperrors.ClassOf(err))

	_, err = v.Verify(context.Background(), "Bearer "+token+"x")
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, _ := newVerifier(-time.Minute)

	token, err := v.IssueToken(1, 2)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "Bearer "+token)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassAuth, apperrors.ClassOf(err))
}

func TestVerifyRejectsInactiveUser(t *testing.T) {
	v, _ := newVerifier(time.Hour)

	token, err := v.IssueToken(2, 2)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "Bearer "+token)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassAuth, apperrors.ClassOf(err))
}

func TestVerifyRejectsUnknownUser(t *testing.T) {
	v, _ := newVerifier(time.Hour)

	token, err := v.IssueToken(99, 2)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "Bearer "+token)
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassAuth, apperrors.ClassOf(err))
}
