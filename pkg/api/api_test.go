package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpmflow/bpmflow/pkg/auth"
	"github.com/bpmflow/bpmflow/pkg/common/config"
	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

type fakeUserStore struct{}

func (fakeUserStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	if id != 1 {
		return nil, apperrors.NotFound("user", id)
	}
	return &models.User{ID: 1, Name: "Amina", RoleID: 1, Status: models.UserStatusActive}, nil
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		ListenAddress:  ":0",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		IdleTimeout:    30 * time.Second,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

// newTestRouter builds the full router with no auth. The service pointers
// are nil: the tests below exercise only paths that fail validation before
// reaching a service.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := NewServer(testAPIConfig(), "test", Deps{
		Workflows: NewWorkflowAPI(nil, nil),
		Instances: NewInstanceAPI(nil),
		Forms:     NewFormAPI(nil),
		Directory: NewDirectoryAPI(nil),
	}, observability.NewNoopLogger())
	return srv.Router()
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestHealthEndpointIsOpen(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "ok", envelope.Message)
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsGeneratedWhenAbsent(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStartWorkflowRejectsBadTemplateID(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPut, "/api/v1/start_workflow/abc", `{"request_id": "REQ-001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Message, "template_id")
}

func TestStartWorkflowRejectsMissingRequestID(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPut, "/api/v1/start_workflow/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Message, "request_id")
}

func TestCompleteTaskRejectsBadProcessID(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPut, "/api/v1/complete_task/0", `{"task_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Message, "process_id")
}

func TestCompleteTaskRejectsMissingTaskID(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPut, "/api/v1/complete_task/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Message, "task_id")
}

func TestExecuteTemplateRejectsBadID(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodGet, "/api/v1/workflows/templates/execute/-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
}

func TestCreateFormRejectsMissingBody(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPost, "/api/v1/tasks/4/form", `{"description": "no name or fields"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
}

func TestCreateGroupRejectsMissingName(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doRequest(t, router, http.MethodPost, "/api/v1/groups", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := auth.NewVerifier("test-secret", fakeUserStore{}, time.Hour)
	srv := NewServer(testAPIConfig(), "test", Deps{
		Workflows: NewWorkflowAPI(nil, nil),
		Instances: NewInstanceAPI(nil),
		Forms:     NewFormAPI(nil),
		Directory: NewDirectoryAPI(nil),
		Verifier:  verifier,
	}, observability.NewNoopLogger())

	rec, envelope := doRequest(t, srv.Router(), http.MethodPut, "/api/v1/complete_task/abc", `{"task_id": 1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, envelope.Success)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := auth.NewVerifier("test-secret", fakeUserStore{}, time.Hour)
	srv := NewServer(testAPIConfig(), "test", Deps{
		Workflows: NewWorkflowAPI(nil, nil),
		Instances: NewInstanceAPI(nil),
		Forms:     NewFormAPI(nil),
		Directory: NewDirectoryAPI(nil),
		Verifier:  verifier,
	}, observability.NewNoopLogger())

	token, err := verifier.IssueToken(1, 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/complete_task/abc", strings.NewReader(`{"task_id": 1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// past auth, into the handler, which rejects the path parameter
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testAPIConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	srv := NewServer(cfg, "test", Deps{
		Workflows: NewWorkflowAPI(nil, nil),
		Instances: NewInstanceAPI(nil),
		Forms:     NewFormAPI(nil),
		Directory: NewDirectoryAPI(nil),
	}, observability.NewNoopLogger())

	rec, _ := doRequest(t, srv.Router(), http.MethodGet, "/api/v1/instances/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec2, envelope := doRequest(t, srv.Router(), http.MethodGet, "/api/v1/instances/abc", "")
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.False(t, envelope.Success)
}
