package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/services"
)

// InstanceAPI handles the runtime endpoints: starting instances, completing
// tasks and inspecting live work
type InstanceAPI struct {
	runtime *services.RuntimeService
}

// NewInstanceAPI creates the runtime API
func NewInstanceAPI(runtime *services.RuntimeService) *InstanceAPI {
	return &InstanceAPI{runtime: runtime}
}

// RegisterRoutes registers runtime endpoints
func (a *InstanceAPI) RegisterRoutes(router *gin.RouterGroup) {
	router.PUT("/start_workflow/:template_id", a.startWorkflow)
	router.PUT("/complete_task/:process_id", a.completeTask)

	instances := router.Group("/instances")
	instances.GET("", a.listInstances)
	instances.GET("/:id", a.getInstance)
	instances.GET("/:id/processes", a.listProcesses)

	router.GET("/task_info/:process_id", a.getTaskInfo)
}

type startWorkflowRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

func (a *InstanceAPI) startWorkflow(c *gin.Context) {
	templateID, err := pathID(c, "template_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req startWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "request_id is required")
		return
	}

	result, err := a.runtime.Start(c.Request.Context(), templateID, req.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "workflow started", result)
}

type completeTaskRequest struct {
	TaskID int64 `json:"task_id" binding:"required"`
}

func (a *InstanceAPI) completeTask(c *gin.Context) {
	processID, err := pathID(c, "process_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "task_id is required")
		return
	}

	result, err := a.runtime.Complete(c.Request.Context(), processID, req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "task completed", result)
}

func (a *InstanceAPI) listInstances(c *gin.Context) {
	status := models.InstanceStatus(c.DefaultQuery("status", string(models.InstanceStatusRunning)))
	page, pageSize := pageParams(c)

	instances, pagination, err := a.runtime.ListInstances(c.Request.Context(), status, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "instances retrieved", gin.H{
		"instances":  instances,
		"pagination": pagination,
	})
}

func (a *InstanceAPI) getInstance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	instance, err := a.runtime.GetInstance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "instance retrieved", instance)
}

func (a *InstanceAPI) listProcesses(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var status *models.ProcessStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ProcessStatus(raw)
		status = &s
	}

	processes, err := a.runtime.ListProcesses(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "processes retrieved", processes)
}

// getTaskInfo returns the task attributes and routing for a live process
func (a *InstanceAPI) getTaskInfo(c *gin.Context) {
	processID, err := pathID(c, "process_id")
	if err != nil {
		respondError(c, err)
		return
	}
	info, err := a.runtime.GetTaskInfo(c.Request.Context(), processID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "task info retrieved", info)
}
