package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bpmflow/bpmflow/pkg/services"
)

// WorkflowAPI handles workflow and template definition endpoints,
// including template compilation
type WorkflowAPI struct {
	templates *services.TemplateService
	compiler  *services.CompilerService
}

// NewWorkflowAPI creates the definition API
func NewWorkflowAPI(templates *services.TemplateService, compiler *services.CompilerService) *WorkflowAPI {
	return &WorkflowAPI{templates: templates, compiler: compiler}
}

// RegisterRoutes registers workflow endpoints under /workflows
func (a *WorkflowAPI) RegisterRoutes(router *gin.RouterGroup) {
	workflows := router.Group("/workflows")
	workflows.POST("", a.createWorkflow)
	workflows.GET("", a.listWorkflows)
	workflows.GET("/:id", a.getWorkflow)
	workflows.DELETE("/:id", a.deleteWorkflow)
	workflows.GET("/:id/templates", a.listTemplates)
	workflows.POST("/:id/templates", a.createTemplate)

	templates := router.Group("/workflows/templates")
	templates.GET("/:template_id", a.getTemplate)
	templates.PUT("/:template_id", a.updateTemplate)
	templates.DELETE("/:template_id", a.deleteTemplate)
	templates.GET("/execute/:template_id", a.executeTemplate)
}

type createWorkflowRequest struct {
	Label       string `json:"label"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (a *WorkflowAPI) createWorkflow(c *gin.Context) {
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	var createdBy int64
	if user := currentUser(c); user != nil {
		createdBy = user.ID
	}
	workflow, err := a.templates.CreateWorkflow(c.Request.Context(), req.Label, req.Name, req.Description, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "workflow created", workflow)
}

func (a *WorkflowAPI) listWorkflows(c *gin.Context) {
	page, pageSize := pageParams(c)
	workflows, pagination, err := a.templates.ListWorkflows(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "workflows retrieved", gin.H{
		"workflows":  workflows,
		"pagination": pagination,
	})
}

func (a *WorkflowAPI) getWorkflow(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	workflow, err := a.templates.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "workflow retrieved", workflow)
}

func (a *WorkflowAPI) deleteWorkflow(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.templates.DeleteWorkflow(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "workflow deleted", nil)
}

type createTemplateRequest struct {
	DiagramJSON json.RawMessage `json:"diagram_json" binding:"required"`
}

func (a *WorkflowAPI) createTemplate(c *gin.Context) {
	workflowID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	var createdBy int64
	if user := currentUser(c); user != nil {
		createdBy = user.ID
	}
	template, err := a.templates.CreateTemplate(c.Request.Context(), workflowID, req.DiagramJSON, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "template created", template)
}

func (a *WorkflowAPI) listTemplates(c *gin.Context) {
	workflowID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	templates, err := a.templates.ListTemplatesByWorkflow(c.Request.Context(), workflowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "templates retrieved", templates)
}

func (a *WorkflowAPI) getTemplate(c *gin.Context) {
	id, err := pathID(c, "template_id")
	if err != nil {
		respondError(c, err)
		return
	}
	template, err := a.templates.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "template retrieved", template)
}

func (a *WorkflowAPI) updateTemplate(c *gin.Context) {
	id, err := pathID(c, "template_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}
	template, err := a.templates.UpdateTemplate(c.Request.Context(), id, req.DiagramJSON)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "template updated", template)
}

func (a *WorkflowAPI) deleteTemplate(c *gin.Context) {
	id, err := pathID(c, "template_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.templates.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "template deleted", nil)
}

// executeTemplate compiles a template's diagram into executable tasks
func (a *WorkflowAPI) executeTemplate(c *gin.Context) {
	id, err := pathID(c, "template_id")
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := a.compiler.Compile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "template executed", result)
}
