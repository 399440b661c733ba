package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/services"
)

// FormAPI handles form registry endpoints. Forms hang off tasks, so routes
// nest under /tasks/:task_id.
type FormAPI struct {
	registry *services.RegistryService
}

// NewFormAPI creates the form registry API
func NewFormAPI(registry *services.RegistryService) *FormAPI {
	return &FormAPI{registry: registry}
}

// RegisterRoutes registers form endpoints
func (a *FormAPI) RegisterRoutes(router *gin.RouterGroup) {
	forms := router.Group("/tasks/:task_id/form")
	forms.POST("", a.createForm)
	forms.GET("", a.getForm)
	forms.POST("/fields", a.addField)
	forms.PUT("/fields/:field_id", a.updateField)
	forms.DELETE("/fields/:field_id", a.deleteField)
}

type createFormRequest struct {
	FormName    string             `json:"form_name" binding:"required"`
	Description string             `json:"description"`
	Fields      []models.FieldSpec `json:"fields" binding:"required"`
}

func (a *FormAPI) createForm(c *gin.Context) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req createFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "form_name and fields are required")
		return
	}

	form, err := a.registry.CreateForm(c.Request.Context(), taskID, req.FormName, req.Description, req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "form created", form)
}

func (a *FormAPI) getForm(c *gin.Context) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		respondError(c, err)
		return
	}
	detail, err := a.registry.GetForm(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "form retrieved", detail)
}

func (a *FormAPI) addField(c *gin.Context) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var field models.FieldSpec
	if err := c.ShouldBindJSON(&field); err != nil {
		respondValidation(c, "invalid field definition")
		return
	}

	fieldID, err := a.registry.AddField(c.Request.Context(), taskID, field)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "field added", gin.H{"field_id": fieldID})
}

func (a *FormAPI) updateField(c *gin.Context) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		respondError(c, err)
		return
	}
	fieldID, err := pathID(c, "field_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var field models.FieldSpec
	if err := c.ShouldBindJSON(&field); err != nil {
		respondValidation(c, "invalid field definition")
		return
	}

	if err := a.registry.UpdateField(c.Request.Context(), taskID, fieldID, field); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "field updated", nil)
}

func (a *FormAPI) deleteField(c *gin.Context) {
	taskID, err := pathID(c, "task_id")
	if err != nil {
		respondError(c, err)
		return
	}
	fieldID, err := pathID(c, "field_id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := a.registry.DeleteField(c.Request.Context(), taskID, fieldID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "field deleted", nil)
}
