package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bpmflow/bpmflow/pkg/services"
)

// DirectoryAPI handles the organizational catalogs: groups, levels, action
// types, field types and lockups
type DirectoryAPI struct {
	directory *services.DirectoryService
}

// NewDirectoryAPI creates the directory API
func NewDirectoryAPI(directory *services.DirectoryService) *DirectoryAPI {
	return &DirectoryAPI{directory: directory}
}

// RegisterRoutes registers directory endpoints
func (a *DirectoryAPI) RegisterRoutes(router *gin.RouterGroup) {
	groups := router.Group("/groups")
	groups.POST("", a.createGroup)
	groups.GET("", a.listGroups)
	groups.GET("/search", a.searchGroups)
	groups.GET("/:id", a.getGroup)
	groups.DELETE("/:id", a.deleteGroup)

	levels := router.Group("/levels")
	levels.POST("", a.createLevel)
	levels.GET("", a.listLevels)

	actionTypes := router.Group("/action_types")
	actionTypes.POST("", a.createActionType)
	actionTypes.GET("", a.listActionTypes)

	fieldTypes := router.Group("/field_types")
	fieldTypes.POST("", a.createFieldType)
	fieldTypes.GET("", a.listFieldTypes)

	lockups := router.Group("/lockups")
	lockups.POST("", a.createLockup)
	lockups.GET("", a.listLockups)
	lockups.GET("/search", a.searchLockups)
	lockups.GET("/:id", a.getLockup)
	lockups.DELETE("/:id", a.deleteLockup)
	lockups.POST("/:id/entries", a.addLockupEntry)
	lockups.GET("/:id/entries", a.listLockupEntries)
	lockups.DELETE("/:id/entries/:entry_id", a.deleteLockupEntry)
}

type namedRequest struct {
	Name string `json:"name" binding:"required"`
}

type createGroupRequest struct {
	GroupName   string `json:"group_name" binding:"required"`
	Description string `json:"description"`
}

func (a *DirectoryAPI) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "group_name is required")
		return
	}
	group, err := a.directory.CreateGroup(c.Request.Context(), req.GroupName, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "group created", group)
}

func (a *DirectoryAPI) listGroups(c *gin.Context) {
	page, pageSize := pageParams(c)
	groups, pagination, err := a.directory.ListGroups(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "groups retrieved", gin.H{
		"groups":     groups,
		"pagination": pagination,
	})
}

func (a *DirectoryAPI) searchGroups(c *gin.Context) {
	groups, err := a.directory.SearchGroups(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "groups retrieved", groups)
}

func (a *DirectoryAPI) getGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	group, err := a.directory.GetGroup(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "group retrieved", group)
}

func (a *DirectoryAPI) deleteGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.directory.DeleteGroup(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "group deleted", nil)
}

func (a *DirectoryAPI) createLevel(c *gin.Context) {
	var req namedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}
	level, err := a.directory.CreateLevel(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "level created", level)
}

func (a *DirectoryAPI) listLevels(c *gin.Context) {
	page, pageSize := pageParams(c)
	levels, pagination, err := a.directory.ListLevels(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "levels retrieved", gin.H{
		"levels":     levels,
		"pagination": pagination,
	})
}

func (a *DirectoryAPI) createActionType(c *gin.Context) {
	var req namedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}
	actionType, err := a.directory.CreateActionType(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "action type created", actionType)
}

func (a *DirectoryAPI) listActionTypes(c *gin.Context) {
	page, pageSize := pageParams(c)
	types, pagination, err := a.directory.ListActionTypes(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "action types retrieved", gin.H{
		"action_types": types,
		"pagination":   pagination,
	})
}

func (a *DirectoryAPI) createFieldType(c *gin.Context) {
	var req namedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}
	fieldType, err := a.directory.CreateFieldType(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "field type created", fieldType)
}

func (a *DirectoryAPI) listFieldTypes(c *gin.Context) {
	page, pageSize := pageParams(c)
	types, pagination, err := a.directory.ListFieldTypes(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "field types retrieved", gin.H{
		"field_types": types,
		"pagination":  pagination,
	})
}

type createLockupRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (a *DirectoryAPI) createLockup(c *gin.Context) {
	var req createLockupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}
	lockup, err := a.directory.CreateLockup(c.Request.Context(), req.Name, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "lockup created", lockup)
}

func (a *DirectoryAPI) listLockups(c *gin.Context) {
	page, pageSize := pageParams(c)
	lockups, pagination, err := a.directory.ListLockups(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockups retrieved", gin.H{
		"lockups":    lockups,
		"pagination": pagination,
	})
}

func (a *DirectoryAPI) searchLockups(c *gin.Context) {
	lockups, err := a.directory.SearchLockups(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockups retrieved", lockups)
}

func (a *DirectoryAPI) getLockup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	lockup, err := a.directory.GetLockup(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockup retrieved", lockup)
}

func (a *DirectoryAPI) deleteLockup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.directory.DeleteLockup(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockup deleted", nil)
}

func (a *DirectoryAPI) addLockupEntry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req namedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}
	entryID, err := a.directory.AddLockupEntry(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "lockup entry created", gin.H{"id": entryID})
}

func (a *DirectoryAPI) listLockupEntries(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := a.directory.ListLockupEntries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockup entries retrieved", entries)
}

func (a *DirectoryAPI) deleteLockupEntry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	entryID, err := pathID(c, "entry_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.directory.DeleteLockupEntry(c.Request.Context(), id, entryID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "lockup entry deleted", nil)
}
