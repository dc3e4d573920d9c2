package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/services"
)

// AppHandler handles CRUD for apps and the entities apps reference.
type AppHandler struct {
	store       *services.EntityStore
	authService *services.AuthService
}

// NewAppHandler creates a new AppHandler instance.
func NewAppHandler(store *services.EntityStore, authService *services.AuthService) *AppHandler {
	return &AppHandler{store: store, authService: authService}
}

func (h *AppHandler) member(c *gin.Context) bool {
	account := middleware.Account(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	if !h.authService.IsMember(account.ID, c.Param("teamId")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission"})
		return false
	}
	return true
}

// CreateApp creates an app in the team.
func (h *AppHandler) CreateApp(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var req models.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.store.CreateApp(c.Param("teamId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"app": app})
}

// ListApps returns the team's apps.
func (h *AppHandler) ListApps(c *gin.Context) {
	if !h.member(c) {
		return
	}

	apps, err := h.store.ListApps(c.Param("teamId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

// GetApp returns one app.
func (h *AppHandler) GetApp(c *gin.Context) {
	if !h.member(c) {
		return
	}

	app, err := h.store.GetApp(services.TeamScoped(c.Param("teamId")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"app": app})
}

// UpdateApp updates an app's mutable fields.
func (h *AppHandler) UpdateApp(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var req models.UpdateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.store.UpdateApp(c.Param("teamId"), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"app": app})
}

// DeleteApp removes an app. Sessions created from it keep running.
func (h *AppHandler) DeleteApp(c *gin.Context) {
	if !h.member(c) {
		return
	}

	if err := h.store.DeleteApp(c.Param("teamId"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "App deleted"})
}

// CreateAgent creates an agent in the team.
func (h *AppHandler) CreateAgent(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var agent models.Agent
	if err := c.ShouldBindJSON(&agent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agent.TeamID = c.Param("teamId")

	created, err := h.store.CreateAgent(&agent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agent": created})
}

// ListAgents returns the team's agents.
func (h *AppHandler) ListAgents(c *gin.Context) {
	if !h.member(c) {
		return
	}

	agents, err := h.store.ListAgents(c.Param("teamId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// GetAgent returns one agent.
func (h *AppHandler) GetAgent(c *gin.Context) {
	if !h.member(c) {
		return
	}

	agent, err := h.store.GetAgent(services.TeamScoped(c.Param("teamId")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

// DeleteAgent removes an agent.
func (h *AppHandler) DeleteAgent(c *gin.Context) {
	if !h.member(c) {
		return
	}

	if err := h.store.DeleteAgent(c.Param("teamId"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted"})
}

// CreateCrew creates a crew in the team.
func (h *AppHandler) CreateCrew(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var crew models.Crew
	if err := c.ShouldBindJSON(&crew); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crew.TeamID = c.Param("teamId")

	created, err := h.store.CreateCrew(&crew)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"crew": created})
}

// GetCrew returns one crew.
func (h *AppHandler) GetCrew(c *gin.Context) {
	if !h.member(c) {
		return
	}

	crew, err := h.store.GetCrew(services.TeamScoped(c.Param("teamId")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crew": crew})
}

// DeleteCrew removes a crew.
func (h *AppHandler) DeleteCrew(c *gin.Context) {
	if !h.member(c) {
		return
	}

	if err := h.store.DeleteCrew(c.Param("teamId"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Crew deleted"})
}

// CreateTask creates a task in the team.
func (h *AppHandler) CreateTask(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var task models.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task.TeamID = c.Param("teamId")

	created, err := h.store.CreateTask(&task)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": created})
}

// GetTask returns one task.
func (h *AppHandler) GetTask(c *gin.Context) {
	if !h.member(c) {
		return
	}

	task, err := h.store.GetTask(services.TeamScoped(c.Param("teamId")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// CreateVariable creates a variable in the team.
func (h *AppHandler) CreateVariable(c *gin.Context) {
	if !h.member(c) {
		return
	}

	var variable models.Variable
	if err := c.ShouldBindJSON(&variable); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	variable.TeamID = c.Param("teamId")

	created, err := h.store.CreateVariable(&variable)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"variable": created})
}

// GetVariable returns one variable.
func (h *AppHandler) GetVariable(c *gin.Context) {
	if !h.member(c) {
		return
	}

	variable, err := h.store.GetVariable(services.TeamScoped(c.Param("teamId")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"variable": variable})
}
