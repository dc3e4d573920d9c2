// Package handlers provides HTTP request handlers for the JSON API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/services"
)

// SessionHandler handles HTTP requests for session orchestration.
type SessionHandler struct {
	orchestrator *services.SessionOrchestrator
	authService  *services.AuthService
	auditService *services.AuditService
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(orchestrator *services.SessionOrchestrator, authService *services.AuthService, auditService *services.AuditService) *SessionHandler {
	return &SessionHandler{
		orchestrator: orchestrator,
		authService:  authService,
		auditService: auditService,
	}
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inputs"})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission"})
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrAppNotFound),
		errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrCrewNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrVariableNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrQueueUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dispatch queue unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requireMember resolves the caller and checks team membership. It writes
// the response and returns nil when the caller may not act on the team.
func (h *SessionHandler) requireMember(c *gin.Context) *models.Account {
	account := middleware.Account(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	if !h.authService.IsMember(account.ID, c.Param("teamId")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission"})
		return nil
	}
	return account
}

// List returns a page of the team's sessions.
func (h *SessionHandler) List(c *gin.Context) {
	if h.requireMember(c) == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	sessions, err := h.orchestrator.List(c.Param("teamId"), c.Query("before"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Create starts a new session for an app.
func (h *SessionHandler) Create(c *gin.Context) {
	account := h.requireMember(c)
	if account == nil {
		return
	}

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teamID := c.Param("teamId")
	team, err := h.authService.GetTeamByID(teamID)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.orchestrator.Create(c.Request.Context(), team.OrgID, teamID, &req)
	if err != nil {
		// The session row is committed before dispatch; tell the caller
		// which session to resume once the queue is back.
		if errors.Is(err, services.ErrQueueUnavailable) && session != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Dispatch queue unavailable, try again",
				"session": session,
			})
			return
		}
		respondError(c, err)
		return
	}

	h.auditService.LogSessionAction(account, "create", session.ID, c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// Get returns the privileged session detail.
func (h *SessionHandler) Get(c *gin.Context) {
	if h.requireMember(c) == nil {
		return
	}

	detail, err := h.orchestrator.Fetch(c.Param("teamId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Messages returns the session transcript, optionally only messages after
// the given message id. Fetching an idle chat session's transcript resumes
// its run.
func (h *SessionHandler) Messages(c *gin.Context) {
	if h.requireMember(c) == nil {
		return
	}

	messages, err := h.orchestrator.Messages(
		c.Request.Context(), c.Param("teamId"), c.Param("id"), c.Query("after"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Cancel terminates a session cooperatively.
func (h *SessionHandler) Cancel(c *gin.Context) {
	account := h.requireMember(c)
	if account == nil {
		return
	}

	sessionID := c.Param("id")
	if err := h.orchestrator.Cancel(c.Request.Context(), c.Param("teamId"), sessionID, account); err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogSessionAction(account, "cancel", sessionID, c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(http.StatusOK, gin.H{"message": "Session cancelled"})
}

// Delete removes a session and stops any in-flight run.
func (h *SessionHandler) Delete(c *gin.Context) {
	account := h.requireMember(c)
	if account == nil {
		return
	}

	sessionID := c.Param("id")
	if err := h.orchestrator.Delete(c.Request.Context(), c.Param("teamId"), sessionID, account); err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogSessionAction(account, "delete", sessionID, c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// EditVariables persists a session's variable bindings. The access gate
// decides who may bind, so shared-session viewers reach this without team
// membership. Dispatch stays with the explicit start endpoint.
func (h *SessionHandler) EditVariables(c *gin.Context) {
	account := middleware.Account(c)

	var req models.EditSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Variables == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inputs"})
		return
	}

	session, err := h.orchestrator.EditVariables(c.Param("id"), req.Variables, account)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session updated successfully",
		"session": session,
	})
}

// Start explicitly dispatches a session whose variables are bound.
func (h *SessionHandler) Start(c *gin.Context) {
	account := middleware.Account(c)

	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.Start(c.Request.Context(), &req, account); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session started successfully"})
}
