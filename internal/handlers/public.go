package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/services"
)

// PublicSessionHandler serves shared sessions to anonymous and whitelisted
// viewers. Every failure is a plain 404 so existence never leaks.
type PublicSessionHandler struct {
	orchestrator *services.SessionOrchestrator
}

// NewPublicSessionHandler creates a new PublicSessionHandler instance.
func NewPublicSessionHandler(orchestrator *services.SessionOrchestrator) *PublicSessionHandler {
	return &PublicSessionHandler{orchestrator: orchestrator}
}

// Get returns the reduced public session detail.
func (h *PublicSessionHandler) Get(c *gin.Context) {
	detail, err := h.orchestrator.FetchPublic(c.Param("id"), middleware.Account(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Messages returns the transcript of a shared session.
func (h *PublicSessionHandler) Messages(c *gin.Context) {
	messages, err := h.orchestrator.PublicMessages(c.Param("id"), middleware.Account(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, messages)
}
