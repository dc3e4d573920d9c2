package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/metrics"
	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/services"
	"github.com/crewdock/crewdock/internal/version"
)

// SystemHandler serves version, status, and audit log endpoints.
type SystemHandler struct {
	auditService *services.AuditService
}

// NewSystemHandler creates a new SystemHandler instance.
func NewSystemHandler(auditService *services.AuditService) *SystemHandler {
	return &SystemHandler{auditService: auditService}
}

// Version returns build version information.
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Info())
}

// Status returns host resource metrics. Admin only.
func (h *SystemHandler) Status(c *gin.Context) {
	account := middleware.Account(c)
	if account == nil || !account.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission"})
		return
	}

	systemMetrics, err := metrics.GetSystemMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": systemMetrics,
		"version": version.Info(),
	})
}

// AuditLogs returns recent audit log entries. Admin only.
func (h *SystemHandler) AuditLogs(c *gin.Context) {
	account := middleware.Account(c)
	if account == nil || !account.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.auditService.GetLogs(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
