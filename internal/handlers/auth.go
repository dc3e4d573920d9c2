package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/services"
)

// AuthHandler handles login, logout, and the current-account endpoint.
type AuthHandler struct {
	authService  *services.AuthService
	auditService *services.AuditService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService *services.AuthService, auditService *services.AuditService) *AuthHandler {
	return &AuthHandler{authService: authService, auditService: auditService}
}

// Login verifies credentials and issues a session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authSession, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		_ = h.auditService.Log(services.AuditLog{
			Email:        req.Email,
			Action:       "login_failed",
			ResourceType: "auth",
			IPAddress:    c.ClientIP(),
			UserAgent:    c.GetHeader("User-Agent"),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	maxAge := int(time.Until(authSession.ExpiresAt).Seconds())
	c.SetCookie(middleware.SessionCookieName, authSession.ID, maxAge, "/", "", false, true)

	_ = h.auditService.Log(services.AuditLog{
		AccountID:    authSession.AccountID,
		Email:        req.Email,
		Action:       "login",
		ResourceType: "auth",
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// Logout invalidates the current login session.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(middleware.SessionCookieName)
	if err == nil && sessionID != "" {
		_ = h.authService.DeleteAuthSession(sessionID)
	}

	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	account := middleware.Account(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}
