// Package middleware provides HTTP middleware for authentication and logging.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/services"
)

const (
	// SessionCookieName is the name of the login session cookie.
	SessionCookieName = "crewdock_session"
	// AccountContextKey is the key for storing the account in request context.
	AccountContextKey = "account"
)

// AuthRequired rejects requests without a valid login session.
func AuthRequired(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		account, err := authService.ValidateAuthSession(sessionID)
		if err != nil {
			c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			c.Abort()
			return
		}

		c.Set(AccountContextKey, account)
		c.Next()
	}
}

// AuthOptional resolves the account when a login session is present and
// leaves it unset otherwise. Public paths use it so the access gate can
// see whitelisted viewers.
func AuthOptional(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err == nil && sessionID != "" {
			if account, err := authService.ValidateAuthSession(sessionID); err == nil {
				c.Set(AccountContextKey, account)
			}
		}
		c.Next()
	}
}

// Account returns the authenticated account from the context, or nil for
// anonymous callers.
func Account(c *gin.Context) *models.Account {
	value, ok := c.Get(AccountContextKey)
	if !ok {
		return nil
	}
	account, _ := value.(*models.Account)
	return account
}
