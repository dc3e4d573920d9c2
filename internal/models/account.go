package models

import "time"

// Account represents a platform account. A nil *Account is the anonymous
// caller on public paths.
type Account struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
}

// Team is the owning tenant for apps, agents, crews, and sessions.
type Team struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
}

// AuthSession is a browser login session (distinct from an app run session).
type AuthSession struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
