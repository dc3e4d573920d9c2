// Package models defines data models for apps, agents, crews, and sessions.
package models

import "time"

// AppType identifies the kind of automation an app runs. The set is closed:
// every switch over AppType must handle all constants and reject anything else.
type AppType string

const (
	// AppTypeChat runs a single conversational agent.
	AppTypeChat AppType = "chat"
	// AppTypeCrew runs a multi-agent crew workflow.
	AppTypeCrew AppType = "crew"
)

// SharingMode controls who may view an app's sessions.
type SharingMode string

const (
	// SharingModePrivate restricts access to the creating account.
	SharingModePrivate SharingMode = "private"
	// SharingModeTeam restricts access to members of the owning team.
	SharingModeTeam SharingMode = "team"
	// SharingModePublic allows anonymous read access.
	SharingModePublic SharingMode = "public"
	// SharingModeWhitelist allows access to listed email addresses only.
	SharingModeWhitelist SharingMode = "whitelist"
)

// SharingConfig is the sharing policy attached to an app and copied onto
// each of its sessions at creation time.
type SharingConfig struct {
	Mode        SharingMode `json:"mode"`
	Permissions []string    `json:"permissions"`
}

// Allows reports whether the given email is whitelisted.
func (c SharingConfig) Allows(email string) bool {
	for _, p := range c.Permissions {
		if p == email {
			return true
		}
	}
	return false
}

// App is a user-configured automation unit. Its type is immutable after
// creation: a chat app references one agent, a crew app references one crew.
type App struct {
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ID            string        `json:"id"`
	TeamID        string        `json:"team_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Type          AppType       `json:"type"`
	AgentID       string        `json:"agent_id,omitempty"`
	CrewID        string        `json:"crew_id,omitempty"`
	SharingConfig SharingConfig `json:"sharing_config"`
}

// CreateAppRequest contains the data for creating a new app.
type CreateAppRequest struct {
	Name          string        `json:"name" binding:"required"`
	Description   string        `json:"description"`
	Type          AppType       `json:"type" binding:"required"`
	AgentID       string        `json:"agent_id"`
	CrewID        string        `json:"crew_id"`
	SharingConfig SharingConfig `json:"sharing_config"`
}

// UpdateAppRequest contains the data for updating an existing app. The app
// type cannot be changed.
type UpdateAppRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	AgentID       string         `json:"agent_id"`
	CrewID        string         `json:"crew_id"`
	SharingConfig *SharingConfig `json:"sharing_config"`
}
