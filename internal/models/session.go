package models

import "time"

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	// StatusStarted indicates the session exists but no run has begun.
	StatusStarted SessionStatus = "started"
	// StatusRunning indicates a dispatched run is in flight.
	StatusRunning SessionStatus = "running"
	// StatusCompleted indicates the run finished successfully.
	StatusCompleted SessionStatus = "completed"
	// StatusTerminated indicates the session was cancelled.
	StatusTerminated SessionStatus = "terminated"
	// StatusError indicates the run failed.
	StatusError SessionStatus = "error"
)

// Session is one execution instance of an app. The app reference never
// changes after creation; variable bindings override variable defaults.
type Session struct {
	StartDate       time.Time         `json:"start_date"`
	LastUpdatedDate time.Time         `json:"last_updated_date"`
	Variables       map[string]string `json:"variables,omitempty"`
	ID              string            `json:"id"`
	OrgID           string            `json:"org_id"`
	TeamID          string            `json:"team_id"`
	AppID           string            `json:"app_id"`
	Name            string            `json:"name"`
	Status          SessionStatus     `json:"status"`
	SharingConfig   SharingConfig     `json:"sharing_config"`
	TokensUsed      int64             `json:"tokens_used"`
}

// CreateSessionRequest contains the data for starting a new session.
type CreateSessionRequest struct {
	AppID   string `json:"id" binding:"required"`
	SkipRun bool   `json:"skip_run"`
}

// EditSessionRequest carries a variable-bindings update for a session.
type EditSessionRequest struct {
	Variables map[string]string `json:"variables"`
}

// StartSessionRequest explicitly dispatches a session whose variables
// are now bound.
type StartSessionRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	AppType   AppType `json:"app_type" binding:"required"`
}

// VariableBinding is a variable enumerated for session editing: its name,
// default, and id so the UI can render an input per variable.
type VariableBinding struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DefaultValue string `json:"default_value"`
}

// SessionDetail is the privileged fetch payload: the session, its app,
// the resolved variable list, and the agent avatar map.
type SessionDetail struct {
	Session   *Session          `json:"session"`
	App       *App              `json:"app"`
	Variables []VariableBinding `json:"variables,omitempty"`
	AvatarMap map[string]string `json:"avatar_map"`
}

// PublicSessionDetail is the reduced payload served to anonymous viewers.
type PublicSessionDetail struct {
	Session   *Session          `json:"session"`
	AppName   string            `json:"app_name"`
	AppType   AppType           `json:"app_type"`
	AvatarMap map[string]string `json:"avatar_map"`
}
