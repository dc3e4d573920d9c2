package models

import "time"

// Agent is a configured LLM persona owned by a team.
type Agent struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Goal        string    `json:"goal"`
	Backstory   string    `json:"backstory"`
	Model       string    `json:"model"`
	Icon        string    `json:"icon"`
	ToolIDs     []string  `json:"tool_ids"`
	VariableIDs []string  `json:"variable_ids"`
}

// Task is one step of a crew workflow. Its prompt text may reference
// runtime variables by id.
type Task struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VariableIDs []string  `json:"variable_ids"`
}

// Crew is a multi-agent workflow: an ordered list of tasks executed by a
// set of agents.
type Crew struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	TaskIDs   []string  `json:"task_ids"`
	AgentIDs  []string  `json:"agent_ids"`
}

// Variable is a named placeholder with a default value. Its lifetime is
// independent of any app; many agents and tasks may reference one variable.
type Variable struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	TeamID       string    `json:"team_id"`
	Name         string    `json:"name"`
	DefaultValue string    `json:"default_value"`
}
