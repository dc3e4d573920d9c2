// Package services provides business logic for the session orchestration platform.
package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/models"
)

var (
	// ErrAppNotFound indicates the requested app was not found.
	ErrAppNotFound = errors.New("app not found")
	// ErrAgentNotFound indicates the requested agent was not found.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrCrewNotFound indicates the requested crew was not found.
	ErrCrewNotFound = errors.New("crew not found")
	// ErrTaskNotFound indicates the requested task was not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrVariableNotFound indicates the requested variable was not found.
	ErrVariableNotFound = errors.New("variable not found")
)

// Scope selects between team-scoped and unscoped data access. Unscoped reads
// serve the public viewer paths; callers using them must run the AccessGate
// explicitly before returning data.
type Scope struct {
	teamID string
	scoped bool
}

// TeamScoped restricts queries to rows owned by the given team.
func TeamScoped(teamID string) Scope {
	return Scope{teamID: teamID, scoped: true}
}

// Unscoped performs lookups without team filtering.
func Unscoped() Scope {
	return Scope{}
}

func (s Scope) clause() (string, []interface{}) {
	if !s.scoped {
		return "", nil
	}
	return " AND team_id = ?", []interface{}{s.teamID}
}

// EntityStore provides access to apps, agents, crews, tasks, and variables.
type EntityStore struct {
	db *database.DB
}

// NewEntityStore creates a new EntityStore instance.
func NewEntityStore(db *database.DB) *EntityStore {
	return &EntityStore{db: db}
}

func marshalStrings(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func unmarshalStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw.String), &ids); err != nil {
		return nil
	}
	return ids
}

func marshalSharing(c models.SharingConfig) string {
	if c.Mode == "" {
		c.Mode = models.SharingModeTeam
	}
	b, _ := json.Marshal(c)
	return string(b)
}

func unmarshalSharing(raw string) models.SharingConfig {
	var c models.SharingConfig
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return models.SharingConfig{Mode: models.SharingModeTeam}
	}
	if c.Mode == "" {
		c.Mode = models.SharingModeTeam
	}
	return c
}

// CreateApp creates a new app. The app type is fixed at creation.
func (s *EntityStore) CreateApp(teamID string, req *models.CreateAppRequest) (*models.App, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(
		"INSERT INTO apps (id, team_id, name, description, type, agent_id, crew_id, sharing_config) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, teamID, req.Name, req.Description, req.Type, req.AgentID, req.CrewID, marshalSharing(req.SharingConfig),
	)
	if err != nil {
		return nil, err
	}

	return s.GetApp(TeamScoped(teamID), id)
}

// GetApp retrieves an app by id within the given scope.
func (s *EntityStore) GetApp(scope Scope, id string) (*models.App, error) {
	query := "SELECT id, team_id, name, description, type, agent_id, crew_id, sharing_config, created_at, updated_at FROM apps WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var app models.App
	var description, agentID, crewID sql.NullString
	var sharing string
	err := s.db.QueryRow(query+clause, args...).Scan(
		&app.ID, &app.TeamID, &app.Name, &description, &app.Type,
		&agentID, &crewID, &sharing, &app.CreatedAt, &app.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAppNotFound
	}
	if err != nil {
		return nil, err
	}

	app.Description = description.String
	app.AgentID = agentID.String
	app.CrewID = crewID.String
	app.SharingConfig = unmarshalSharing(sharing)
	return &app, nil
}

// ListApps retrieves all apps owned by a team, ordered by name.
func (s *EntityStore) ListApps(teamID string) ([]models.App, error) {
	rows, err := s.db.Query(
		"SELECT id, team_id, name, description, type, agent_id, crew_id, sharing_config, created_at, updated_at FROM apps WHERE team_id = ? ORDER BY name",
		teamID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var apps []models.App
	for rows.Next() {
		var app models.App
		var description, agentID, crewID sql.NullString
		var sharing string
		if err := rows.Scan(&app.ID, &app.TeamID, &app.Name, &description, &app.Type,
			&agentID, &crewID, &sharing, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, err
		}
		app.Description = description.String
		app.AgentID = agentID.String
		app.CrewID = crewID.String
		app.SharingConfig = unmarshalSharing(sharing)
		apps = append(apps, app)
	}
	return apps, nil
}

// UpdateApp updates an existing app. The type cannot change.
func (s *EntityStore) UpdateApp(teamID, id string, req *models.UpdateAppRequest) (*models.App, error) {
	app, err := s.GetApp(TeamScoped(teamID), id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		app.Name = req.Name
	}
	if req.Description != "" {
		app.Description = req.Description
	}
	if req.AgentID != "" {
		app.AgentID = req.AgentID
	}
	if req.CrewID != "" {
		app.CrewID = req.CrewID
	}
	if req.SharingConfig != nil {
		app.SharingConfig = *req.SharingConfig
	}

	_, err = s.db.Exec(
		"UPDATE apps SET name = ?, description = ?, agent_id = ?, crew_id = ?, sharing_config = ?, updated_at = ? WHERE id = ? AND team_id = ?",
		app.Name, app.Description, app.AgentID, app.CrewID, marshalSharing(app.SharingConfig), time.Now(), id, teamID,
	)
	if err != nil {
		return nil, err
	}

	return s.GetApp(TeamScoped(teamID), id)
}

// DeleteApp deletes an app.
func (s *EntityStore) DeleteApp(teamID, id string) error {
	result, err := s.db.Exec("DELETE FROM apps WHERE id = ? AND team_id = ?", id, teamID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAppNotFound
	}
	return nil
}

// CreateAgent creates a new agent.
func (s *EntityStore) CreateAgent(agent *models.Agent) (*models.Agent, error) {
	agent.ID = uuid.New().String()

	_, err := s.db.Exec(
		"INSERT INTO agents (id, team_id, name, role, goal, backstory, model, icon, tool_ids, variable_ids) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		agent.ID, agent.TeamID, agent.Name, agent.Role, agent.Goal, agent.Backstory,
		agent.Model, agent.Icon, marshalStrings(agent.ToolIDs), marshalStrings(agent.VariableIDs),
	)
	if err != nil {
		return nil, err
	}

	return s.GetAgent(TeamScoped(agent.TeamID), agent.ID)
}

// GetAgent retrieves an agent by id within the given scope.
func (s *EntityStore) GetAgent(scope Scope, id string) (*models.Agent, error) {
	query := "SELECT id, team_id, name, role, goal, backstory, model, icon, tool_ids, variable_ids, created_at FROM agents WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var agent models.Agent
	var role, goal, backstory, model, icon, toolIDs, variableIDs sql.NullString
	err := s.db.QueryRow(query+clause, args...).Scan(
		&agent.ID, &agent.TeamID, &agent.Name, &role, &goal, &backstory,
		&model, &icon, &toolIDs, &variableIDs, &agent.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}

	agent.Role = role.String
	agent.Goal = goal.String
	agent.Backstory = backstory.String
	agent.Model = model.String
	agent.Icon = icon.String
	agent.ToolIDs = unmarshalStrings(toolIDs)
	agent.VariableIDs = unmarshalStrings(variableIDs)
	return &agent, nil
}

// GetAgents retrieves several agents by id. Missing agents are an error:
// a crew referencing a deleted agent is an invalid crew, not a smaller one.
func (s *EntityStore) GetAgents(scope Scope, ids []string) ([]models.Agent, error) {
	agents := make([]models.Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := s.GetAgent(scope, id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, nil
}

// AgentNameMap builds the avatar map (agent name to icon) for the given
// agents.
func (s *EntityStore) AgentNameMap(scope Scope, ids []string) (map[string]string, error) {
	agents, err := s.GetAgents(scope, ids)
	if err != nil {
		return nil, err
	}

	nameMap := make(map[string]string, len(agents))
	for _, agent := range agents {
		nameMap[agent.Name] = agent.Icon
	}
	return nameMap, nil
}

// ListAgents retrieves all agents owned by a team.
func (s *EntityStore) ListAgents(teamID string) ([]models.Agent, error) {
	rows, err := s.db.Query(
		"SELECT id FROM agents WHERE team_id = ? ORDER BY name", teamID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return s.GetAgents(TeamScoped(teamID), ids)
}

// DeleteAgent deletes an agent.
func (s *EntityStore) DeleteAgent(teamID, id string) error {
	result, err := s.db.Exec("DELETE FROM agents WHERE id = ? AND team_id = ?", id, teamID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// CreateCrew creates a new crew.
func (s *EntityStore) CreateCrew(crew *models.Crew) (*models.Crew, error) {
	crew.ID = uuid.New().String()

	_, err := s.db.Exec(
		"INSERT INTO crews (id, team_id, name, task_ids, agent_ids) VALUES (?, ?, ?, ?, ?)",
		crew.ID, crew.TeamID, crew.Name, marshalStrings(crew.TaskIDs), marshalStrings(crew.AgentIDs),
	)
	if err != nil {
		return nil, err
	}

	return s.GetCrew(TeamScoped(crew.TeamID), crew.ID)
}

// GetCrew retrieves a crew by id within the given scope.
func (s *EntityStore) GetCrew(scope Scope, id string) (*models.Crew, error) {
	query := "SELECT id, team_id, name, task_ids, agent_ids, created_at FROM crews WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var crew models.Crew
	var taskIDs, agentIDs sql.NullString
	err := s.db.QueryRow(query+clause, args...).Scan(
		&crew.ID, &crew.TeamID, &crew.Name, &taskIDs, &agentIDs, &crew.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrCrewNotFound
	}
	if err != nil {
		return nil, err
	}

	crew.TaskIDs = unmarshalStrings(taskIDs)
	crew.AgentIDs = unmarshalStrings(agentIDs)
	return &crew, nil
}

// DeleteCrew deletes a crew.
func (s *EntityStore) DeleteCrew(teamID, id string) error {
	result, err := s.db.Exec("DELETE FROM crews WHERE id = ? AND team_id = ?", id, teamID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrCrewNotFound
	}
	return nil
}

// CreateTask creates a new task.
func (s *EntityStore) CreateTask(task *models.Task) (*models.Task, error) {
	task.ID = uuid.New().String()

	_, err := s.db.Exec(
		"INSERT INTO tasks (id, team_id, name, description, variable_ids) VALUES (?, ?, ?, ?, ?)",
		task.ID, task.TeamID, task.Name, task.Description, marshalStrings(task.VariableIDs),
	)
	if err != nil {
		return nil, err
	}

	return s.GetTask(TeamScoped(task.TeamID), task.ID)
}

// GetTask retrieves a task by id within the given scope.
func (s *EntityStore) GetTask(scope Scope, id string) (*models.Task, error) {
	query := "SELECT id, team_id, name, description, variable_ids, created_at FROM tasks WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var task models.Task
	var description, variableIDs sql.NullString
	err := s.db.QueryRow(query+clause, args...).Scan(
		&task.ID, &task.TeamID, &task.Name, &description, &variableIDs, &task.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.VariableIDs = unmarshalStrings(variableIDs)
	return &task, nil
}

// CreateVariable creates a new variable.
func (s *EntityStore) CreateVariable(v *models.Variable) (*models.Variable, error) {
	v.ID = uuid.New().String()

	_, err := s.db.Exec(
		"INSERT INTO variables (id, team_id, name, default_value) VALUES (?, ?, ?, ?)",
		v.ID, v.TeamID, v.Name, v.DefaultValue,
	)
	if err != nil {
		return nil, err
	}

	return s.GetVariable(TeamScoped(v.TeamID), v.ID)
}

// GetVariable retrieves a variable by id within the given scope.
func (s *EntityStore) GetVariable(scope Scope, id string) (*models.Variable, error) {
	query := "SELECT id, team_id, name, default_value, created_at FROM variables WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var v models.Variable
	var defaultValue sql.NullString
	err := s.db.QueryRow(query+clause, args...).Scan(
		&v.ID, &v.TeamID, &v.Name, &defaultValue, &v.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrVariableNotFound
	}
	if err != nil {
		return nil, err
	}

	v.DefaultValue = defaultValue.String
	return &v, nil
}
