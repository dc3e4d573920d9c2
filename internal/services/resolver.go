package services

import (
	"fmt"

	"github.com/crewdock/crewdock/internal/models"
)

// VariableResolver computes the set of runtime variables an app's execution
// depends on. It is side-effect-free and safe for concurrent use.
type VariableResolver struct {
	store *EntityStore
}

// NewVariableResolver creates a new VariableResolver instance.
func NewVariableResolver(store *EntityStore) *VariableResolver {
	return &VariableResolver{store: store}
}

// Resolve returns the deduplicated variables the app's run requires. For a
// chat app these are the bound agent's variables; for a crew app the union
// of every task's and every agent's variables. Dedup key is the variable id,
// first reference wins for ordering. A missing agent, crew, task, or
// variable is an error: the app is invalid, not variable-free.
func (r *VariableResolver) Resolve(scope Scope, app *models.App) ([]models.Variable, error) {
	switch app.Type {
	case models.AppTypeChat:
		agent, err := r.store.GetAgent(scope, app.AgentID)
		if err != nil {
			return nil, err
		}
		return r.lookup(scope, agent.VariableIDs)

	case models.AppTypeCrew:
		crew, err := r.store.GetCrew(scope, app.CrewID)
		if err != nil {
			return nil, err
		}

		var ids []string
		for _, taskID := range crew.TaskIDs {
			task, err := r.store.GetTask(scope, taskID)
			if err != nil {
				return nil, err
			}
			ids = append(ids, task.VariableIDs...)
		}
		for _, agentID := range crew.AgentIDs {
			agent, err := r.store.GetAgent(scope, agentID)
			if err != nil {
				return nil, err
			}
			ids = append(ids, agent.VariableIDs...)
		}
		return r.lookup(scope, ids)

	default:
		return nil, fmt.Errorf("unsupported app type %q", app.Type)
	}
}

// lookup fetches each variable by id, skipping ids already seen.
func (r *VariableResolver) lookup(scope Scope, ids []string) ([]models.Variable, error) {
	seen := make(map[string]bool, len(ids))
	variables := make([]models.Variable, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		v, err := r.store.GetVariable(scope, id)
		if err != nil {
			return nil, err
		}
		variables = append(variables, *v)
	}
	return variables, nil
}
