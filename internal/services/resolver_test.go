package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/crewdock/crewdock/internal/models"
)

func TestResolveChatApp(t *testing.T) {
	f := newFixture(t)

	v1 := f.createVariable(t, "topic")
	v2 := f.createVariable(t, "tone")
	agent := f.createAgent(t, "Writer", "pen.png", []string{v1.ID, v2.ID})
	app := f.createChatApp(t, agent.ID, models.SharingModeTeam)

	variables, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(variables) != 2 {
		t.Fatalf("Expected 2 variables, got %d", len(variables))
	}
	if variables[0].ID != v1.ID || variables[1].ID != v2.ID {
		t.Errorf("Variables out of reference order: %v", variables)
	}
}

func TestResolveChatAppNoVariables(t *testing.T) {
	f := newFixture(t)

	agent := f.createAgent(t, "Writer", "pen.png", nil)
	app := f.createChatApp(t, agent.ID, models.SharingModeTeam)

	variables, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(variables) != 0 {
		t.Errorf("Expected no variables, got %d", len(variables))
	}
}

func TestResolveCrewAppUnion(t *testing.T) {
	f := newFixture(t)

	v1 := f.createVariable(t, "source")
	v2 := f.createVariable(t, "audience")
	v3 := f.createVariable(t, "deadline")

	// v1 is referenced by a task and an agent; it must appear once.
	task1 := f.createTask(t, "research", []string{v1.ID})
	task2 := f.createTask(t, "draft", []string{v2.ID})
	agent1 := f.createAgent(t, "Researcher", "book.png", []string{v1.ID, v3.ID})
	agent2 := f.createAgent(t, "Editor", "pen.png", nil)

	crew := f.createCrew(t, "Newsroom", []string{task1.ID, task2.ID}, []string{agent1.ID, agent2.ID})
	app := f.createCrewApp(t, crew.ID, models.SharingModeTeam)

	variables, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(variables) != 3 {
		t.Fatalf("Expected 3 deduplicated variables, got %d", len(variables))
	}

	// Task references come before agent references, first reference wins.
	want := []string{v1.ID, v2.ID, v3.ID}
	for i, v := range variables {
		if v.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], v.ID)
		}
	}
}

func TestResolveMissingAgent(t *testing.T) {
	f := newFixture(t)

	app := f.createChatApp(t, uuid.New().String(), models.SharingModeTeam)

	_, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Expected ErrAgentNotFound, got %v", err)
	}
}

func TestResolveMissingVariable(t *testing.T) {
	f := newFixture(t)

	agent := f.createAgent(t, "Writer", "pen.png", []string{uuid.New().String()})
	app := f.createChatApp(t, agent.ID, models.SharingModeTeam)

	_, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("Expected ErrVariableNotFound for dangling reference, got %v", err)
	}
}

func TestResolveMissingCrewTask(t *testing.T) {
	f := newFixture(t)

	crew := f.createCrew(t, "Newsroom", []string{uuid.New().String()}, nil)
	app := f.createCrewApp(t, crew.ID, models.SharingModeTeam)

	_, err := f.resolver.Resolve(TeamScoped(f.team.ID), app)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestResolveUnknownAppType(t *testing.T) {
	f := newFixture(t)

	app := &models.App{ID: uuid.New().String(), TeamID: f.team.ID, Type: "spreadsheet"}

	if _, err := f.resolver.Resolve(TeamScoped(f.team.ID), app); err == nil {
		t.Error("Expected error for unknown app type")
	}
}
