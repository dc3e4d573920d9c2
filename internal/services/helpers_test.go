package services

import (
	"context"
	"sync"
	"testing"

	"github.com/crewdock/crewdock/internal/config"
	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			SessionDuration: "1h",
			BcryptCost:      4,
		},
		Admin: config.AdminConfig{
			Email:    "admin@test.local",
			Password: "Testpass1",
			TeamName: "Test Team",
		},
	}
}

// fakeQueue records enqueued payloads instead of touching Redis.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []JobPayload
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, name string, payload JobPayload, opts JobOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, payload)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// fakeStop records raised stop flags.
type fakeStop struct {
	mu       sync.Mutex
	sessions []string
}

func (s *fakeStop) Set(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sessionID)
	return nil
}

func (s *fakeStop) raised(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.sessions {
		if id == sessionID {
			return true
		}
	}
	return false
}

// fixture wires the full service graph over an in-memory database with fake
// queue backends and one team with one member account.
type fixture struct {
	db           *database.DB
	store        *EntityStore
	sessions     *SessionStore
	resolver     *VariableResolver
	gate         *AccessGate
	registry     *LivenessRegistry
	auth         *AuthService
	orchestrator *SessionOrchestrator
	queue        *fakeQueue
	stop         *fakeStop

	team    *models.Team
	account *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	store := NewEntityStore(db)
	sessions := NewSessionStore(db)
	auth := NewAuthService(db, newTestConfig())
	resolver := NewVariableResolver(store)
	gate := NewAccessGate(store, auth)
	registry := NewLivenessRegistry()
	queue := &fakeQueue{}
	stop := &fakeStop{}

	team, err := auth.CreateTeam("org-1", "Engineering")
	if err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	account, err := auth.CreateAccount("member@test.local", "Member", "Testpass1", false)
	if err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	if err := auth.AddMember(account.ID, team.ID); err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}

	return &fixture{
		db:           db,
		store:        store,
		sessions:     sessions,
		resolver:     resolver,
		gate:         gate,
		registry:     registry,
		auth:         auth,
		orchestrator: NewSessionOrchestrator(store, sessions, resolver, gate, registry, queue, stop),
		queue:        queue,
		stop:         stop,
		team:         team,
		account:      account,
	}
}

func (f *fixture) createVariable(t *testing.T, name string) *models.Variable {
	t.Helper()
	v, err := f.store.CreateVariable(&models.Variable{
		TeamID:       f.team.ID,
		Name:         name,
		DefaultValue: "default",
	})
	if err != nil {
		t.Fatalf("Failed to create variable %q: %v", name, err)
	}
	return v
}

func (f *fixture) createAgent(t *testing.T, name, icon string, variableIDs []string) *models.Agent {
	t.Helper()
	agent, err := f.store.CreateAgent(&models.Agent{
		TeamID:      f.team.ID,
		Name:        name,
		Role:        "assistant",
		Icon:        icon,
		VariableIDs: variableIDs,
	})
	if err != nil {
		t.Fatalf("Failed to create agent %q: %v", name, err)
	}
	return agent
}

func (f *fixture) createTask(t *testing.T, name string, variableIDs []string) *models.Task {
	t.Helper()
	task, err := f.store.CreateTask(&models.Task{
		TeamID:      f.team.ID,
		Name:        name,
		VariableIDs: variableIDs,
	})
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", name, err)
	}
	return task
}

func (f *fixture) createCrew(t *testing.T, name string, taskIDs, agentIDs []string) *models.Crew {
	t.Helper()
	crew, err := f.store.CreateCrew(&models.Crew{
		TeamID:   f.team.ID,
		Name:     name,
		TaskIDs:  taskIDs,
		AgentIDs: agentIDs,
	})
	if err != nil {
		t.Fatalf("Failed to create crew %q: %v", name, err)
	}
	return crew
}

func (f *fixture) createChatApp(t *testing.T, agentID string, mode models.SharingMode) *models.App {
	t.Helper()
	app, err := f.store.CreateApp(f.team.ID, &models.CreateAppRequest{
		Name:          "Chat App",
		Type:          models.AppTypeChat,
		AgentID:       agentID,
		SharingConfig: models.SharingConfig{Mode: mode},
	})
	if err != nil {
		t.Fatalf("Failed to create chat app: %v", err)
	}
	return app
}

func (f *fixture) createCrewApp(t *testing.T, crewID string, mode models.SharingMode) *models.App {
	t.Helper()
	app, err := f.store.CreateApp(f.team.ID, &models.CreateAppRequest{
		Name:          "Crew App",
		Type:          models.AppTypeCrew,
		CrewID:        crewID,
		SharingConfig: models.SharingConfig{Mode: mode},
	})
	if err != nil {
		t.Fatalf("Failed to create crew app: %v", err)
	}
	return app
}

func (f *fixture) createSession(t *testing.T, appID string, skipRun bool) *models.Session {
	t.Helper()
	session, err := f.orchestrator.Create(context.Background(), f.team.OrgID, f.team.ID, &models.CreateSessionRequest{
		AppID:   appID,
		SkipRun: skipRun,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return session
}
