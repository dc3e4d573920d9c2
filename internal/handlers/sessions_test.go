package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/config"
	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/services"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []services.JobPayload
}

func (q *fakeQueue) Enqueue(ctx context.Context, name string, payload services.JobPayload, opts services.JobOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, payload)
	return nil
}

type fakeStop struct{}

func (fakeStop) Set(ctx context.Context, sessionID string) error { return nil }

type testEnv struct {
	router  *gin.Engine
	queue   *fakeQueue
	auth    *services.AuthService
	store   *services.EntityStore
	team    *models.Team
	account *models.Account
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cfg := &config.Config{
		Auth:  config.AuthConfig{SessionDuration: "1h", BcryptCost: 4},
		Admin: config.AdminConfig{Email: "admin@test.local", Password: "Testpass1", TeamName: "Test Team"},
	}

	store := services.NewEntityStore(db)
	sessions := services.NewSessionStore(db)
	auth := services.NewAuthService(db, cfg)
	audit := services.NewAuditService(db)
	queue := &fakeQueue{}

	orchestrator := services.NewSessionOrchestrator(
		store, sessions,
		services.NewVariableResolver(store),
		services.NewAccessGate(store, auth),
		services.NewLivenessRegistry(),
		queue, fakeStop{},
	)

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
	authSession, err := auth.CreateAuthSession(account.ID)
	if err != nil {
		t.Fatalf("Failed to create auth session: %v", err)
	}

	r := gin.New()
	sessionHandler := NewSessionHandler(orchestrator, auth, audit)
	publicHandler := NewPublicSessionHandler(orchestrator)

	public := r.Group("/s", middleware.AuthOptional(auth))
	public.GET("/sessions/:id", publicHandler.Get)
	public.GET("/sessions/:id/messages", publicHandler.Messages)
	public.POST("/sessions/start", sessionHandler.Start)

	api := r.Group("/api", middleware.AuthRequired(auth))
	team1 := api.Group("/teams/:teamId")
	team1.GET("/sessions", sessionHandler.List)
	team1.POST("/sessions", sessionHandler.Create)
	team1.GET("/sessions/:id", sessionHandler.Get)
	team1.POST("/sessions/:id/cancel", sessionHandler.Cancel)
	team1.DELETE("/sessions/:id", sessionHandler.Delete)

	return &testEnv{
		router:  r,
		queue:   queue,
		auth:    auth,
		store:   store,
		team:    team,
		account: account,
		cookie:  &http.Cookie{Name: middleware.SessionCookieName, Value: authSession.ID},
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.AddCookie(e.cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createChatApp(t *testing.T, mode models.SharingMode) *models.App {
	t.Helper()

	agent, err := e.store.CreateAgent(&models.Agent{TeamID: e.team.ID, Name: "Writer", Icon: "pen.png"})
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}
	app, err := e.store.CreateApp(e.team.ID, &models.CreateAppRequest{
		Name:          "Chat App",
		Type:          models.AppTypeChat,
		AgentID:       agent.ID,
		SharingConfig: models.SharingConfig{Mode: mode},
	})
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	return app
}

func (e *testEnv) createSession(t *testing.T, appID string) string {
	t.Helper()

	w := e.request(t, http.MethodPost, fmt.Sprintf("/api/teams/%s/sessions", e.team.ID),
		map[string]interface{}{"id": appID, "skip_run": true}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create session returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Session models.Session `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.Session.ID
}

func TestCreateSessionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)

	w := e.request(t, http.MethodPost, fmt.Sprintf("/api/teams/%s/sessions", e.team.ID),
		map[string]interface{}{"id": app.ID}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(e.queue.jobs) != 1 {
		t.Errorf("Expected 1 dispatched job, got %d", len(e.queue.jobs))
	}
}

func TestCreateSessionUnauthorized(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)

	w := e.request(t, http.MethodPost, fmt.Sprintf("/api/teams/%s/sessions", e.team.ID),
		map[string]interface{}{"id": app.ID}, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestCreateSessionBadAppID(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, http.MethodPost, fmt.Sprintf("/api/teams/%s/sessions", e.team.ID),
		map[string]interface{}{"id": "not-a-uuid"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetSessionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)
	sessionID := e.createSession(t, app.ID)

	w := e.request(t, http.MethodGet, fmt.Sprintf("/api/teams/%s/sessions/%s", e.team.ID, sessionID), nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var detail models.SessionDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode detail: %v", err)
	}
	if detail.Session.ID != sessionID || detail.App.ID != app.ID {
		t.Error("Detail should carry the session and its app")
	}
}

func TestCancelSessionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)
	sessionID := e.createSession(t, app.ID)

	w := e.request(t, http.MethodPost, fmt.Sprintf("/api/teams/%s/sessions/%s/cancel", e.team.ID, sessionID), nil, true)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublicSessionHidesExistence(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)
	sessionID := e.createSession(t, app.ID)

	// Team-mode session and a made-up id read identically.
	w := e.request(t, http.MethodGet, "/s/sessions/"+sessionID, nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for gated session, got %d", w.Code)
	}
	w = e.request(t, http.MethodGet, "/s/sessions/00000000-0000-0000-0000-000000000000", nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing session, got %d", w.Code)
	}
}

func TestPublicSessionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModePublic)
	sessionID := e.createSession(t, app.ID)

	w := e.request(t, http.MethodGet, "/s/sessions/"+sessionID, nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var detail models.PublicSessionDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode detail: %v", err)
	}
	if detail.AppName != "Chat App" || detail.AppType != models.AppTypeChat {
		t.Errorf("Unexpected public detail: %+v", detail)
	}
}

func TestStartSessionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModePublic)
	sessionID := e.createSession(t, app.ID)

	w := e.request(t, http.MethodPost, "/s/sessions/start",
		map[string]interface{}{"session_id": sessionID, "app_type": "chat"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(e.queue.jobs) != 1 {
		t.Errorf("Expected 1 dispatched job, got %d", len(e.queue.jobs))
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createChatApp(t, models.SharingModeTeam)
	e.createSession(t, app.ID)
	e.createSession(t, app.ID)

	w := e.request(t, http.MethodGet, fmt.Sprintf("/api/teams/%s/sessions?before=null", e.team.ID), nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Sessions []models.Session `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(resp.Sessions))
	}
}
