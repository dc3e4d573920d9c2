package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/crewdock/crewdock/internal/models"
	"github.com/crewdock/crewdock/internal/validation"
)

var (
	// ErrInvalidInput indicates a malformed request or a reference to a
	// missing app/agent/crew/task/variable. Nothing is mutated.
	ErrInvalidInput = errors.New("invalid inputs")
	// ErrAccessDenied indicates the access gate refused the caller.
	ErrAccessDenied = errors.New("no permission")
)

// SessionOrchestrator turns user actions into at-most-one asynchronous
// execution per session. It composes the access gate, variable resolver,
// liveness registry, lifecycle store, and dispatch queue; it never waits on
// the actual run, which happens in an external worker pool.
type SessionOrchestrator struct {
	store    *EntityStore
	sessions *SessionStore
	resolver *VariableResolver
	gate     *AccessGate
	registry *LivenessRegistry
	queue    DispatchQueue
	stop     StopSignal
}

// NewSessionOrchestrator creates a new SessionOrchestrator instance.
func NewSessionOrchestrator(
	store *EntityStore,
	sessions *SessionStore,
	resolver *VariableResolver,
	gate *AccessGate,
	registry *LivenessRegistry,
	queue DispatchQueue,
	stop StopSignal,
) *SessionOrchestrator {
	return &SessionOrchestrator{
		store:    store,
		sessions: sessions,
		resolver: resolver,
		gate:     gate,
		registry: registry,
		queue:    queue,
		stop:     stop,
	}
}

// Create persists a new session for the app and, when the app needs no
// runtime variables and the caller did not ask to skip the run, dispatches
// it immediately. The session row is committed before any dispatch so a
// queue failure leaves a valid STARTED session that a later resume picks up.
// Each call creates a new session; only the dispatch within a call is
// deduplicated.
func (o *SessionOrchestrator) Create(ctx context.Context, orgID, teamID string, req *models.CreateSessionRequest) (*models.Session, error) {
	if err := validation.ValidateID(req.AppID); err != nil {
		return nil, ErrInvalidInput
	}

	scope := TeamScoped(teamID)
	app, err := o.store.GetApp(scope, req.AppID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	// Also verifies the app's agent/crew/task/variable references.
	variables, err := o.resolver.Resolve(scope, app)
	if err != nil {
		return nil, ErrInvalidInput
	}
	hasVariables := len(variables) > 0

	session := &models.Session{
		OrgID:  orgID,
		TeamID: teamID,
		AppID:  app.ID,
		Name:   app.Name,
		Status: models.StatusStarted,
		SharingConfig: models.SharingConfig{
			Mode: app.SharingConfig.Mode,
		},
	}
	id, err := o.sessions.Insert(session)
	if err != nil {
		return nil, err
	}

	if req.SkipRun || hasVariables {
		// The session waits for explicit variable submission and a
		// subsequent start.
		return session, nil
	}

	if err := o.dispatch(ctx, app.Type, id); err != nil {
		return session, err
	}
	return session, nil
}

// Resume dispatches a session unless a run is already in flight. Any number
// of concurrent callers may race here; the registry guarantees at most one
// of them enqueues.
func (o *SessionOrchestrator) Resume(ctx context.Context, appType models.AppType, sessionID string) error {
	if o.registry.IsActive(sessionID) {
		return nil
	}
	return o.dispatch(ctx, appType, sessionID)
}

// dispatch marks the session active and enqueues its job. A queue failure
// rolls the registry back so a later resume can retry.
func (o *SessionOrchestrator) dispatch(ctx context.Context, appType models.AppType, sessionID string) error {
	if !o.registry.TryMarkActive(sessionID) {
		return nil
	}

	log.Printf("[Orchestrator] Dispatching session %s", sessionID)
	err := o.queue.Enqueue(ctx, JobExecuteRun,
		JobPayload{Type: appType, SessionID: sessionID},
		JobOptions{RemoveOnComplete: true, RemoveOnFail: true},
	)
	if err != nil {
		o.registry.ClearActive(sessionID)
		log.Printf("[Orchestrator] Enqueue failed for session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// Start explicitly dispatches a session whose variables have been bound.
func (o *SessionOrchestrator) Start(ctx context.Context, req *models.StartSessionRequest, account *models.Account) error {
	session, err := o.sessions.FindByID(Unscoped(), req.SessionID)
	if err != nil {
		return ErrInvalidInput
	}

	if !o.gate.CanAccessApp(session.AppID, false, account) {
		return ErrAccessDenied
	}

	return o.Resume(ctx, req.AppType, session.ID)
}

// Cancel marks a session terminated and raises the stop flag the worker
// polls. Cancellation is cooperative; the orchestrator does not wait for
// the worker to acknowledge.
func (o *SessionOrchestrator) Cancel(ctx context.Context, teamID, sessionID string, account *models.Account) error {
	if err := validation.ValidateID(sessionID); err != nil {
		return ErrInvalidInput
	}

	session, err := o.sessions.FindByID(TeamScoped(teamID), sessionID)
	if err != nil {
		return ErrInvalidInput
	}

	if !o.gate.CanAccessApp(session.AppID, true, account) {
		return ErrAccessDenied
	}

	if err := o.sessions.UpdateStatus(TeamScoped(teamID), sessionID, models.StatusTerminated); err != nil {
		return err
	}
	return o.stop.Set(ctx, sessionID)
}

// Delete removes a session. A deleted session must not keep producing
// output, so the stop flag is raised after a successful delete.
func (o *SessionOrchestrator) Delete(ctx context.Context, teamID, sessionID string, account *models.Account) error {
	if err := validation.ValidateID(sessionID); err != nil {
		return ErrInvalidInput
	}

	session, err := o.sessions.FindByID(TeamScoped(teamID), sessionID)
	if err != nil {
		return ErrInvalidInput
	}

	if !o.gate.CanAccessApp(session.AppID, true, account) {
		return ErrAccessDenied
	}

	deleted, err := o.sessions.DeleteByID(TeamScoped(teamID), sessionID)
	if err != nil {
		return err
	}
	if deleted < 1 {
		return ErrInvalidInput
	}
	return o.stop.Set(ctx, sessionID)
}

// EditVariables persists variable bindings onto a session. It never
// dispatches; the caller issues an explicit start once all required
// variables are bound.
func (o *SessionOrchestrator) EditVariables(sessionID string, vars map[string]string, account *models.Account) (*models.Session, error) {
	if err := validation.ValidateVariables(vars); err != nil {
		return nil, ErrInvalidInput
	}

	session, err := o.sessions.FindByID(Unscoped(), sessionID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	if !o.gate.CanAccessApp(session.AppID, false, account) {
		return nil, ErrAccessDenied
	}

	return o.sessions.UpdateVariables(TeamScoped(session.TeamID), sessionID, vars)
}

// Fetch is the privileged read path: the session, its app, the resolved
// variable list enumerated for editing, and the agent avatar map.
func (o *SessionOrchestrator) Fetch(teamID, sessionID string) (*models.SessionDetail, error) {
	scope := TeamScoped(teamID)

	session, err := o.sessions.FindByID(scope, sessionID)
	if err != nil {
		return nil, err
	}
	app, err := o.store.GetApp(scope, session.AppID)
	if err != nil {
		return nil, err
	}

	avatarMap, err := o.avatarMap(scope, app)
	if err != nil {
		return nil, err
	}

	variables, err := o.resolver.Resolve(scope, app)
	if err != nil {
		return nil, err
	}
	bindings := make([]models.VariableBinding, 0, len(variables))
	for _, v := range variables {
		bindings = append(bindings, models.VariableBinding{
			ID:           v.ID,
			Name:         v.Name,
			DefaultValue: v.DefaultValue,
		})
	}

	return &models.SessionDetail{
		Session:   session,
		App:       app,
		Variables: bindings,
		AvatarMap: avatarMap,
	}, nil
}

// FetchPublic is the anonymous read path: reduced fields, and any lookup or
// gate failure collapses to not-found so existence never leaks.
func (o *SessionOrchestrator) FetchPublic(sessionID string, account *models.Account) (*models.PublicSessionDetail, error) {
	session, err := o.sessions.FindByID(Unscoped(), sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	app, err := o.store.GetApp(Unscoped(), session.AppID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	if !o.gate.CanAccessApp(app.ID, false, account) {
		return nil, ErrSessionNotFound
	}

	avatarMap, err := o.avatarMap(Unscoped(), app)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	return &models.PublicSessionDetail{
		Session:   session,
		AppName:   app.Name,
		AppType:   app.Type,
		AvatarMap: avatarMap,
	}, nil
}

// Messages is the privileged transcript read. Fetching messages for an
// idle chat session with no unresolved variables doubles as the resume
// trigger: a viewer opening a session transparently restarts its run. A
// dispatch failure here is logged, not surfaced; the read itself succeeded
// and the cleared registry lets the next fetch retry.
func (o *SessionOrchestrator) Messages(ctx context.Context, teamID, sessionID, afterID string) ([]models.ChatMessage, error) {
	scope := TeamScoped(teamID)

	if afterID != "" {
		return o.sessions.MessagesAfter(scope, sessionID, afterID)
	}

	messages, err := o.sessions.MessagesBySession(scope, sessionID)
	if err != nil {
		return nil, err
	}

	if session, err := o.sessions.FindByID(Unscoped(), sessionID); err == nil {
		o.maybeResume(ctx, session)
	}

	return messages, nil
}

// maybeResume re-dispatches an idle chat session unless unresolved
// variables block its first run.
func (o *SessionOrchestrator) maybeResume(ctx context.Context, session *models.Session) {
	app, err := o.store.GetApp(Unscoped(), session.AppID)
	if err != nil || app.Type != models.AppTypeChat {
		return
	}

	agent, err := o.store.GetAgent(Unscoped(), app.AgentID)
	if err != nil {
		return
	}

	blocked := len(agent.VariableIDs) > 0 && len(session.Variables) == 0
	if blocked {
		return
	}

	if err := o.Resume(ctx, app.Type, session.ID); err != nil {
		log.Printf("[Orchestrator] Resume of session %s failed: %v", session.ID, err)
	}
}

// PublicMessages is the gate-checked anonymous transcript read.
func (o *SessionOrchestrator) PublicMessages(sessionID string, account *models.Account) ([]models.ChatMessage, error) {
	session, err := o.sessions.FindByID(Unscoped(), sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	if !o.gate.CanAccessApp(session.AppID, false, account) {
		return nil, ErrSessionNotFound
	}

	return o.sessions.MessagesBySession(Unscoped(), sessionID)
}

// CanView reports whether the caller may view the session's live stream.
func (o *SessionOrchestrator) CanView(sessionID string, account *models.Account) bool {
	session, err := o.sessions.FindByID(Unscoped(), sessionID)
	if err != nil {
		return false
	}
	return o.gate.CanAccessApp(session.AppID, false, account)
}

// List retrieves a page of a team's sessions.
func (o *SessionOrchestrator) List(teamID, before string, limit int) ([]models.Session, error) {
	cursor, err := parseCursor(before)
	if err != nil {
		return nil, ErrInvalidInput
	}
	return o.sessions.ListByTeam(teamID, cursor, limit)
}

// parseCursor interprets the list pagination cursor. The UI sends the
// literal string "null" for the first page.
func parseCursor(before string) (time.Time, error) {
	if before == "" || before == "null" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, before)
}

// avatarMap resolves the app's agents into the name-to-icon map viewers
// render. Chat app keys are lower-cased for transcript author matching.
func (o *SessionOrchestrator) avatarMap(scope Scope, app *models.App) (map[string]string, error) {
	switch app.Type {
	case models.AppTypeChat:
		agent, err := o.store.GetAgent(scope, app.AgentID)
		if err != nil {
			return nil, err
		}
		return map[string]string{strings.ToLower(agent.Name): agent.Icon}, nil

	case models.AppTypeCrew:
		crew, err := o.store.GetCrew(scope, app.CrewID)
		if err != nil {
			return nil, err
		}
		return o.store.AgentNameMap(scope, crew.AgentIDs)

	default:
		return nil, ErrInvalidInput
	}
}
