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
	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMessageNotFound indicates the requested message was not found.
	ErrMessageNotFound = errors.New("message not found")
)

// SessionStore is the durable session lifecycle store.
type SessionStore struct {
	db *database.DB
}

// NewSessionStore creates a new SessionStore instance.
func NewSessionStore(db *database.DB) *SessionStore {
	return &SessionStore{db: db}
}

func marshalVariables(vars map[string]string) string {
	if vars == nil {
		return ""
	}
	b, _ := json.Marshal(vars)
	return string(b)
}

func unmarshalVariables(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var vars map[string]string
	if err := json.Unmarshal([]byte(raw.String), &vars); err != nil {
		return nil
	}
	return vars
}

// Insert persists a new session and returns its generated id.
func (s *SessionStore) Insert(session *models.Session) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		"INSERT INTO sessions (id, org_id, team_id, app_id, name, status, sharing_config, variables, tokens_used, start_date, last_updated_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, session.OrgID, session.TeamID, session.AppID, session.Name, session.Status,
		marshalSharing(session.SharingConfig), marshalVariables(session.Variables),
		session.TokensUsed, now, now,
	)
	if err != nil {
		return "", err
	}

	session.ID = id
	session.StartDate = now
	session.LastUpdatedDate = now
	return id, nil
}

// FindByID retrieves a session by id within the given scope.
func (s *SessionStore) FindByID(scope Scope, id string) (*models.Session, error) {
	query := "SELECT id, org_id, team_id, app_id, name, status, sharing_config, variables, tokens_used, start_date, last_updated_date FROM sessions WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	var session models.Session
	var sharing string
	var variables sql.NullString
	err := s.db.QueryRow(query+clause, args...).Scan(
		&session.ID, &session.OrgID, &session.TeamID, &session.AppID, &session.Name,
		&session.Status, &sharing, &variables, &session.TokensUsed,
		&session.StartDate, &session.LastUpdatedDate,
	)

	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session.SharingConfig = unmarshalSharing(sharing)
	session.Variables = unmarshalVariables(variables)
	return &session, nil
}

// UpdateStatus transitions a session's status.
func (s *SessionStore) UpdateStatus(scope Scope, id string, status models.SessionStatus) error {
	query := "UPDATE sessions SET status = ?, last_updated_date = ? WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{status, time.Now(), id}, extra...)

	result, err := s.db.Exec(query+clause, args...)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// UpdateVariables replaces a session's variable bindings.
func (s *SessionStore) UpdateVariables(scope Scope, id string, vars map[string]string) (*models.Session, error) {
	query := "UPDATE sessions SET variables = ?, last_updated_date = ? WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{marshalVariables(vars), time.Now(), id}, extra...)

	result, err := s.db.Exec(query+clause, args...)
	if err != nil {
		return nil, err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrSessionNotFound
	}
	return s.FindByID(scope, id)
}

// DeleteByID removes a session and returns the number of rows deleted.
func (s *SessionStore) DeleteByID(scope Scope, id string) (int64, error) {
	query := "DELETE FROM sessions WHERE id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{id}, extra...)

	result, err := s.db.Exec(query+clause, args...)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// ListByTeam retrieves a team's sessions newest first. A non-zero before
// timestamp acts as a pagination cursor on start_date.
func (s *SessionStore) ListByTeam(teamID string, before time.Time, limit int) ([]models.Session, error) {
	if limit == 0 {
		limit = 10
	}

	query := "SELECT id, org_id, team_id, app_id, name, status, sharing_config, variables, tokens_used, start_date, last_updated_date FROM sessions WHERE team_id = ?"
	args := []interface{}{teamID}
	if !before.IsZero() {
		query += " AND start_date < ?"
		args = append(args, before)
	}
	query += " ORDER BY start_date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]models.Session, 0, limit)
	for rows.Next() {
		var session models.Session
		var sharing string
		var variables sql.NullString
		if err := rows.Scan(
			&session.ID, &session.OrgID, &session.TeamID, &session.AppID, &session.Name,
			&session.Status, &sharing, &variables, &session.TokensUsed,
			&session.StartDate, &session.LastUpdatedDate,
		); err != nil {
			return nil, err
		}
		session.SharingConfig = unmarshalSharing(sharing)
		session.Variables = unmarshalVariables(variables)
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// MessagesBySession retrieves the full transcript for a session, oldest first.
func (s *SessionStore) MessagesBySession(scope Scope, sessionID string) ([]models.ChatMessage, error) {
	query := "SELECT id, session_id, team_id, author, role, content, tokens, created_at FROM chat_messages WHERE session_id = ?"
	clause, extra := scope.clause()
	args := append([]interface{}{sessionID}, extra...)

	rows, err := s.db.Query(query+clause+" ORDER BY created_at", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// MessagesAfter retrieves messages newer than the given message id.
func (s *SessionStore) MessagesAfter(scope Scope, sessionID, messageID string) ([]models.ChatMessage, error) {
	var after time.Time
	err := s.db.QueryRow(
		"SELECT created_at FROM chat_messages WHERE id = ? AND session_id = ?",
		messageID, sessionID,
	).Scan(&after)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	query := "SELECT id, session_id, team_id, author, role, content, tokens, created_at FROM chat_messages WHERE session_id = ? AND created_at > ?"
	clause, extra := scope.clause()
	args := append([]interface{}{sessionID, after}, extra...)

	rows, err := s.db.Query(query+clause+" ORDER BY created_at", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		var author, role, content sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.TeamID, &author, &role, &content, &msg.Tokens, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Author = author.String
		msg.Role = role.String
		msg.Content = content.String
		messages = append(messages, msg)
	}
	return messages, nil
}
