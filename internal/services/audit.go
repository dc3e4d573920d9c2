package services

import (
	"database/sql"
	"encoding/json"

	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/models"
)

// AuditService records privileged actions against sessions and apps.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditLog represents an audit log entry to be recorded.
type AuditLog struct {
	Details      map[string]interface{}
	AccountID    string
	Email        string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
}

// Log records an audit log entry to the database.
func (s *AuditService) Log(entry AuditLog) error {
	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_logs (account_id, email, action, resource_type, resource_id, ip_address, user_agent, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.AccountID, entry.Email, entry.Action, entry.ResourceType, entry.ResourceID, entry.IPAddress, entry.UserAgent, detailsJSON)

	return err
}

// LogSessionAction records a session mutation (create, cancel, delete, edit).
func (s *AuditService) LogSessionAction(account *models.Account, action, sessionID, ip, userAgent string) {
	if account == nil {
		return
	}
	_ = s.Log(AuditLog{
		AccountID:    account.ID,
		Email:        account.Email,
		Action:       action,
		ResourceType: "session",
		ResourceID:   sessionID,
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
}

// AuditLogEntry represents an audit log record from the database.
type AuditLogEntry struct {
	AccountID    string `json:"account_id"`
	Email        string `json:"email"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
	ID           int64  `json:"id"`
}

// GetLogs retrieves audit logs with pagination.
func (s *AuditService) GetLogs(limit, offset int) ([]AuditLogEntry, error) {
	if limit == 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, account_id, email, action, resource_type, resource_id, ip_address, user_agent, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	logs := make([]AuditLogEntry, 0)
	for rows.Next() {
		var entry AuditLogEntry
		var accountID, resourceID, ipAddress, userAgent, details sql.NullString
		if err := rows.Scan(
			&entry.ID, &accountID, &entry.Email, &entry.Action, &entry.ResourceType,
			&resourceID, &ipAddress, &userAgent, &details, &entry.CreatedAt,
		); err != nil {
			continue
		}
		entry.AccountID = accountID.String
		entry.ResourceID = resourceID.String
		entry.IPAddress = ipAddress.String
		entry.UserAgent = userAgent.String
		entry.Details = details.String
		logs = append(logs, entry)
	}

	return logs, nil
}
