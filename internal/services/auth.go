package services

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crewdock/crewdock/internal/config"
	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthSessionExpired = errors.New("session expired")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrTeamNotFound       = errors.New("team not found")
)

// AuthService is the identity provider: accounts, login sessions, and team
// membership.
type AuthService struct {
	db  *database.DB
	cfg *config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(db *database.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Auth.BcryptCost)
	return string(bytes), err
}

func (s *AuthService) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateAccount creates a new account.
func (s *AuthService) CreateAccount(email, name, password string, isAdmin bool) (*models.Account, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		"INSERT INTO accounts (id, email, name, password_hash, is_admin) VALUES (?, ?, ?, ?, ?)",
		id, email, name, hash, isAdmin,
	)
	if err != nil {
		return nil, ErrAccountExists
	}

	return s.GetAccountByID(id)
}

// GetAccountByID retrieves an account by id.
func (s *AuthService) GetAccountByID(id string) (*models.Account, error) {
	var account models.Account
	var name sql.NullString
	err := s.db.QueryRow(
		"SELECT id, email, name, password_hash, is_admin, created_at, updated_at FROM accounts WHERE id = ?",
		id,
	).Scan(&account.ID, &account.Email, &name, &account.PasswordHash, &account.IsAdmin, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account.Name = name.String
	return &account, nil
}

// GetAccountByEmail retrieves an account by email address.
func (s *AuthService) GetAccountByEmail(email string) (*models.Account, error) {
	var account models.Account
	var name sql.NullString
	err := s.db.QueryRow(
		"SELECT id, email, name, password_hash, is_admin, created_at, updated_at FROM accounts WHERE email = ?",
		email,
	).Scan(&account.ID, &account.Email, &name, &account.PasswordHash, &account.IsAdmin, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account.Name = name.String
	return &account, nil
}

// CreateTeam creates a new team.
func (s *AuthService) CreateTeam(orgID, name string) (*models.Team, error) {
	id := uuid.New().String()
	_, err := s.db.Exec("INSERT INTO teams (id, org_id, name) VALUES (?, ?, ?)", id, orgID, name)
	if err != nil {
		return nil, err
	}
	return s.GetTeamByID(id)
}

// GetTeamByID retrieves a team by id.
func (s *AuthService) GetTeamByID(id string) (*models.Team, error) {
	var team models.Team
	err := s.db.QueryRow(
		"SELECT id, org_id, name, created_at FROM teams WHERE id = ?", id,
	).Scan(&team.ID, &team.OrgID, &team.Name, &team.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// AddMember adds an account to a team.
func (s *AuthService) AddMember(accountID, teamID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO account_teams (account_id, team_id) VALUES (?, ?)",
		accountID, teamID,
	)
	return err
}

// IsMember reports whether the account belongs to the team.
func (s *AuthService) IsMember(accountID, teamID string) bool {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM account_teams WHERE account_id = ? AND team_id = ?",
		accountID, teamID,
	).Scan(&one)
	return err == nil
}

// Login verifies credentials and creates a login session.
func (s *AuthService) Login(email, password string) (*models.AuthSession, error) {
	account, err := s.GetAccountByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !s.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.CreateAuthSession(account.ID)
}

// CreateAuthSession creates a login session for an account.
func (s *AuthService) CreateAuthSession(accountID string) (*models.AuthSession, error) {
	sessionID := uuid.New().String()
	expiresAt := time.Now().Add(s.cfg.Auth.GetSessionDuration())

	_, err := s.db.Exec(
		"INSERT INTO auth_sessions (id, account_id, expires_at) VALUES (?, ?, ?)",
		sessionID, accountID, expiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &models.AuthSession{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateAuthSession resolves a login session to its account.
func (s *AuthService) ValidateAuthSession(sessionID string) (*models.Account, error) {
	var session models.AuthSession
	err := s.db.QueryRow(
		"SELECT id, account_id, expires_at, created_at FROM auth_sessions WHERE id = ?",
		sessionID,
	).Scan(&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrAuthSessionExpired
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.DeleteAuthSession(sessionID)
		return nil, ErrAuthSessionExpired
	}

	return s.GetAccountByID(session.AccountID)
}

// DeleteAuthSession removes a login session.
func (s *AuthService) DeleteAuthSession(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM auth_sessions WHERE id = ?", sessionID)
	return err
}

// EnsureAdmin bootstraps the admin account and its default team from config.
func (s *AuthService) EnsureAdmin() error {
	account, err := s.GetAccountByEmail(s.cfg.Admin.Email)
	if err == nil {
		return s.ensureAdminTeam(account)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	if s.cfg.Admin.Password == "changeme" {
		log.Printf("[Auth] WARNING: default admin password in use, change admin.password in config")
	}

	account, err = s.CreateAccount(s.cfg.Admin.Email, "Admin", s.cfg.Admin.Password, true)
	if err != nil {
		return err
	}
	return s.ensureAdminTeam(account)
}

func (s *AuthService) ensureAdminTeam(account *models.Account) error {
	var teamID string
	err := s.db.QueryRow(
		"SELECT team_id FROM account_teams WHERE account_id = ? LIMIT 1", account.ID,
	).Scan(&teamID)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	team, err := s.CreateTeam(uuid.New().String(), s.cfg.Admin.TeamName)
	if err != nil {
		return err
	}
	return s.AddMember(account.ID, team.ID)
}
