package services

import (
	"github.com/crewdock/crewdock/internal/models"
)

// AccessGate decides whether a caller may read or act on an app's sessions.
// It never returns an error: any lookup failure is reported as "no access"
// so public callers uniformly see not-found instead of learning whether a
// resource exists.
type AccessGate struct {
	store *EntityStore
	auth  *AuthService
}

// NewAccessGate creates a new AccessGate instance.
func NewAccessGate(store *EntityStore, auth *AuthService) *AccessGate {
	return &AccessGate{store: store, auth: auth}
}

// CanAccessApp reports whether account (nil for anonymous) may access the
// app. Team members are always granted. requirePrivileged additionally
// demands team membership even for public and whitelist apps; it guards
// mutating actions such as cancel and delete.
func (g *AccessGate) CanAccessApp(appID string, requirePrivileged bool, account *models.Account) bool {
	app, err := g.store.GetApp(Unscoped(), appID)
	if err != nil {
		return false
	}

	if account != nil && g.auth.IsMember(account.ID, app.TeamID) {
		return true
	}

	if requirePrivileged {
		return false
	}

	switch app.SharingConfig.Mode {
	case models.SharingModePublic:
		return true
	case models.SharingModeWhitelist:
		if account == nil {
			return false
		}
		return app.SharingConfig.Allows(account.Email)
	default:
		return false
	}
}
