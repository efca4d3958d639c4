package domain

import "time"

// User is an identity-service account.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Confirmed reports whether the account's email ownership has been verified.
func (u *User) Confirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// IsFirstAdminCandidate reports whether the account was created by the
// two-phase bootstrap and still awaits promotion.
func (u *User) IsFirstAdminCandidate() bool {
	if u == nil {
		return false
	}
	first, _ := u.UserMetadata["is_first_admin"].(bool)
	role, _ := u.UserMetadata["role"].(string)
	return first && Role(role) == RoleAdmin
}

// AuthSession is the token pair issued by the identity service.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *AuthSession) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// AuthEvent names an auth-state change.
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)
