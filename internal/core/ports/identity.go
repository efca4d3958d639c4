package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// SignUpInput carries the identity-service sign-up parameters.
type SignUpInput struct {
	Email      string
	Password   string
	Metadata   map[string]any
	RedirectTo string
	// CodeChallenge enables the PKCE confirmation flow when set (S256).
	CodeChallenge string
}

// SignUpResult is what the identity service returns on sign-up. Session is nil
// when the account still needs email confirmation.
type SignUpResult struct {
	User    *domain.User
	Session *domain.AuthSession
}

// IdentityService is the remote identity provider.
type IdentityService interface {
	SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*domain.User, error)
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*domain.AuthSession, error)
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.AuthSession, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error)

	// Privileged, service-role only.
	AdminDeleteUser(ctx context.Context, userID string) error
}
