package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// AuthClient is the auth client bound to one browser session. Every state
// change it makes is broadcast to that session's Session Context.
type AuthClient interface {
	SessionID() string
	// Current returns the session the client holds, or nil.
	Current() *domain.AuthSession
	SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignOut(ctx context.Context) error
	SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.AuthSession, error)
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*domain.AuthSession, error)
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.AuthSession, error)
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose record-store calls run as the
// holder of token instead of the anonymous role.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token set by WithAccessToken, if any.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
