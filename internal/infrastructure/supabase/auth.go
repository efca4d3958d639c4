package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

var _ ports.IdentityService = (*Client)(nil)

type userResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (u *userResponse) toDomain() *domain.User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &domain.User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		UserMetadata:     u.UserMetadata,
		CreatedAt:        u.CreatedAt,
	}
}

type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

func (s *sessionResponse) toDomain() *domain.AuthSession {
	out := &domain.AuthSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User.toDomain(),
	}
	switch {
	case s.ExpiresAt > 0:
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		out.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return out
}

// signUpResponse is a session when the project auto-confirms and a bare user
// otherwise.
type signUpResponse struct {
	sessionResponse
	userResponse
}

func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
	}
	if len(in.Metadata) > 0 {
		body["data"] = in.Metadata
	}
	if in.CodeChallenge != "" {
		body["code_challenge"] = in.CodeChallenge
		body["code_challenge_method"] = "s256"
	}
	q := url.Values{}
	if in.RedirectTo != "" {
		q.Set("redirect_to", in.RedirectTo)
	}

	var resp signUpResponse
	err := c.do(ctx, request{op: "auth.signup", method: http.MethodPost, path: "/auth/v1/signup", query: q, body: body}, &resp)
	if err != nil {
		return nil, classifyAuth(err)
	}
	if resp.AccessToken != "" {
		s := resp.sessionResponse.toDomain()
		return &ports.SignUpResult{User: s.User, Session: s}, nil
	}
	return &ports.SignUpResult{User: resp.userResponse.toDomain()}, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.AuthSession, error) {
	return c.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": codeVerifier})
}

func (c *Client) token(ctx context.Context, grant string, body map[string]string) (*domain.AuthSession, error) {
	var resp sessionResponse
	err := c.do(ctx, request{
		op:     "auth.token." + grant,
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &resp)
	if err != nil {
		return nil, classifyAuth(err)
	}
	return resp.toDomain(), nil
}

func (c *Client) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*domain.AuthSession, error) {
	var resp sessionResponse
	err := c.do(ctx, request{
		op:     "auth.verify",
		method: http.MethodPost,
		path:   "/auth/v1/verify",
		body:   map[string]string{"token_hash": tokenHash, "type": otpType},
	}, &resp)
	if err != nil {
		return nil, classifyAuth(err)
	}
	return resp.toDomain(), nil
}

// SetSession adopts a token pair received out of band, refreshing it first
// when the access token has already expired.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.AuthSession, error) {
	exp, err := tokenExpiry(accessToken)
	if err != nil {
		return nil, fmt.Errorf("set session: %w", domain.ErrSessionExpired)
	}
	if !exp.IsZero() && !time.Now().Before(exp) {
		if refreshToken == "" {
			return nil, fmt.Errorf("set session: %w", domain.ErrSessionExpired)
		}
		return c.RefreshSession(ctx, refreshToken)
	}

	user, err := c.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &domain.AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		User:         user,
	}, nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var resp userResponse
	err := c.do(ctx, request{op: "auth.user", method: http.MethodGet, path: "/auth/v1/user", token: accessToken}, &resp)
	if err != nil {
		return nil, classifyAuth(err)
	}
	return resp.toDomain(), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, request{op: "auth.logout", method: http.MethodPost, path: "/auth/v1/logout", token: accessToken}, nil)
	if err != nil {
		err = classifyAuth(err)
		if errors.Is(err, domain.ErrSessionExpired) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) AdminDeleteUser(ctx context.Context, userID string) error {
	err := c.do(ctx, request{
		op:     "auth.admin.delete_user",
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(userID),
		cred:   asService,
	}, nil)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return fmt.Errorf("%w: %w", domain.ErrUserNotFound, err)
		}
		return err
	}
	return nil
}

// classifyAuth maps identity-service failures onto domain errors while
// keeping the RemoteError reachable with errors.As.
func classifyAuth(err error) error {
	var re *RemoteError
	if !errors.As(err, &re) {
		return err
	}
	switch re.Code {
	case "invalid_credentials", "invalid_grant", "email_not_confirmed":
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	case "user_already_exists", "email_exists":
		return fmt.Errorf("%w: %w", domain.ErrUserExists, err)
	case "bad_jwt", "session_not_found", "session_expired", "refresh_token_not_found",
		"refresh_token_already_used", "otp_expired", "flow_state_expired", "flow_state_not_found":
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	case "user_not_found":
		return fmt.Errorf("%w: %w", domain.ErrUserNotFound, err)
	}
	if re.Status == http.StatusUnauthorized || re.Status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}
	return err
}
