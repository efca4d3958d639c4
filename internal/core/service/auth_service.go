package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// AuthService implements registration, sign-in and sign-out for a browser
// session's auth client.
type AuthService struct {
	audit      ports.AuditSink
	confirmURL string
	log        zerolog.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(audit ports.AuditSink, publicURL string, log zerolog.Logger) *AuthService {
	return &AuthService{
		audit:      audit,
		confirmURL: confirmURL(publicURL),
		log:        log,
	}
}

func confirmURL(publicURL string) string {
	return strings.TrimRight(publicURL, "/") + "/confirm"
}

// SignUp validates the form before any remote call, then registers the
// account. The confirmation email points back at /confirm.
func (s *AuthService) SignUp(ctx context.Context, client ports.AuthClient, req ports.SignUpRequest, actor ports.Actor) (*ports.SignUpResult, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateSignUp(email, req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	res, err := client.SignUp(ctx, ports.SignUpInput{
		Email:      email,
		Password:   req.Password,
		RedirectTo: s.confirmURL,
	})
	if err != nil {
		s.log.Info().Err(err).Str("email", email).Msg("sign-up failed")
		return nil, err
	}
	return res, nil
}

func (s *AuthService) SignIn(ctx context.Context, client ports.AuthClient, email, password string, actor ports.Actor) (*domain.AuthSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	sess, err := client.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			record(s.audit, actor, auditEvent{action: domain.AuditFailedLogin, table: authTable, newValues: map[string]any{"email": email}})
		}
		return nil, err
	}

	userID := ""
	if sess.User != nil {
		userID = sess.User.ID
	}
	actor.UserID = userID
	record(s.audit, actor, auditEvent{action: domain.AuditUserLogin, table: authTable, recordID: userID})
	return sess, nil
}

// SignOut always ends the local session; a failed remote revocation is
// returned after the fact.
func (s *AuthService) SignOut(ctx context.Context, client ports.AuthClient, actor ports.Actor) error {
	err := client.SignOut(ctx)
	record(s.audit, actor, auditEvent{action: domain.AuditUserLogout, table: authTable, recordID: actor.UserID})
	return err
}
