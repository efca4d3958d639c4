package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// Bootstrap strategies. A deployment runs exactly one.
const (
	// StrategyAtomic creates and promotes the first admin in one remote
	// procedure; the account is confirmed immediately.
	StrategyAtomic = "atomic"
	// StrategyTwoPhase signs the account up with email confirmation and
	// promotes it when the confirmation link is followed.
	StrategyTwoPhase = "two_phase"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(name string) (string, error) {
	switch name {
	case "", StrategyAtomic:
		return StrategyAtomic, nil
	case StrategyTwoPhase:
		return StrategyTwoPhase, nil
	}
	return "", fmt.Errorf("unknown bootstrap strategy %q", name)
}

// BootstrapData is attached to a successful bootstrap result.
type BootstrapData struct {
	UserID            string `json:"user_id,omitempty"`
	Email             string `json:"email"`
	NeedsVerification bool   `json:"needs_verification"`
	AutoConfirmed     bool   `json:"auto_confirmed"`
	RedirectURL       string `json:"redirect_url,omitempty"`
}

// BootstrapService establishes the first administrator.
type BootstrapService struct {
	procs      ports.AdminProcedures
	verifiers  ports.VerifierStore
	audit      ports.AuditSink
	strategy   string
	confirmURL string
	log        zerolog.Logger
}

var _ ports.BootstrapService = (*BootstrapService)(nil)

func NewBootstrapService(
	procs ports.AdminProcedures,
	verifiers ports.VerifierStore,
	audit ports.AuditSink,
	strategy string,
	publicURL string,
	log zerolog.Logger,
) *BootstrapService {
	return &BootstrapService{
		procs:      procs,
		verifiers:  verifiers,
		audit:      audit,
		strategy:   strategy,
		confirmURL: confirmURL(publicURL),
		log:        log.With().Str("strategy", strategy).Logger(),
	}
}

// Strategy returns the configured strategy name.
func (s *BootstrapService) Strategy() string { return s.strategy }

func (s *BootstrapService) Status(ctx context.Context) (*ports.BootstrapStatus, error) {
	exists, err := s.procs.AdminExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin exists: %w", err)
	}
	return &ports.BootstrapStatus{HasAdmin: exists, SetupRequired: !exists, Strategy: s.strategy}, nil
}

// Bootstrap refuses whenever an admin already exists, or when that cannot be
// determined.
func (s *BootstrapService) Bootstrap(ctx context.Context, client ports.AuthClient, req ports.BootstrapRequest, actor ports.Actor) ports.Result {
	email := strings.TrimSpace(req.Email)
	if err := validateBootstrap(email, req.Password, req.ConfirmPassword); err != nil {
		var ve *domain.ValidationError
		errors.As(err, &ve)
		return ports.Result{Message: ve.Message, Error: ve.Code}
	}

	exists, err := s.procs.AdminExists(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("admin existence check failed")
		return ports.Result{Message: "Unable to verify admin status. Please try again.", Error: CodeDatabase}
	}
	if exists {
		return ports.Result{
			Message: "An admin account already exists. Please use the existing admin credentials to log in.",
			Error:   CodeAdminExists,
		}
	}

	var res ports.Result
	switch s.strategy {
	case StrategyTwoPhase:
		res = s.signUpCandidate(ctx, client, email, req.Password)
	default:
		res = s.createAtomically(ctx, email, req.Password)
	}
	if res.Success {
		record(s.audit, actor, auditEvent{
			action:    domain.AuditAdminAction,
			table:     authTable,
			newValues: map[string]any{"event": "bootstrap", "strategy": s.strategy, "email": email},
		})
	}
	return res
}

func (s *BootstrapService) createAtomically(ctx context.Context, email, password string) ports.Result {
	out, err := s.procs.CreateFirstAdmin(ctx, email, password)
	if err != nil {
		s.log.Error().Err(err).Msg("create_first_admin failed")
		return ports.Result{Message: "Failed to create admin account. Please try again.", Error: CodeDatabase}
	}
	if out == nil || !out.Success {
		res := ports.Result{Message: "Failed to create admin account", Error: CodeCreationFailed}
		if out != nil && out.Message != "" {
			res.Message = out.Message
		}
		if out != nil && out.Error != "" {
			res.Error = out.Error
		}
		return res
	}

	s.log.Info().Str("user_id", out.UserID).Msg("first admin created")
	created := out.Email
	if created == "" {
		created = email
	}
	return ports.Result{
		Success: true,
		Message: "Admin account created successfully! You can now log in directly - no email confirmation needed.",
		Data: BootstrapData{
			UserID:        out.UserID,
			Email:         created,
			AutoConfirmed: true,
		},
	}
}

// signUpCandidate is the first half of the two-phase strategy. The account is
// marked as the first-admin candidate and promoted on confirmation.
func (s *BootstrapService) signUpCandidate(ctx context.Context, client ports.AuthClient, email, password string) ports.Result {
	verifier, challenge, err := newPKCE()
	if err != nil {
		s.log.Error().Err(err).Msg("pkce generation failed")
		return ports.Result{Message: "An unexpected error occurred. Please try again.", Error: CodeUnexpected}
	}
	if err := s.verifiers.SaveVerifier(ctx, client.SessionID(), verifier); err != nil {
		s.log.Error().Err(err).Msg("pkce verifier not stored")
		return ports.Result{Message: "An unexpected error occurred. Please try again.", Error: CodeUnexpected}
	}

	res, err := client.SignUp(ctx, ports.SignUpInput{
		Email:         email,
		Password:      password,
		Metadata:      map[string]any{"role": string(domain.RoleAdmin), "is_first_admin": true},
		RedirectTo:    s.confirmURL,
		CodeChallenge: challenge,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("first admin sign-up failed")
		return ports.Result{Message: "Account creation failed: " + userMessage(err), Error: CodeAuth}
	}
	if res.User == nil {
		return ports.Result{Message: "Failed to create user account. Please try again.", Error: CodeUserCreationFailed}
	}

	return ports.Result{
		Success: true,
		Message: "Admin account created! Please check your email and click the confirmation link.",
		Data: BootstrapData{
			UserID:            res.User.ID,
			Email:             email,
			NeedsVerification: !res.User.Confirmed(),
			RedirectURL:       s.confirmURL,
		},
	}
}

// userMessage turns a remote failure into text fit for the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "a user with this email address has already been registered"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, domain.ErrSessionExpired):
		return "the link is invalid or has expired"
	}
	return "the identity service rejected the request"
}
