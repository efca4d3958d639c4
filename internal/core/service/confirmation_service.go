package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	msgConfirmPending   = "Confirm your email address to continue."
	msgInvalidLink      = "Invalid or expired confirmation link. Please try creating your account again."
	msgLinkError        = "Authentication failed. Please try again."
	msgAlreadyConfirmed = "Email already confirmed! You can now log in."
	msgConfirmed        = "Email confirmed successfully! Redirecting to dashboard..."
	msgAdminConfirmed   = "Email confirmed successfully! You can now log in to your admin account."
	msgAdminFailed      = "Failed to set admin privileges. Please contact support."
	msgProvisioning     = "Your email is confirmed but your profile is still being set up. Please press confirm again in a moment."
)

const defaultProvisionWait = time.Second

var errProfileVanished = errors.New("candidate profile disappeared")

// ConfirmationService completes email confirmation links.
type ConfirmationService struct {
	identity  ports.IdentityService
	procs     ports.AdminProcedures
	admins    ports.ProfileRepository // privileged, bypasses row-level security
	verifiers ports.VerifierStore
	links     ports.LinkGuard
	audit     ports.AuditSink
	strategy  string
	log       zerolog.Logger

	// provisionWait is how long to wait before looking for a missing
	// candidate profile a second time.
	provisionWait time.Duration
}

var _ ports.ConfirmationService = (*ConfirmationService)(nil)

func NewConfirmationService(
	identity ports.IdentityService,
	procs ports.AdminProcedures,
	admins ports.ProfileRepository,
	verifiers ports.VerifierStore,
	links ports.LinkGuard,
	audit ports.AuditSink,
	strategy string,
	log zerolog.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		identity:  identity,
		procs:     procs,
		admins:    admins,
		verifiers: verifiers,
		links:     links,
		audit:     audit,
		strategy:  strategy,
		log:       log,

		provisionWait: defaultProvisionWait,
	}
}

func (s *ConfirmationService) Inspect(link domain.ConfirmationLink) ports.ConfirmationResult {
	if res, bad := rejectLink(link); bad {
		return res
	}
	return ports.ConfirmationResult{
		Status:  ports.ConfirmationPending,
		Shape:   link.Shape(),
		Message: msgConfirmPending,
	}
}

func rejectLink(link domain.ConfirmationLink) (ports.ConfirmationResult, bool) {
	if link.Error != "" {
		msg := link.ErrorDescription
		if msg == "" {
			msg = msgLinkError
		}
		return ports.ConfirmationResult{Status: ports.ConfirmationError, Message: msg}, true
	}
	if link.Shape() == domain.LinkNone {
		return ports.ConfirmationResult{Status: ports.ConfirmationError, Message: msgInvalidLink}, true
	}
	return ports.ConfirmationResult{}, false
}

// Confirm performs exactly one identity-service call chosen by the link's
// shape. Under the two-phase strategy it then promotes the first-admin
// candidate, deleting the account again when promotion fails. A link is
// remembered as consumed only once the whole flow has succeeded.
func (s *ConfirmationService) Confirm(ctx context.Context, client ports.AuthClient, link domain.ConfirmationLink, actor ports.Actor) ports.ConfirmationResult {
	if res, bad := rejectLink(link); bad {
		return res
	}
	shape := link.Shape()
	log := s.log.With().Str("shape", string(shape)).Logger()

	consumed, err := s.links.IsConsumed(ctx, string(shape), link.Secret())
	if err != nil {
		log.Warn().Err(err).Msg("consumed-link check failed")
	}
	if consumed {
		return ports.ConfirmationResult{Status: ports.ConfirmationSuccess, Shape: shape, Message: msgAlreadyConfirmed, Redirect: "/auth"}
	}

	twoPhase := s.strategy == StrategyTwoPhase

	// A candidate whose profile was not ready last time already holds the
	// confirmed session; the link itself cannot be verified twice.
	sess := client.Current()
	if !twoPhase || sess == nil || !sess.User.IsFirstAdminCandidate() {
		sess, err = s.complete(ctx, client, link)
		if err != nil {
			log.Info().Err(err).Msg("confirmation failed")
			msg := "Confirmation failed: " + userMessage(err)
			if errors.Is(err, domain.ErrSessionExpired) {
				msg = msgInvalidLink
			}
			return ports.ConfirmationResult{Status: ports.ConfirmationError, Shape: shape, Message: msg}
		}
	} else {
		log.Info().Str("user_id", sess.User.ID).Msg("resuming first admin promotion")
	}

	if !twoPhase || !sess.User.IsFirstAdminCandidate() {
		s.markConsumed(ctx, log, shape, link)
		return ports.ConfirmationResult{Status: ports.ConfirmationSuccess, Shape: shape, Message: msgConfirmed, Redirect: "/dashboard"}
	}

	actor.UserID = sess.User.ID
	err = s.promoteFirstAdmin(ctx, sess.User)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		log.Warn().Str("user_id", sess.User.ID).Msg("candidate profile not provisioned yet")
		return ports.ConfirmationResult{Status: ports.ConfirmationPending, Shape: shape, Message: msgProvisioning}
	case err != nil:
		log.Error().Err(err).Str("user_id", sess.User.ID).Msg("first admin promotion failed")
		s.compensate(ctx, client, sess.User.ID)
		return ports.ConfirmationResult{Status: ports.ConfirmationError, Shape: shape, Message: msgAdminFailed}
	}

	s.markConsumed(ctx, log, shape, link)
	record(s.audit, actor, auditEvent{
		action:    domain.AuditRoleChange,
		table:     profilesTable,
		recordID:  sess.User.ID,
		newValues: map[string]any{"role": domain.RoleAdmin, "status": domain.ProfileStatusActive, "reason": "bootstrap"},
	})
	return ports.ConfirmationResult{Status: ports.ConfirmationSuccess, Shape: shape, Message: msgAdminConfirmed, Redirect: "/admin"}
}

func (s *ConfirmationService) markConsumed(ctx context.Context, log zerolog.Logger, shape domain.LinkShape, link domain.ConfirmationLink) {
	if err := s.links.MarkConsumed(ctx, string(shape), link.Secret()); err != nil {
		log.Warn().Err(err).Msg("consumed link not recorded")
	}
}

func (s *ConfirmationService) complete(ctx context.Context, client ports.AuthClient, link domain.ConfirmationLink) (*domain.AuthSession, error) {
	var (
		sess *domain.AuthSession
		err  error
	)
	switch link.Shape() {
	case domain.LinkTokenPair:
		sess, err = client.SetSession(ctx, link.AccessToken, link.RefreshToken)
	case domain.LinkTokenHash:
		sess, err = client.VerifyOTP(ctx, link.TokenHash, link.Type)
	case domain.LinkCode:
		verifier, verr := s.verifiers.TakeVerifier(ctx, client.SessionID())
		if verr != nil {
			s.log.Warn().Err(verr).Msg("pkce verifier lookup failed")
		}
		sess, err = client.ExchangeCode(ctx, link.Code, verifier)
	}
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.User == nil {
		return nil, fmt.Errorf("confirmation returned no user: %w", domain.ErrSessionExpired)
	}
	return sess, nil
}

// promoteFirstAdmin makes the confirmed candidate the administrator unless
// another admin appeared in the meantime. A profile row that is still being
// created is looked up once more before ErrProfileNotFound is returned.
func (s *ConfirmationService) promoteFirstAdmin(ctx context.Context, user *domain.User) error {
	profile, err := s.candidateProfile(ctx, user.ID)
	if err != nil {
		return err
	}
	if profile.Role == domain.RoleAdmin && profile.Status == domain.ProfileStatusActive {
		return nil
	}

	exists, err := s.procs.AdminExists(ctx)
	if err != nil {
		return fmt.Errorf("admin exists: %w", err)
	}
	if exists && profile.Role != domain.RoleAdmin {
		return errors.New("an admin already exists")
	}

	role, status := domain.RoleAdmin, domain.ProfileStatusActive
	if _, err := s.admins.Update(ctx, user.ID, domain.ProfileUpdate{Role: &role, Status: &status}); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return fmt.Errorf("promote candidate: %w", errProfileVanished)
		}
		return fmt.Errorf("promote candidate: %w", err)
	}
	return nil
}

func (s *ConfirmationService) candidateProfile(ctx context.Context, id string) (*domain.Profile, error) {
	profile, err := s.admins.FindByID(ctx, id)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		if err != nil {
			return nil, fmt.Errorf("load candidate profile: %w", err)
		}
		return profile, nil
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load candidate profile: %w", domain.ErrProfileNotFound)
	case <-time.After(s.provisionWait):
	}
	profile, err = s.admins.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load candidate profile: %w", err)
	}
	return profile, nil
}

// compensate removes the half-created account. Failure leaves an orphaned
// identity behind and is only logged.
func (s *ConfirmationService) compensate(ctx context.Context, client ports.AuthClient, userID string) {
	if err := client.SignOut(ctx); err != nil {
		s.log.Warn().Err(err).Msg("sign-out after failed promotion")
	}
	if err := s.identity.AdminDeleteUser(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("compensating delete failed, identity orphaned")
		return
	}
	s.log.Info().Str("user_id", userID).Msg("compensating delete succeeded")
}
