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

// ApplicationService handles client applications from submission to review.
type ApplicationService struct {
	apps     ports.ApplicationRepository
	profiles ports.ProfileRepository
	audit    ports.AuditSink
	log      zerolog.Logger
}

var _ ports.ApplicationService = (*ApplicationService)(nil)

func NewApplicationService(apps ports.ApplicationRepository, profiles ports.ProfileRepository, audit ports.AuditSink, log zerolog.Logger) *ApplicationService {
	return &ApplicationService{apps: apps, profiles: profiles, audit: audit, log: log}
}

func (s *ApplicationService) Submit(ctx context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error) {
	app.Email = strings.TrimSpace(app.Email)
	if !validEmail(app.Email) {
		return nil, invalid(CodeInvalidEmail, "Please enter a valid email address", domain.ErrInvalidEmail)
	}
	if strings.TrimSpace(app.OrgName) == "" {
		return nil, invalid(CodeValidation, "Organization name is required", nil)
	}
	app.Status = domain.ApplicationPending
	return s.apps.Create(ctx, app)
}

func (s *ApplicationService) List(ctx context.Context, filter ports.ApplicationFilter) ([]*domain.ClientApplication, error) {
	return s.apps.List(ctx, filter)
}

// Decide approves or rejects a pending application. Approval first upgrades
// an existing profile with the applicant's email to an active client, so a
// failed upgrade leaves the application pending and the decision can be
// retried.
func (s *ApplicationService) Decide(ctx context.Context, actor ports.Actor, id string, status domain.ApplicationStatus) (*domain.ClientApplication, error) {
	if !domain.ApplicationPending.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	if status == domain.ApplicationApproved {
		pending, err := s.apps.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if pending.Status != domain.ApplicationPending {
			return nil, domain.ErrApplicationResolved
		}
		if err := s.upgradeApplicant(ctx, actor, pending.Email); err != nil {
			return nil, err
		}
	}

	app, err := s.apps.UpdateStatus(ctx, id, status, actor.UserID)
	if err != nil {
		return nil, err
	}
	record(s.audit, actor, auditEvent{
		action:    domain.AuditApplicationDecided,
		table:     applicationsTable,
		recordID:  app.ID,
		oldValues: map[string]any{"status": domain.ApplicationPending},
		newValues: map[string]any{"status": status},
	})
	return app, nil
}

func (s *ApplicationService) upgradeApplicant(ctx context.Context, actor ports.Actor, email string) error {
	profile, err := s.profiles.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrProfileNotFound) {
		s.log.Info().Str("email", email).Msg("approved applicant has no account yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find applicant profile: %w", err)
	}

	role, status := domain.RoleClient, domain.ProfileStatusActive
	if _, err := s.profiles.Update(ctx, profile.ID, domain.ProfileUpdate{Role: &role, Status: &status}); err != nil {
		return fmt.Errorf("upgrade applicant profile: %w", err)
	}
	record(s.audit, actor, auditEvent{
		action:    domain.AuditRoleChange,
		table:     profilesTable,
		recordID:  profile.ID,
		oldValues: map[string]any{"role": profile.Role, "status": profile.Status},
		newValues: map[string]any{"role": role, "status": status},
	})
	return nil
}
