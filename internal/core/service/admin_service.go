package service

import (
	"context"
	"fmt"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const maxAuditPage = 200

// AdminService serves the read-only parts of the admin dashboard.
type AdminService struct {
	apps     ports.ApplicationRepository
	profiles ports.ProfileRepository
	audits   ports.AuditRepository
}

var _ ports.AdminService = (*AdminService)(nil)

func NewAdminService(apps ports.ApplicationRepository, profiles ports.ProfileRepository, audits ports.AuditRepository) *AdminService {
	return &AdminService{apps: apps, profiles: profiles, audits: audits}
}

// Overview fetches applications, then profiles, and summarises both.
func (s *AdminService) Overview(ctx context.Context) (*ports.Overview, error) {
	apps, err := s.apps.List(ctx, ports.ApplicationFilter{})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	ov := &ports.Overview{
		TotalApplications: len(apps),
		TotalUsers:        len(profiles),
		UsersByRole:       make(map[domain.Role]int, len(domain.Roles())),
	}
	for _, r := range domain.Roles() {
		ov.UsersByRole[r] = 0
	}
	for _, a := range apps {
		switch a.Status {
		case domain.ApplicationPending:
			ov.PendingApplications++
		case domain.ApplicationApproved:
			ov.ApprovedApplications++
		case domain.ApplicationRejected:
			ov.RejectedApplications++
		}
	}
	for _, p := range profiles {
		ov.UsersByRole[p.Role]++
	}
	return ov, nil
}

func (s *AdminService) Users(ctx context.Context) ([]*domain.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *AdminService) AuditLog(ctx context.Context, limit int64) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	return s.audits.ListRecent(ctx, limit)
}
