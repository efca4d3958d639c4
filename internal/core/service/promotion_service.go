package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// PromotionData is attached to a successful promotion result.
type PromotionData struct {
	Email   string      `json:"email"`
	NewRole domain.Role `json:"new_role"`
}

// PromotionService grants the admin role. The caller-role check here is
// advisory; promote_user_to_admin enforces it remotely.
type PromotionService struct {
	procs ports.AdminProcedures
	audit ports.AuditSink
	log   zerolog.Logger
}

var _ ports.PromotionService = (*PromotionService)(nil)

func NewPromotionService(procs ports.AdminProcedures, audit ports.AuditSink, log zerolog.Logger) *PromotionService {
	return &PromotionService{procs: procs, audit: audit, log: log}
}

var promotionMessages = map[string]string{
	CodeUserNotFound:           "User not found with that email address",
	CodeAlreadyAdmin:           "User is already an admin",
	CodeInsufficientPermission: "Only administrators can promote users to admin role",
}

// Promote is attempted once; failures are reported, never retried.
func (s *PromotionService) Promote(ctx context.Context, actor ports.Actor, email string) ports.Result {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return ports.Result{Message: "Please enter a valid email address", Error: CodeInvalidEmail}
	}
	if actor.Role != domain.RoleAdmin {
		return ports.Result{Message: promotionMessages[CodeInsufficientPermission], Error: CodeInsufficientPermission}
	}

	out, err := s.procs.PromoteUserToAdmin(ctx, email)
	if err != nil {
		s.log.Error().Err(err).Str("target", email).Msg("promote_user_to_admin failed")
		return ports.Result{Message: "Failed to promote user. Please try again.", Error: CodeRPC}
	}
	if out == nil || !out.Success {
		res := ports.Result{Message: "Failed to promote user", Error: CodePromotionFailed}
		if out != nil {
			if msg, ok := promotionMessages[out.Error]; ok {
				res.Error, res.Message = out.Error, msg
			} else if out.Message != "" {
				res.Message = out.Message
			}
		}
		s.log.Info().Str("target", email).Str("code", res.Error).Msg("promotion refused")
		return res
	}

	record(s.audit, actor, auditEvent{
		action:    domain.AuditRoleChange,
		table:     profilesTable,
		recordID:  out.UserID,
		newValues: map[string]any{"email": email, "role": domain.RoleAdmin, "status": domain.ProfileStatusActive},
	})
	s.log.Info().Str("target", email).Str("by", actor.UserID).Msg("user promoted to admin")
	return ports.Result{
		Success: true,
		Message: "Successfully promoted " + email + " to admin role",
		Data:    PromotionData{Email: email, NewRole: domain.RoleAdmin},
	}
}
