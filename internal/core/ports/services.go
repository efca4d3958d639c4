package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// Actor identifies who is making a request, for advisory role checks and audit.
type Actor struct {
	UserID    string
	Role      domain.Role
	IP        string
	UserAgent string
}

// Result is the envelope returned by operations that report failures as
// codes and user-facing messages instead of Go errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SignUpRequest is the public registration form.
type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
}

type AuthService interface {
	SignUp(ctx context.Context, client AuthClient, req SignUpRequest, actor Actor) (*SignUpResult, error)
	SignIn(ctx context.Context, client AuthClient, email, password string, actor Actor) (*domain.AuthSession, error)
	SignOut(ctx context.Context, client AuthClient, actor Actor) error
}

// BootstrapRequest is the one-time admin setup form.
type BootstrapRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// BootstrapStatus tells the setup page whether it is still needed.
type BootstrapStatus struct {
	HasAdmin      bool   `json:"has_admin"`
	SetupRequired bool   `json:"setup_required"`
	Strategy      string `json:"strategy"`
}

type BootstrapService interface {
	Status(ctx context.Context) (*BootstrapStatus, error)
	Bootstrap(ctx context.Context, client AuthClient, req BootstrapRequest, actor Actor) Result
}

// ConfirmationStatus is the state of the confirmation landing page.
type ConfirmationStatus string

const (
	ConfirmationPending ConfirmationStatus = "pending"
	ConfirmationSuccess ConfirmationStatus = "success"
	ConfirmationError   ConfirmationStatus = "error"
)

// ConfirmationResult is what the confirmation landing page shows.
type ConfirmationResult struct {
	Status   ConfirmationStatus `json:"status"`
	Shape    domain.LinkShape   `json:"shape,omitempty"`
	Message  string             `json:"message"`
	Redirect string             `json:"redirect,omitempty"`
}

type ConfirmationService interface {
	// Inspect classifies a link without contacting the identity service.
	Inspect(link domain.ConfirmationLink) ConfirmationResult
	// Confirm completes the link with exactly one identity-service call.
	Confirm(ctx context.Context, client AuthClient, link domain.ConfirmationLink, actor Actor) ConfirmationResult
}

type PromotionService interface {
	// Promote grants the admin role to the user with email. ctx must carry
	// the caller's access token.
	Promote(ctx context.Context, actor Actor, email string) Result
}

type ApplicationService interface {
	Submit(ctx context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error)
	List(ctx context.Context, filter ApplicationFilter) ([]*domain.ClientApplication, error)
	Decide(ctx context.Context, actor Actor, id string, status domain.ApplicationStatus) (*domain.ClientApplication, error)
}

// Overview is the admin dashboard summary.
type Overview struct {
	TotalApplications    int                 `json:"total_applications"`
	PendingApplications  int                 `json:"pending_applications"`
	ApprovedApplications int                 `json:"approved_applications"`
	RejectedApplications int                 `json:"rejected_applications"`
	TotalUsers           int                 `json:"total_users"`
	UsersByRole          map[domain.Role]int `json:"users_by_role"`
}

type AdminService interface {
	Overview(ctx context.Context) (*Overview, error)
	Users(ctx context.Context) ([]*domain.Profile, error)
	AuditLog(ctx context.Context, limit int64) ([]*domain.AuditEntry, error)
}
