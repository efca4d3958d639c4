package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// ProfileRepository reads and updates rows of the remote profiles table.
// Row-level security applies with the access token carried by ctx.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
	List(ctx context.Context) ([]*domain.Profile, error)
	Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error)
}

// ApplicationFilter narrows an application listing. Empty Status lists all.
type ApplicationFilter struct {
	Status domain.ApplicationStatus
}

// ApplicationRepository persists client applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error)
	FindByID(ctx context.Context, id string) (*domain.ClientApplication, error)
	List(ctx context.Context, filter ApplicationFilter) ([]*domain.ClientApplication, error)
	// UpdateStatus sets the status only while the row is still pending and
	// returns domain.ErrApplicationResolved otherwise.
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID string) (*domain.ClientApplication, error)
}

// ProcedureResult is the envelope returned by the privileged remote procedures.
type ProcedureResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// AdminProcedures are remote procedures that enforce their own authorization.
type AdminProcedures interface {
	AdminExists(ctx context.Context) (bool, error)
	CreateFirstAdmin(ctx context.Context, email, password string) (*ProcedureResult, error)
	PromoteUserToAdmin(ctx context.Context, email string) (*ProcedureResult, error)
}
