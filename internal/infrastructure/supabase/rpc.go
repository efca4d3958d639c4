package supabase

import (
	"context"
	"net/http"

	"github.com/quantara/console/internal/core/ports"
)

// Procedures calls the privileged remote procedures. Each procedure checks
// the caller's authorization itself.
type Procedures struct {
	c *Client
}

var _ ports.AdminProcedures = (*Procedures)(nil)

func NewProcedures(c *Client) *Procedures {
	return &Procedures{c: c}
}

func (p *Procedures) rpc(ctx context.Context, name string, args, out any) error {
	if args == nil {
		args = struct{}{}
	}
	return p.c.do(ctx, request{
		op:     "rpc." + name,
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + name,
		body:   args,
	}, out)
}

func (p *Procedures) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := p.rpc(ctx, "admin_exists", nil, &exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (p *Procedures) CreateFirstAdmin(ctx context.Context, email, password string) (*ports.ProcedureResult, error) {
	var res ports.ProcedureResult
	args := map[string]string{"admin_email": email, "admin_password": password}
	if err := p.rpc(ctx, "create_first_admin", args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PromoteUserToAdmin runs as the caller whose access token is carried by ctx.
func (p *Procedures) PromoteUserToAdmin(ctx context.Context, email string) (*ports.ProcedureResult, error) {
	var res ports.ProcedureResult
	if err := p.rpc(ctx, "promote_user_to_admin", map[string]string{"target_email": email}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
