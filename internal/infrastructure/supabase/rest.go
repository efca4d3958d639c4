package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	profilesTable     = "/rest/v1/profiles"
	applicationsTable = "/rest/v1/client_applications"
)

var returnRepresentation = map[string]string{"Prefer": "return=representation"}

// ProfileRepository reads and updates the profiles table.
type ProfileRepository struct {
	c    *Client
	cred credential
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository returns a repository subject to row-level security.
func NewProfileRepository(c *Client) *ProfileRepository {
	return &ProfileRepository{c: c, cred: asAnon}
}

// NewPrivilegedProfileRepository returns a repository that bypasses
// row-level security with the service-role key. It backs the two-phase
// bootstrap promotion only.
func NewPrivilegedProfileRepository(c *Client) *ProfileRepository {
	return &ProfileRepository{c: c, cred: asService}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.findOne(ctx, "profiles.find_by_id", url.Values{"id": {"eq." + id}})
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, "profiles.find_by_email", url.Values{"email": {"eq." + email}})
}

func (r *ProfileRepository) findOne(ctx context.Context, op string, q url.Values) (*domain.Profile, error) {
	q.Set("select", "*")
	q.Set("limit", "1")
	var rows []*domain.Profile
	if err := r.c.do(ctx, request{op: op, method: http.MethodGet, path: profilesTable, query: q, cred: r.cred}, &rows); err != nil {
		return nil, classifyRecord(err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return rows[0], nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]*domain.Profile, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var rows []*domain.Profile
	if err := r.c.do(ctx, request{op: "profiles.list", method: http.MethodGet, path: profilesTable, query: q, cred: r.cred}, &rows); err != nil {
		return nil, classifyRecord(err)
	}
	return rows, nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	body := struct {
		domain.ProfileUpdate
		UpdatedAt time.Time `json:"updated_at"`
	}{upd, time.Now().UTC()}

	var rows []*domain.Profile
	err := r.c.do(ctx, request{
		op:      "profiles.update",
		method:  http.MethodPatch,
		path:    profilesTable,
		query:   url.Values{"id": {"eq." + id}},
		body:    body,
		cred:    r.cred,
		headers: returnRepresentation,
	}, &rows)
	if err != nil {
		return nil, classifyRecord(err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return rows[0], nil
}

// ApplicationRepository reads and writes the client_applications table.
type ApplicationRepository struct {
	c *Client
}

var _ ports.ApplicationRepository = (*ApplicationRepository)(nil)

func NewApplicationRepository(c *Client) *ApplicationRepository {
	return &ApplicationRepository{c: c}
}

type applicationInsert struct {
	Email         string                   `json:"email"`
	OrgName       string                   `json:"org_name"`
	Description   string                   `json:"description"`
	BudgetRange   string                   `json:"budget_range"`
	Status        domain.ApplicationStatus `json:"status"`
	ContactPerson string                   `json:"contact_person,omitempty"`
	Phone         string                   `json:"phone,omitempty"`
	Website       string                   `json:"website,omitempty"`
}

func (r *ApplicationRepository) Create(ctx context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error) {
	row := applicationInsert{
		Email:         app.Email,
		OrgName:       app.OrgName,
		Description:   app.Description,
		BudgetRange:   app.BudgetRange,
		Status:        domain.ApplicationPending,
		ContactPerson: app.ContactPerson,
		Phone:         app.Phone,
		Website:       app.Website,
	}
	var rows []*domain.ClientApplication
	err := r.c.do(ctx, request{
		op:      "applications.create",
		method:  http.MethodPost,
		path:    applicationsTable,
		body:    row,
		headers: returnRepresentation,
	}, &rows)
	if err != nil {
		return nil, classifyRecord(err)
	}
	if len(rows) == 0 {
		// Anonymous inserts may not be allowed to read the row back.
		created := *app
		created.Status = domain.ApplicationPending
		return &created, nil
	}
	return rows[0], nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*domain.ClientApplication, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id}, "limit": {"1"}}
	var rows []*domain.ClientApplication
	if err := r.c.do(ctx, request{op: "applications.find_by_id", method: http.MethodGet, path: applicationsTable, query: q}, &rows); err != nil {
		return nil, classifyRecord(err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrApplicationNotFound
	}
	return rows[0], nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter ports.ApplicationFilter) ([]*domain.ClientApplication, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	if filter.Status != "" {
		q.Set("status", "eq."+string(filter.Status))
	}
	var rows []*domain.ClientApplication
	if err := r.c.do(ctx, request{op: "applications.list", method: http.MethodGet, path: applicationsTable, query: q}, &rows); err != nil {
		return nil, classifyRecord(err)
	}
	return rows, nil
}

// UpdateStatus only matches rows that are still pending, so two reviewers
// cannot both resolve the same application.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID string) (*domain.ClientApplication, error) {
	if !domain.ApplicationPending.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	body := map[string]any{
		"status":      status,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if reviewerID != "" {
		body["reviewed_by"] = reviewerID
	}

	var rows []*domain.ClientApplication
	err := r.c.do(ctx, request{
		op:      "applications.update_status",
		method:  http.MethodPatch,
		path:    applicationsTable,
		query:   url.Values{"id": {"eq." + id}, "status": {"eq." + string(domain.ApplicationPending)}},
		body:    body,
		headers: returnRepresentation,
	}, &rows)
	if err != nil {
		return nil, classifyRecord(err)
	}
	if len(rows) > 0 {
		return rows[0], nil
	}

	// Nothing matched: either the id is unknown or the row left pending.
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrApplicationResolved
}
