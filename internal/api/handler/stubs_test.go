package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
)

// ── identity + record store ──────────────────────────────────────────────────

type stubIdentity struct {
	ports.IdentityService
	users    map[string]*domain.User
	profiles map[string]*domain.Profile
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{users: map[string]*domain.User{}, profiles: map[string]*domain.Profile{}}
}

func (s *stubIdentity) add(token string, role domain.Role) *domain.User {
	u := &domain.User{ID: "user-" + token, Email: token + "@example.com"}
	s.users[token] = u
	if role != "" {
		s.profiles[u.ID] = &domain.Profile{ID: u.ID, Email: u.Email, Role: role, Status: domain.ProfileStatusActive}
	}
	return u
}

func (s *stubIdentity) SignIn(_ context.Context, email, password string) (*domain.AuthSession, error) {
	for token, u := range s.users {
		if u.Email == email && password == "correct" {
			return &domain.AuthSession{AccessToken: token, User: u}, nil
		}
	}
	return nil, domain.ErrInvalidCredentials
}

func (s *stubIdentity) SignOut(context.Context, string) error { return nil }

func (s *stubIdentity) GetUser(_ context.Context, token string) (*domain.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrSessionExpired
}

func (s *stubIdentity) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProfileNotFound
}

// stubProfileRepo reads the profiles held by stubIdentity.
type stubProfileRepo struct {
	ports.ProfileRepository
	id *stubIdentity
}

func (s stubProfileRepo) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return s.id.FindByID(ctx, id)
}

// newSession returns a resolved Session Context signed in with token, or an
// anonymous one when token is empty.
func newSession(id *stubIdentity, token string) *session.Context {
	client := session.NewClient("sid-1", id, nil, zerolog.Nop())
	if token != "" {
		client.Adopt(&domain.AuthSession{AccessToken: token})
	}
	sc := session.NewContext(client, id, stubProfileRepo{id: id}, zerolog.Nop())
	sc.Resolve(context.Background())
	return sc
}

// newContext builds an echo context for method/target with an optional JSON
// body and attaches sc under session id "sid-1".
func newContext(method, target, body string, sc *session.Context) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sc != nil {
		middleware.SetSession(c, "sid-1", sc)
	}
	return c, rec
}

func assertValidation(t *testing.T, err error, code string) *domain.ValidationError {
	t.Helper()
	ve, ok := err.(*domain.ValidationError)
	if !ok {
		t.Fatalf("expected *domain.ValidationError, got %T (%v)", err, err)
	}
	if code != "" && ve.Code != code {
		t.Fatalf("expected code %s, got %s", code, ve.Code)
	}
	return ve
}

// ── services ─────────────────────────────────────────────────────────────────

type stubAuthService struct {
	signUpFn  func(ctx context.Context, client ports.AuthClient, req ports.SignUpRequest) (*ports.SignUpResult, error)
	signInFn  func(ctx context.Context, client ports.AuthClient, email, password string) (*domain.AuthSession, error)
	signOutFn func(ctx context.Context, client ports.AuthClient) error
}

func (s *stubAuthService) SignUp(ctx context.Context, client ports.AuthClient, req ports.SignUpRequest, _ ports.Actor) (*ports.SignUpResult, error) {
	return s.signUpFn(ctx, client, req)
}

func (s *stubAuthService) SignIn(ctx context.Context, client ports.AuthClient, email, password string, _ ports.Actor) (*domain.AuthSession, error) {
	return s.signInFn(ctx, client, email, password)
}

func (s *stubAuthService) SignOut(ctx context.Context, client ports.AuthClient, _ ports.Actor) error {
	return s.signOutFn(ctx, client)
}

type stubDropper struct{ dropped []string }

func (s *stubDropper) Drop(sid string) { s.dropped = append(s.dropped, sid) }

type stubBootstrapService struct {
	statusFn    func(ctx context.Context) (*ports.BootstrapStatus, error)
	bootstrapFn func(ctx context.Context, req ports.BootstrapRequest) ports.Result
}

func (s *stubBootstrapService) Status(ctx context.Context) (*ports.BootstrapStatus, error) {
	return s.statusFn(ctx)
}

func (s *stubBootstrapService) Bootstrap(ctx context.Context, _ ports.AuthClient, req ports.BootstrapRequest, _ ports.Actor) ports.Result {
	return s.bootstrapFn(ctx, req)
}

type stubConfirmationService struct {
	inspected []domain.ConfirmationLink
	confirmFn func(link domain.ConfirmationLink) ports.ConfirmationResult
}

func (s *stubConfirmationService) Inspect(link domain.ConfirmationLink) ports.ConfirmationResult {
	s.inspected = append(s.inspected, link)
	return ports.ConfirmationResult{Status: ports.ConfirmationPending, Shape: link.Shape()}
}

func (s *stubConfirmationService) Confirm(_ context.Context, _ ports.AuthClient, link domain.ConfirmationLink, _ ports.Actor) ports.ConfirmationResult {
	return s.confirmFn(link)
}

type stubPromotionService struct {
	promoteFn func(actor ports.Actor, email string) ports.Result
}

func (s *stubPromotionService) Promote(_ context.Context, actor ports.Actor, email string) ports.Result {
	return s.promoteFn(actor, email)
}

type stubApplicationService struct {
	submitFn func(app *domain.ClientApplication) (*domain.ClientApplication, error)
	listFn   func(filter ports.ApplicationFilter) ([]*domain.ClientApplication, error)
	decideFn func(actor ports.Actor, id string, status domain.ApplicationStatus) (*domain.ClientApplication, error)
}

func (s *stubApplicationService) Submit(_ context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error) {
	return s.submitFn(app)
}

func (s *stubApplicationService) List(_ context.Context, filter ports.ApplicationFilter) ([]*domain.ClientApplication, error) {
	return s.listFn(filter)
}

func (s *stubApplicationService) Decide(_ context.Context, actor ports.Actor, id string, status domain.ApplicationStatus) (*domain.ClientApplication, error) {
	return s.decideFn(actor, id, status)
}

type stubAdminService struct {
	overview *ports.Overview
	users    []*domain.Profile
	limits   []int64
}

func (s *stubAdminService) Overview(context.Context) (*ports.Overview, error) { return s.overview, nil }

func (s *stubAdminService) Users(context.Context) ([]*domain.Profile, error) { return s.users, nil }

func (s *stubAdminService) AuditLog(_ context.Context, limit int64) ([]*domain.AuditEntry, error) {
	s.limits = append(s.limits, limit)
	return nil, nil
}
