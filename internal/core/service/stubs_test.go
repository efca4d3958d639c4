package service

import (
	"context"
	"sync"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

type stubClient struct {
	sid     string
	calls   []string
	signUps []ports.SignUpInput
	session *domain.AuthSession
	signUp  *ports.SignUpResult
	err     error
	current *domain.AuthSession

	gotVerifier string
}

func newStubClient(user *domain.User) *stubClient {
	return &stubClient{
		sid:     "sid-1",
		session: &domain.AuthSession{AccessToken: "tok", RefreshToken: "ref", User: user},
	}
}

func (c *stubClient) SessionID() string { return c.sid }

func (c *stubClient) Current() *domain.AuthSession { return c.current }

func (c *stubClient) adopt() (*domain.AuthSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.current = c.session
	return c.session, nil
}

func (c *stubClient) SignUp(_ context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	c.calls = append(c.calls, "SignUp")
	c.signUps = append(c.signUps, in)
	if c.err != nil {
		return nil, c.err
	}
	if c.signUp != nil {
		return c.signUp, nil
	}
	return &ports.SignUpResult{User: &domain.User{ID: "new-user", Email: in.Email}}, nil
}

func (c *stubClient) SignIn(_ context.Context, email, _ string) (*domain.AuthSession, error) {
	c.calls = append(c.calls, "SignIn:"+email)
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func (c *stubClient) SignOut(context.Context) error {
	c.calls = append(c.calls, "SignOut")
	c.current = nil
	return nil
}

func (c *stubClient) SetSession(_ context.Context, access, refresh string) (*domain.AuthSession, error) {
	c.calls = append(c.calls, "SetSession:"+access+":"+refresh)
	return c.adopt()
}

func (c *stubClient) VerifyOTP(_ context.Context, tokenHash, otpType string) (*domain.AuthSession, error) {
	c.calls = append(c.calls, "VerifyOTP:"+tokenHash+":"+otpType)
	return c.adopt()
}

func (c *stubClient) ExchangeCode(_ context.Context, code, verifier string) (*domain.AuthSession, error) {
	c.calls = append(c.calls, "ExchangeCode:"+code)
	c.gotVerifier = verifier
	return c.adopt()
}

type stubProcs struct {
	exists       bool
	existsErr    error
	createResult *ports.ProcedureResult
	createErr    error
	promote      *ports.ProcedureResult
	promoteErr   error

	existsCalls  int
	createCalls  int
	promoteCalls int
	promoteToken string
}

func (p *stubProcs) AdminExists(context.Context) (bool, error) {
	p.existsCalls++
	return p.exists, p.existsErr
}

func (p *stubProcs) CreateFirstAdmin(_ context.Context, email, _ string) (*ports.ProcedureResult, error) {
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.createResult != nil {
		return p.createResult, nil
	}
	p.exists = true
	return &ports.ProcedureResult{Success: true, UserID: "admin-1", Email: email}, nil
}

func (p *stubProcs) PromoteUserToAdmin(ctx context.Context, _ string) (*ports.ProcedureResult, error) {
	p.promoteCalls++
	p.promoteToken = ports.AccessTokenFrom(ctx)
	if p.promoteErr != nil {
		return nil, p.promoteErr
	}
	if p.promote != nil {
		return p.promote, nil
	}
	return &ports.ProcedureResult{Success: true, UserID: "target-1"}, nil
}

type stubVerifiers struct {
	saved map[string]string
	err   error
}

func newStubVerifiers() *stubVerifiers { return &stubVerifiers{saved: make(map[string]string)} }

func (v *stubVerifiers) SaveVerifier(_ context.Context, sid, verifier string) error {
	if v.err != nil {
		return v.err
	}
	v.saved[sid] = verifier
	return nil
}

func (v *stubVerifiers) TakeVerifier(_ context.Context, sid string) (string, error) {
	out := v.saved[sid]
	delete(v.saved, sid)
	return out, nil
}

type stubLinks struct {
	consumed map[string]bool
}

func newStubLinks() *stubLinks { return &stubLinks{consumed: make(map[string]bool)} }

func (l *stubLinks) IsConsumed(_ context.Context, shape, secret string) (bool, error) {
	return l.consumed[shape+":"+secret], nil
}

func (l *stubLinks) MarkConsumed(_ context.Context, shape, secret string) error {
	l.consumed[shape+":"+secret] = true
	return nil
}

type stubAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *stubAudit) Record(e domain.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *stubAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type stubProfiles struct {
	byID      map[string]*domain.Profile
	updateErr error
	updates   []string

	// onMiss runs when FindByID finds nothing, before the miss is reported.
	onMiss func(s *stubProfiles)
	misses int
}

func newStubProfiles(profiles ...*domain.Profile) *stubProfiles {
	s := &stubProfiles{byID: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		s.byID[p.ID] = p
	}
	return s
}

func (s *stubProfiles) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := s.byID[id]
	if !ok {
		s.misses++
		if s.onMiss != nil {
			s.onMiss(s)
		}
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *stubProfiles) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, p := range s.byID {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *stubProfiles) List(context.Context) ([]*domain.Profile, error) {
	out := make([]*domain.Profile, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProfiles) Update(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	s.updates = append(s.updates, id)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	clone := *p
	return &clone, nil
}

type stubApps struct {
	byID map[string]*domain.ClientApplication
}

func newStubApps(apps ...*domain.ClientApplication) *stubApps {
	s := &stubApps{byID: make(map[string]*domain.ClientApplication)}
	for _, a := range apps {
		s.byID[a.ID] = a
	}
	return s
}

func (s *stubApps) Create(_ context.Context, app *domain.ClientApplication) (*domain.ClientApplication, error) {
	clone := *app
	clone.ID = "app-new"
	s.byID[clone.ID] = &clone
	return &clone, nil
}

func (s *stubApps) FindByID(_ context.Context, id string) (*domain.ClientApplication, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	return a, nil
}

func (s *stubApps) List(_ context.Context, filter ports.ApplicationFilter) ([]*domain.ClientApplication, error) {
	var out []*domain.ClientApplication
	for _, a := range s.byID {
		if filter.Status == "" || a.Status == filter.Status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApps) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus, reviewer string) (*domain.ClientApplication, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	if a.Status != domain.ApplicationPending {
		return nil, domain.ErrApplicationResolved
	}
	a.Status = status
	a.ReviewedBy = reviewer
	clone := *a
	return &clone, nil
}

type stubIdentity struct {
	ports.IdentityService
	deleted   []string
	deleteErr error
}

func (s *stubIdentity) AdminDeleteUser(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

type stubAuditRepo struct {
	limit int64
}

func (r *stubAuditRepo) Insert(context.Context, *domain.AuditEntry) error { return nil }

func (r *stubAuditRepo) ListRecent(_ context.Context, limit int64) ([]*domain.AuditEntry, error) {
	r.limit = limit
	return []*domain.AuditEntry{{Action: domain.AuditUserLogin}}, nil
}
