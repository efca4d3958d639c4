package session

import (
	"context"
	"sync"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

type stubIdentity struct {
	mu        sync.Mutex
	users     map[string]*domain.User // access token -> user
	getErr    error
	signInErr error
	signOuts  int
	refreshes int
	nextToken string
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{users: make(map[string]*domain.User)}
}

func (s *stubIdentity) issue(user *domain.User, token string) *domain.AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = user
	return &domain.AuthSession{AccessToken: token, RefreshToken: "r-" + token, User: user}
}

func (s *stubIdentity) SignUp(_ context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	return &ports.SignUpResult{User: &domain.User{ID: "new", Email: in.Email}}, nil
}

func (s *stubIdentity) SignIn(_ context.Context, email, _ string) (*domain.AuthSession, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.issue(&domain.User{ID: "id-" + email, Email: email}, "tok-"+email), nil
}

func (s *stubIdentity) SignOut(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOuts++
	return nil
}

func (s *stubIdentity) GetUser(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	u, ok := s.users[token]
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	return u, nil
}

func (s *stubIdentity) VerifyOTP(context.Context, string, string) (*domain.AuthSession, error) {
	return nil, nil
}

func (s *stubIdentity) ExchangeCodeForSession(context.Context, string, string) (*domain.AuthSession, error) {
	return nil, nil
}

func (s *stubIdentity) SetSession(_ context.Context, access, refresh string) (*domain.AuthSession, error) {
	return &domain.AuthSession{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *stubIdentity) RefreshSession(_ context.Context, refresh string) (*domain.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	token := s.nextToken
	for t, u := range s.users {
		if "r-"+t == refresh {
			s.users[token] = u
		}
	}
	return &domain.AuthSession{AccessToken: token, RefreshToken: "r-" + token}, nil
}

func (s *stubIdentity) AdminDeleteUser(context.Context, string) error { return nil }

type stubProfiles struct {
	mu      sync.Mutex
	byID    map[string]*domain.Profile
	tokens  []string
	findErr error
	gate    chan struct{} // when set, FindByID blocks until it is closed
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{byID: make(map[string]*domain.Profile)}
}

func (p *stubProfiles) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, ports.AccessTokenFrom(ctx))
	if p.findErr != nil {
		return nil, p.findErr
	}
	pr, ok := p.byID[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *pr
	return &clone, nil
}

func (p *stubProfiles) FindByEmail(context.Context, string) (*domain.Profile, error) {
	return nil, domain.ErrProfileNotFound
}

func (p *stubProfiles) List(context.Context) ([]*domain.Profile, error) { return nil, nil }

func (p *stubProfiles) Update(context.Context, string, domain.ProfileUpdate) (*domain.Profile, error) {
	return nil, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]*domain.AuthSession
}

func newMemStore() *memStore { return &memStore{data: make(map[string]*domain.AuthSession)} }

func (m *memStore) Save(_ context.Context, sid string, s *domain.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sid] = s
	return nil
}

func (m *memStore) Load(_ context.Context, sid string) (*domain.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sid], nil
}

func (m *memStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

func (m *memStore) get(sid string) *domain.AuthSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sid]
}
