package middleware

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
	"github.com/quantara/console/internal/infrastructure/db/redis"
)

// stubIdentity resolves access tokens to users; every other method panics.
type stubIdentity struct {
	ports.IdentityService
	users map[string]*domain.User
}

func (s *stubIdentity) GetUser(_ context.Context, token string) (*domain.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrSessionExpired
}

type stubProfiles struct {
	ports.ProfileRepository
	byID map[string]*domain.Profile
}

func (s *stubProfiles) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProfileNotFound
}

// stubRegistry builds real Session Contexts over the stubs above.
type stubRegistry struct {
	mu        sync.Mutex
	identity  *stubIdentity
	profiles  *stubProfiles
	contexts  map[string]*session.Context
	gets      []string
	ephemeral []string
	getErr    error
	anonymous int
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		identity: &stubIdentity{users: map[string]*domain.User{}},
		profiles: &stubProfiles{byID: map[string]*domain.Profile{}},
		contexts: map[string]*session.Context{},
	}
}

// signIn registers token for a user whose profile has role. An empty role
// leaves the profile unprovisioned.
func (r *stubRegistry) signIn(token string, role domain.Role) *domain.User {
	u := &domain.User{ID: "user-" + token, Email: token + "@example.com"}
	r.identity.users[token] = u
	if role != "" {
		r.profiles.byID[u.ID] = &domain.Profile{ID: u.ID, Email: u.Email, Role: role, Status: domain.ProfileStatusActive}
	}
	return u
}

func (r *stubRegistry) Get(ctx context.Context, sid string) (*session.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets = append(r.gets, sid)
	if r.getErr != nil {
		return nil, r.getErr
	}
	if sc, ok := r.contexts[sid]; ok {
		return sc, nil
	}
	client := session.NewClient(sid, r.identity, nil, zerolog.Nop())
	sc := session.NewContext(client, r.identity, r.profiles, zerolog.Nop())
	sc.Resolve(ctx)
	r.contexts[sid] = sc
	return sc, nil
}

func (r *stubRegistry) Ephemeral(ctx context.Context, token string) *session.Context {
	r.mu.Lock()
	r.ephemeral = append(r.ephemeral, token)
	r.mu.Unlock()
	client := session.NewClient("", r.identity, nil, zerolog.Nop())
	client.Adopt(&domain.AuthSession{AccessToken: token})
	sc := session.NewContext(client, r.identity, r.profiles, zerolog.Nop())
	sc.Resolve(ctx)
	return sc
}

func (r *stubRegistry) Anonymous(ctx context.Context) *session.Context {
	r.mu.Lock()
	r.anonymous++
	r.mu.Unlock()
	client := session.NewClient("", r.identity, nil, zerolog.Nop())
	sc := session.NewContext(client, r.identity, r.profiles, zerolog.Nop())
	sc.Resolve(ctx)
	return sc
}

// contextFor returns a resolved Session Context for token.
func (r *stubRegistry) contextFor(token string) *session.Context {
	return r.Ephemeral(context.Background(), token)
}

type stubLimiter struct {
	verdict redis.Verdict
	err     error
	calls   []string
}

func (s *stubLimiter) Allow(_ context.Context, scope, key string, _ redis.Limit) (redis.Verdict, error) {
	s.calls = append(s.calls, scope+":"+key)
	return s.verdict, s.err
}
