package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const defaultRegistrySize = 4096

// Registry owns one Context per browser session id. Contexts are evicted
// least-recently-used and closed on eviction.
type Registry struct {
	identity ports.IdentityService
	profiles ports.ProfileRepository
	store    ports.SessionStore
	log      zerolog.Logger

	cache *lru.Cache[string, *Context]
	group singleflight.Group
}

// NewRegistry creates a Registry holding at most size contexts.
func NewRegistry(size int, identity ports.IdentityService, profiles ports.ProfileRepository, store ports.SessionStore, log zerolog.Logger) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.NewWithEvict[string, *Context](size, func(_ string, sc *Context) {
		sc.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	return &Registry{
		identity: identity,
		profiles: profiles,
		store:    store,
		log:      log,
		cache:    cache,
	}, nil
}

// Get returns the initialised Context for sid, restoring any persisted
// session the first time sid is seen.
func (r *Registry) Get(ctx context.Context, sid string) (*Context, error) {
	if sc, ok := r.cache.Get(sid); ok {
		return sc, nil
	}

	v, err, _ := r.group.Do(sid, func() (any, error) {
		if sc, ok := r.cache.Get(sid); ok {
			return sc, nil
		}
		client := NewClient(sid, r.identity, r.store, r.log)
		if err := client.Restore(ctx); err != nil {
			return nil, err
		}
		sc := NewContext(client, r.identity, r.profiles, r.log)
		sc.Init(ctx)
		r.cache.Add(sid, sc)
		return sc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

// Drop closes and forgets the Context for sid.
func (r *Registry) Drop(sid string) {
	r.cache.Remove(sid)
}

// Len reports how many contexts are live.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Ephemeral builds an unregistered, already-resolved Context for a bare
// access token. The caller must Close it.
func (r *Registry) Ephemeral(ctx context.Context, accessToken string) *Context {
	client := NewClient("", r.identity, nil, r.log)
	client.Adopt(&domain.AuthSession{AccessToken: accessToken})
	sc := NewContext(client, r.identity, r.profiles, r.log)
	sc.Resolve(ctx)
	return sc
}

// Anonymous builds an unregistered, signed-out Context that persists nothing.
// It stands in for a browser session whose stored state cannot be read. The
// caller must Close it.
func (r *Registry) Anonymous(ctx context.Context) *Context {
	client := NewClient("", r.identity, nil, r.log)
	sc := NewContext(client, r.identity, r.profiles, r.log)
	sc.Resolve(ctx)
	return sc
}
