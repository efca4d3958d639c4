// Package session holds the per-browser Session Context: who is signed in,
// their profile, and whether that answer is still being resolved.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

// State is a snapshot of a Session Context. Profile is nil while the remote
// profile row is still being provisioned or could not be read. Event is the
// auth-state change that produced the snapshot, empty for on-demand
// resolutions.
type State struct {
	User    *domain.User     `json:"user"`
	Profile *domain.Profile  `json:"profile"`
	Loading bool             `json:"loading"`
	Event   domain.AuthEvent `json:"event,omitempty"`
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool { return s.User != nil }

// Context is the single source of truth for one browser session. It resolves
// the user and profile on Init and again after every auth-state change, and
// notifies subscribers of each published State.
type Context struct {
	client   *Client
	identity ports.IdentityService
	profiles ports.ProfileRepository
	log      zerolog.Logger

	mu      sync.RWMutex
	state   State
	gen     uint64
	subs    map[int]func(State)
	nextSub int

	startOnce sync.Once
	stop      context.CancelFunc
	done      chan struct{}
}

// NewContext returns a Context in the loading state. Call Init to resolve it.
func NewContext(client *Client, identity ports.IdentityService, profiles ports.ProfileRepository, log zerolog.Logger) *Context {
	return &Context{
		client:   client,
		identity: identity,
		profiles: profiles,
		log:      log.With().Str("sid", client.SessionID()).Logger(),
		state:    State{Loading: true},
		subs:     make(map[int]func(State)),
		done:     make(chan struct{}),
	}
}

// Init resolves the current user and profile, then listens for auth-state
// changes until Close. The listener outlives ctx's cancellation.
func (c *Context) Init(ctx context.Context) {
	c.startOnce.Do(func() {
		changes, unsubscribe := c.client.OnAuthStateChange()
		c.resolve(ctx, domain.AuthEventInitialSession)

		listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.mu.Lock()
		c.stop = cancel
		c.mu.Unlock()
		go c.listen(listenCtx, changes, unsubscribe)
	})
}

// Client returns the auth client this context observes.
func (c *Context) Client() *Client { return c.client }

// State returns the latest published snapshot.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers fn to receive every published State. fn runs on the
// publishing goroutine and must not block.
func (c *Context) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Context) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	return c.client.SignUp(ctx, in)
}

func (c *Context) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return c.client.SignIn(ctx, email, password)
}

func (c *Context) SignOut(ctx context.Context) error {
	return c.client.SignOut(ctx)
}

// Resolve re-reads the user and profile and publishes the result. Results of
// a resolution that was overtaken by a newer one are discarded.
func (c *Context) Resolve(ctx context.Context) State {
	return c.resolve(ctx, "")
}

func (c *Context) resolve(ctx context.Context, event domain.AuthEvent) State {
	gen := c.beginLoading()
	user, profile := c.lookup(ctx)
	return c.finish(gen, State{User: user, Profile: profile, Event: event})
}

// Close stops listening for auth changes. It is safe to call more than once.
func (c *Context) Close() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-c.done
	}
	c.client.Close()
}

func (c *Context) listen(ctx context.Context, changes <-chan AuthChange, unsubscribe func()) {
	defer close(c.done)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			c.log.Debug().Str("event", string(change.Event)).Msg("auth state changed")
			c.resolve(ctx, change.Event)
		}
	}
}

func (c *Context) lookup(ctx context.Context) (*domain.User, *domain.Profile) {
	sess := c.client.Current()
	if sess == nil {
		return nil, nil
	}

	token, err := c.client.AccessToken(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("access token refresh failed")
		if errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrNotAuthenticated) {
			return nil, nil
		}
		token = sess.AccessToken
	}

	user, err := c.identity.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrNotAuthenticated) {
			c.log.Info().Err(err).Msg("session no longer valid")
			return nil, nil
		}
		c.log.Warn().Err(err).Msg("get current user failed, using cached user")
		user = sess.User
	}
	if user == nil {
		return nil, nil
	}

	profile, err := c.profiles.FindByID(ports.WithAccessToken(ctx, token), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.log.Info().Str("user_id", user.ID).Msg("profile not provisioned yet")
		} else {
			c.log.Warn().Err(err).Str("user_id", user.ID).Msg("profile fetch failed")
		}
		return user, nil
	}
	return user, profile
}

func (c *Context) beginLoading() uint64 {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state.Loading = true
	snapshot, subs := c.state, c.subscribers()
	c.mu.Unlock()

	publish(subs, snapshot)
	return gen
}

func (c *Context) finish(gen uint64, next State) State {
	c.mu.Lock()
	if gen != c.gen {
		current := c.state
		c.mu.Unlock()
		return current
	}
	next.Loading = false
	c.state = next
	subs := c.subscribers()
	c.mu.Unlock()

	publish(subs, next)
	return next
}

// subscribers must be called with c.mu held.
func (c *Context) subscribers() []func(State) {
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func publish(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}
