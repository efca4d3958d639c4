package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	changeBuffer = 8
	// refreshMargin refreshes access tokens shortly before they expire.
	refreshMargin = 30 * time.Second
)

// AuthChange is one auth-state-change notification.
type AuthChange struct {
	Event   domain.AuthEvent
	Session *domain.AuthSession
}

// Client is the identity client of a single browser session. It owns the
// current token pair, persists it, and broadcasts every change to listeners.
type Client struct {
	sid      string
	identity ports.IdentityService
	store    ports.SessionStore
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *domain.AuthSession
	subs    map[int]chan AuthChange
	nextSub int
	closed  bool
}

var _ ports.AuthClient = (*Client)(nil)

// NewClient returns a Client for the browser session sid. store may be nil for
// sessions that are never persisted (bearer-token requests).
func NewClient(sid string, identity ports.IdentityService, store ports.SessionStore, log zerolog.Logger) *Client {
	return &Client{
		sid:      sid,
		identity: identity,
		store:    store,
		log:      log.With().Str("sid", sid).Logger(),
		now:      time.Now,
		subs:     make(map[int]chan AuthChange),
	}
}

// SessionID returns the browser session id this client is bound to.
func (c *Client) SessionID() string { return c.sid }

// Restore loads the persisted session, if any, without notifying listeners.
func (c *Client) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	s, err := c.store.Load(ctx, c.sid)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return nil
}

// Adopt installs s as the current session without persisting or notifying.
func (c *Client) Adopt(s *domain.AuthSession) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

// Current returns the current session or nil.
func (c *Client) Current() *domain.AuthSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// AccessToken returns a usable access token, refreshing the session first
// when it is about to expire. An empty token means no one is signed in.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	s := c.Current()
	if s == nil {
		return "", nil
	}
	if !s.Expired(c.now().Add(refreshMargin)) || s.RefreshToken == "" {
		return s.AccessToken, nil
	}
	refreshed, err := c.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.SignUpResult, error) {
	res, err := c.identity.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		c.set(ctx, res.Session, domain.AuthEventSignedIn)
	}
	return res, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	s, err := c.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(ctx, s, domain.AuthEventSignedIn)
	return s, nil
}

// SignOut revokes the session remotely and always clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.Current()
	var remoteErr error
	if s != nil {
		remoteErr = c.identity.SignOut(ctx, s.AccessToken)
	}
	c.set(ctx, nil, domain.AuthEventSignedOut)
	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}
	return nil
}

func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.AuthSession, error) {
	s, err := c.identity.SetSession(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	c.set(ctx, s, domain.AuthEventSignedIn)
	return s, nil
}

func (c *Client) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*domain.AuthSession, error) {
	s, err := c.identity.VerifyOTP(ctx, tokenHash, otpType)
	if err != nil {
		return nil, err
	}
	c.set(ctx, s, domain.AuthEventSignedIn)
	return s, nil
}

func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.AuthSession, error) {
	s, err := c.identity.ExchangeCodeForSession(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}
	c.set(ctx, s, domain.AuthEventSignedIn)
	return s, nil
}

// Refresh trades the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*domain.AuthSession, error) {
	cur := c.Current()
	if cur == nil || cur.RefreshToken == "" {
		return nil, domain.ErrNotAuthenticated
	}
	s, err := c.identity.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		return nil, err
	}
	if s.User == nil {
		s.User = cur.User
	}
	c.set(ctx, s, domain.AuthEventTokenRefreshed)
	return s, nil
}

// OnAuthStateChange registers a listener. Notifications arrive asynchronously
// on the returned channel, which is closed by the returned cancel func or Close.
func (c *Client) OnAuthStateChange() (<-chan AuthChange, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan AuthChange, changeBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close detaches every listener.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Client) set(ctx context.Context, s *domain.AuthSession, event domain.AuthEvent) {
	c.mu.Lock()
	c.current = s
	change := AuthChange{Event: event, Session: s}
	for id, ch := range c.subs {
		select {
		case ch <- change:
		default:
			// A pending notification already makes the listener re-resolve.
			c.log.Debug().Int("listener", id).Str("event", string(event)).Msg("auth change dropped, listener busy")
		}
	}
	c.mu.Unlock()

	c.persist(ctx, s)
}

func (c *Client) persist(ctx context.Context, s *domain.AuthSession) {
	if c.store == nil {
		return
	}
	var err error
	if s == nil {
		err = c.store.Delete(ctx, c.sid)
	} else {
		err = c.store.Save(ctx, c.sid, s)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session")
	}
}
