package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	defaultSessionTTL = 24 * time.Hour
	// verifierTTL bounds how long a sign-up may wait for its confirmation link.
	verifierTTL = 24 * time.Hour
)

// SessionStore keeps the identity session of each browser session as JSON.
// Key format: session:<sid>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var (
	_ ports.SessionStore  = (*SessionStore)(nil)
	_ ports.VerifierStore = (*SessionStore)(nil)
)

// NewSessionStore creates a SessionStore whose entries idle out after ttl.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sid string, sess *domain.AuthSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, sid string) (*domain.AuthSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.AuthSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, sessionKey(sid)).Err()
}

// SaveVerifier stores the PKCE code verifier issued at sign-up.
// Key format: pkce:<sid>
func (s *SessionStore) SaveVerifier(ctx context.Context, sid, verifier string) error {
	return s.client.Set(ctx, verifierKey(sid), verifier, verifierTTL).Err()
}

// TakeVerifier returns and forgets the verifier. Empty means none was stored.
func (s *SessionStore) TakeVerifier(ctx context.Context, sid string) (string, error) {
	v, err := s.client.GetDel(ctx, verifierKey(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("take verifier: %w", err)
	}
	return v, nil
}

func sessionKey(sid string) string  { return "session:" + sid }
func verifierKey(sid string) string { return "pkce:" + sid }
