package redis

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/quantara/console/internal/core/ports"
)

const consumedLinkTTL = 7 * 24 * time.Hour

// LinkGuard remembers confirmation links that already completed so a second
// visit does not hit the identity service again. Only a keyed fingerprint of
// the link secret is stored.
// Key format: link:<shape>:<hex blake2b-256>
type LinkGuard struct {
	client *redis.Client
	key    []byte
}

var _ ports.LinkGuard = (*LinkGuard)(nil)

// NewLinkGuard creates a LinkGuard. key must be at most 64 bytes.
func NewLinkGuard(client *redis.Client, key []byte) (*LinkGuard, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("link guard key longer than %d bytes", blake2b.Size)
	}
	return &LinkGuard{client: client, key: key}, nil
}

// IsConsumed reports whether this link already completed.
func (g *LinkGuard) IsConsumed(ctx context.Context, shape, secret string) (bool, error) {
	k, err := g.linkKey(shape, secret)
	if err != nil {
		return false, err
	}
	n, err := g.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("link check: %w", err)
	}
	return n > 0, nil
}

// MarkConsumed records the link (expires after consumedLinkTTL).
func (g *LinkGuard) MarkConsumed(ctx context.Context, shape, secret string) error {
	k, err := g.linkKey(shape, secret)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, k, "1", consumedLinkTTL).Err()
}

func (g *LinkGuard) linkKey(shape, secret string) (string, error) {
	sum, err := fingerprint(g.key, secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("link:%s:%s", shape, sum), nil
}

func fingerprint(key []byte, secret string) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("link fingerprint: %w", err)
	}
	_, _ = h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil)), nil
}
