package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// SessionStore persists the identity session bound to a browser session id.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Save(ctx context.Context, sid string, s *domain.AuthSession) error
	Load(ctx context.Context, sid string) (*domain.AuthSession, error)
	Delete(ctx context.Context, sid string) error
}

// VerifierStore keeps PKCE code verifiers between sign-up and confirmation.
type VerifierStore interface {
	SaveVerifier(ctx context.Context, sid, verifier string) error
	TakeVerifier(ctx context.Context, sid string) (string, error)
}

// LinkGuard remembers confirmation links that already completed.
type LinkGuard interface {
	IsConsumed(ctx context.Context, shape, secret string) (bool, error)
	MarkConsumed(ctx context.Context, shape, secret string) error
}
