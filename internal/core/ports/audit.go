package ports

import (
	"context"

	"github.com/quantara/console/internal/core/domain"
)

// AuditRepository stores audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int64) ([]*domain.AuditEntry, error)
}

// AuditSink accepts audit entries without blocking the caller.
type AuditSink interface {
	Record(entry domain.AuditEntry)
}
