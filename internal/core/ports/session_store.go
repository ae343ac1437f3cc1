package ports

import (
	"context"

	"github.com/connectmarket/session-gateway/internal/core/domain"
)

// SessionStore is the single source of truth for "who is signed in" within
// one visitor's session. Its user record is owned exclusively by the store
// and mutated only through these operations.
type SessionStore interface {
	// Bootstrap resolves the initial session state. Idempotent: only the
	// first call performs the lookup, later calls wait for it to settle.
	Bootstrap(ctx context.Context)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	ExchangeGoogleCredential(ctx context.Context, credential string, role domain.Role, location *string) (*ExchangeResult, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*domain.User, error)
	Snapshot() domain.Snapshot
	Subscribe(fn func(domain.Snapshot)) (unsubscribe func())
}

// AuditSink records session lifecycle events. Implementations must be safe
// for concurrent use; callers treat every write as best-effort.
type AuditSink interface {
	Record(ctx context.Context, ev domain.AuditEvent) error
}

// AuditHistory reads back recorded audit events for admin surfaces.
type AuditHistory interface {
	RecentForUser(ctx context.Context, userID string, limit int64) ([]domain.AuditEvent, error)
}
