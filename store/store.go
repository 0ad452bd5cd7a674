package store

import (
	"context"
	"time"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/session"
)

// Store is the unified storage interface for all Arcana entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Entitlement methods
	GetEntitlement(ctx context.Context, userID string) (*entitlement.Entitlement, error)
	CommitDelta(ctx context.Context, userID string, d entitlement.Delta) (*entitlement.Entitlement, error)
	ListEntitlements(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error)

	// Session methods
	PutSession(ctx context.Context, s *session.Session) error
	GetSession(ctx context.Context, userID string) (*session.Session, error)
	DeleteSession(ctx context.Context, userID string) error
	PurgeSessions(ctx context.Context, cutoff time.Time) ([]*session.Session, error)

	// Payment methods
	RecordPayment(ctx context.Context, p *session.Payment) error
	GetPayment(ctx context.Context, paymentRef string) (*session.Payment, error)
	ListOrphanPayments(ctx context.Context, opts session.ListOpts) ([]*session.Payment, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
