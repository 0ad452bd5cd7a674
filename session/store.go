package session

import (
	"context"
	"time"
)

// Store is the persistence surface for sessions and payment records.
type Store interface {
	// Put inserts or replaces the user's session. A user has at most
	// one session, so Put on an existing user overwrites it.
	Put(ctx context.Context, s *Session) error

	// Get returns the user's active session, or a not-found error.
	Get(ctx context.Context, userID string) (*Session, error)

	// Delete removes the user's session. Deleting a missing session
	// is not an error.
	Delete(ctx context.Context, userID string) error

	// PurgeExpired removes sessions not updated since cutoff and
	// returns the purged sessions.
	PurgeExpired(ctx context.Context, cutoff time.Time) ([]*Session, error)

	// RecordPayment durably stores a confirmed charge. The payment
	// reference is unique: recording the same reference twice returns
	// a duplicate-payment error.
	RecordPayment(ctx context.Context, p *Payment) error

	// GetPayment looks up a payment by provider reference.
	GetPayment(ctx context.Context, paymentRef string) (*Payment, error)

	// ListOrphanPayments returns payments that arrived with no active
	// session, newest first.
	ListOrphanPayments(ctx context.Context, opts ListOpts) ([]*Payment, error)
}

type ListOpts struct {
	UserID string
	Limit  int
	Offset int
}
