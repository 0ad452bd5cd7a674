package entitlement

import "context"

// Store is the persistence surface for entitlement records.
type Store interface {
	// Get returns the entitlement for userID, creating the zero record
	// if the user has never been seen.
	Get(ctx context.Context, userID string) (*Entitlement, error)

	// CommitDelta atomically validates and applies a delta to the
	// user's record. The returned entitlement reflects the new state.
	CommitDelta(ctx context.Context, userID string, d Delta) (*Entitlement, error)

	// List returns entitlement records for reporting.
	List(ctx context.Context, opts ListOpts) ([]*Entitlement, error)
}

type ListOpts struct {
	// WithPurchases restricts the listing to users with at least one purchase.
	WithPurchases bool
	Limit         int
	Offset        int
}
