package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/arcana"
	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/session"
)

type Store struct {
	mu sync.RWMutex

	// Entitlement storage, keyed by user ID
	entitlements map[string]*entitlement.Entitlement

	// Session storage, keyed by user ID (one session per user)
	sessions map[string]*session.Session

	// Payment storage, keyed by provider payment reference
	payments map[string]*session.Payment
}

func New() *Store {
	return &Store{
		entitlements: make(map[string]*entitlement.Entitlement),
		sessions:     make(map[string]*session.Session),
		payments:     make(map[string]*session.Payment),
	}
}

// Entitlement Store implementation
func (s *Store) GetEntitlement(_ context.Context, userID string) (*entitlement.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if !ok {
		e = entitlement.New(userID)
		s.entitlements[userID] = e
	}
	return e.Clone(), nil
}

func (s *Store) CommitDelta(_ context.Context, userID string, d entitlement.Delta) (*entitlement.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if !ok {
		e = entitlement.New(userID)
		s.entitlements[userID] = e
	}

	// Map each op's precondition to the same sentinels the SQL drivers
	// derive from their WHERE clauses.
	switch d.Op {
	case entitlement.OpSpendBalance:
		if e.Balance <= 0 {
			return nil, arcana.ErrInsufficientBalance
		}
	case entitlement.OpAddCredits:
		if d.Credits <= 0 {
			return nil, arcana.ErrInvalidInput
		}
	case entitlement.OpUseFreeTrial:
		if e.FreeTrialUsed {
			return nil, arcana.ErrTrialConsumed
		}
	case entitlement.OpUseQuickQuota:
		if d.Limit > 0 && e.QuickQuotaUsed >= d.Limit {
			return nil, arcana.ErrQuotaExceeded
		}
	}

	if err := e.Apply(d); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

func (s *Store) ListEntitlements(_ context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entitlement.Entitlement, 0)
	for _, e := range s.entitlements {
		if opts.WithPurchases && e.TotalPurchases == 0 {
			continue
		}
		result = append(result, e.Clone())
	}

	// Stable order for pagination
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Session Store implementation
func (s *Store) PutSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.UserID] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, userID string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, arcana.ErrSessionNotFound
}

func (s *Store) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *Store) PurgeSessions(_ context.Context, cutoff time.Time) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := make([]*session.Session, 0)
	for userID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			cp := *sess
			purged = append(purged, &cp)
			delete(s.sessions, userID)
		}
	}
	return purged, nil
}

// Payment Store implementation
func (s *Store) RecordPayment(_ context.Context, p *session.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.PaymentRef]; exists {
		return arcana.ErrDuplicatePayment
	}

	cp := *p
	s.payments[p.PaymentRef] = &cp
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentRef string) (*session.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[paymentRef]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, arcana.ErrNotFound
}

func (s *Store) ListOrphanPayments(_ context.Context, opts session.ListOpts) ([]*session.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Payment, 0)
	for _, p := range s.payments {
		if !p.Orphan {
			continue
		}
		if opts.UserID != "" && p.UserID != opts.UserID {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	// Newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
