// Package session models the short-lived reconciliation state that
// joins a user's tier selection with the two asynchronous events that
// complete it: settlement (payment or free grant) and the question
// text. A user has at most one session at a time.
package session

import (
	"time"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/id"
	"github.com/xraph/arcana/types"
)

// Session is the per-user reconciliation record. It exists from tier
// selection until the reading is dispatched (or the session is
// superseded or expired).
type Session struct {
	types.Entity
	ID       id.SessionID `json:"id"`
	UserID   string       `json:"user_id"`
	TierSlug string       `json:"tier_slug"`

	// Settled is true once the reading is funded, whether by payment,
	// free trial, quota or balance.
	Settled bool               `json:"settled"`
	Method  entitlement.Method `json:"method,omitempty"`

	// Question is nil until the user submits their free-text question.
	Question *string `json:"question,omitempty"`

	// IsPackage marks sessions opened for a credit bundle purchase.
	// Package sessions never collect a question.
	IsPackage bool `json:"is_package"`

	// PaymentRef is the provider's charge identifier, set when the
	// session was settled by an external payment.
	PaymentRef string `json:"payment_ref,omitempty"`

	// Dispatching is set while the reading is being generated and
	// delivered. A dispatching session rejects further events.
	Dispatching bool `json:"dispatching"`
}

// New opens a session for a user's tier selection.
func New(userID string, t string) *Session {
	return &Session{
		Entity:   types.NewEntity(),
		ID:       id.NewSessionID(),
		UserID:   userID,
		TierSlug: t,
	}
}

// Ready reports whether both halves of the join have arrived: the
// session is settled and a question has been submitted.
func (s *Session) Ready() bool {
	return s.Settled && s.Question != nil
}

// AwaitingPayment reports whether the session still needs settlement.
func (s *Session) AwaitingPayment() bool {
	return !s.Settled
}

// AwaitingQuestion reports whether the session still needs a question.
func (s *Session) AwaitingQuestion() bool {
	return s.Settled && s.Question == nil && !s.IsPackage
}

// ExpiresAt returns the moment the session becomes eligible for
// purging, given the configured TTL.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.UpdatedAt.Add(ttl)
}

// Payment is the durable record of a confirmed external charge.
// Payments are recorded for every settlement, including those that
// arrive with no session to claim them (orphans), so that money is
// never silently dropped.
type Payment struct {
	types.Entity
	ID         id.PaymentID `json:"id"`
	UserID     string       `json:"user_id"`
	TierSlug   string       `json:"tier_slug"`
	PaymentRef string       `json:"payment_ref"`
	Amount     types.Money  `json:"amount"`

	// SessionID links the payment to the session it settled. Nil ID
	// for orphans.
	SessionID id.SessionID `json:"session_id,omitempty"`

	// Orphan is true when the payment arrived with no active session.
	Orphan bool `json:"orphan"`
}
