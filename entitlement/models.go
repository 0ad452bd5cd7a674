// Package entitlement tracks what each user is allowed to consume:
// their purchased reading balance, free-trial flag and quick-decision
// quota. Changes are expressed as deltas so every store driver applies
// the same transition rules.
package entitlement

import (
	"fmt"

	"github.com/xraph/arcana/types"
)

// Entitlement is the per-user consumption record. A user who has never
// interacted with the engine is represented by the zero record.
type Entitlement struct {
	types.Entity
	UserID         string `json:"user_id"`
	Balance        int    `json:"balance"`
	TotalPurchases int    `json:"total_purchases"`
	FreeTrialUsed  bool   `json:"free_trial_used"`
	QuickQuotaUsed int    `json:"quick_quota_used"`
}

// New returns a fresh entitlement record for a user.
func New(userID string) *Entitlement {
	return &Entitlement{
		Entity: types.NewEntity(),
		UserID: userID,
	}
}

// Op identifies a delta operation.
type Op string

const (
	// OpSpendBalance decrements the purchased balance by one.
	OpSpendBalance Op = "spend_balance"
	// OpAddCredits increments the purchased balance and purchase count.
	OpAddCredits Op = "add_credits"
	// OpUseFreeTrial marks the one-time free trial as consumed.
	OpUseFreeTrial Op = "use_free_trial"
	// OpUseQuickQuota increments the quick-decision counter.
	OpUseQuickQuota Op = "use_quick_quota"
	// OpRecordPurchase increments the purchase count without touching
	// the balance. Used for single paid readings.
	OpRecordPurchase Op = "record_purchase"
)

// Delta is one atomic change to an entitlement record. Deltas are
// validated against the current record before being applied, so a
// delta that would drive the balance negative or re-consume the free
// trial is rejected rather than silently clamped.
type Delta struct {
	Op      Op  `json:"op"`
	Credits int `json:"credits,omitempty"`

	// Limit caps the quick-quota counter for OpUseQuickQuota, so the
	// store can reject over-consumption the same way it guards balance
	// and trial. Zero means uncapped.
	Limit int `json:"limit,omitempty"`
}

// SpendBalance returns a delta that consumes one purchased reading.
func SpendBalance() Delta { return Delta{Op: OpSpendBalance} }

// AddCredits returns a delta that adds n purchased readings and counts
// one purchase.
func AddCredits(n int) Delta { return Delta{Op: OpAddCredits, Credits: n} }

// UseFreeTrial returns a delta that consumes the one-time free trial.
func UseFreeTrial() Delta { return Delta{Op: OpUseFreeTrial} }

// UseQuickQuota returns a delta that consumes one quick-decision slot.
// A positive limit caps the counter at limit slots.
func UseQuickQuota(limit int) Delta { return Delta{Op: OpUseQuickQuota, Limit: limit} }

// RecordPurchase returns a delta that counts a completed single-reading
// purchase.
func RecordPurchase() Delta { return Delta{Op: OpRecordPurchase} }

// Apply validates the delta against e and mutates e in place.
// The entitlement is untouched when an error is returned.
func (e *Entitlement) Apply(d Delta) error {
	switch d.Op {
	case OpSpendBalance:
		if e.Balance <= 0 {
			return fmt.Errorf("entitlement: user %s has no balance to spend", e.UserID)
		}
		e.Balance--
	case OpAddCredits:
		if d.Credits <= 0 {
			return fmt.Errorf("entitlement: add credits requires a positive amount, got %d", d.Credits)
		}
		e.Balance += d.Credits
		e.TotalPurchases++
	case OpUseFreeTrial:
		if e.FreeTrialUsed {
			return fmt.Errorf("entitlement: user %s already used the free trial", e.UserID)
		}
		e.FreeTrialUsed = true
	case OpUseQuickQuota:
		if d.Limit > 0 && e.QuickQuotaUsed >= d.Limit {
			return fmt.Errorf("entitlement: user %s exhausted the quick-decision quota", e.UserID)
		}
		e.QuickQuotaUsed++
	case OpRecordPurchase:
		e.TotalPurchases++
	default:
		return fmt.Errorf("entitlement: unknown delta op %q", d.Op)
	}

	e.Touch()

	return nil
}

// Clone returns a deep copy of the entitlement.
func (e *Entitlement) Clone() *Entitlement {
	c := *e
	return &c
}
