package entitlement

import "github.com/xraph/arcana/tier"

// Method names the way a reading was (or will be) funded.
type Method string

const (
	MethodFreeTrial  Method = "free_trial"
	MethodQuickQuota Method = "quick_quota"
	MethodBalance    Method = "balance"
	MethodPaid       Method = "paid"
)

// Decision is the outcome of evaluating a tier selection against a
// user's entitlement. Exactly one of the grant methods applies, or
// RequiresPayment is set.
type Decision struct {
	Method          Method `json:"method"`
	RequiresPayment bool   `json:"requires_payment"`
	Delta           Delta  `json:"-"`

	// QuotaRemaining is the number of free quick decisions left AFTER
	// this decision is honored. Only meaningful for MethodQuickQuota.
	QuotaRemaining int `json:"quota_remaining,omitempty"`
}

// Policy decides how a tier selection is funded. The zero value is
// usable: a quota of zero disables free quick decisions and an empty
// TrialTier makes every non-package tier trial-eligible.
type Policy struct {
	// QuickQuota is the number of free quick-decision readings each
	// user gets before the quick-decision tier requires payment.
	QuickQuota int

	// TrialTier restricts the free trial to a single tier slug.
	// Empty means the trial covers any non-package tier.
	TrialTier string
}

// DefaultQuickQuota matches the stock product: five free quick
// decisions per user.
const DefaultQuickQuota = 5

// DefaultPolicy returns the stock funding policy.
func DefaultPolicy() Policy {
	return Policy{QuickQuota: DefaultQuickQuota}
}

// Decide evaluates a tier selection against the user's current
// entitlement. It is pure: the entitlement is not modified, and the
// returned Decision carries the delta to commit if the grant is taken.
//
// Funding precedence for non-package tiers:
//  1. free quick-decision quota (quick-decision tiers only)
//  2. one-time free trial
//  3. purchased balance
//  4. payment
//
// Packages always require payment: they add credits, they never
// consume them.
func (p Policy) Decide(e *Entitlement, t tier.Tier) Decision {
	if t.IsPackage {
		return Decision{Method: MethodPaid, RequiresPayment: true}
	}

	if t.QuickDecision && e.QuickQuotaUsed < p.QuickQuota {
		return Decision{
			Method:         MethodQuickQuota,
			Delta:          UseQuickQuota(p.QuickQuota),
			QuotaRemaining: p.QuickQuota - e.QuickQuotaUsed - 1,
		}
	}

	if !e.FreeTrialUsed && p.trialCovers(t) {
		return Decision{Method: MethodFreeTrial, Delta: UseFreeTrial()}
	}

	if e.Balance > 0 {
		return Decision{Method: MethodBalance, Delta: SpendBalance()}
	}

	return Decision{Method: MethodPaid, RequiresPayment: true}
}

// QuotaRemaining returns how many free quick decisions the user has left.
func (p Policy) QuotaRemaining(e *Entitlement) int {
	if r := p.QuickQuota - e.QuickQuotaUsed; r > 0 {
		return r
	}
	return 0
}

func (p Policy) trialCovers(t tier.Tier) bool {
	if p.TrialTier == "" {
		return true
	}
	return p.TrialTier == t.Slug
}
