// Package stats computes the operator funnel report over the
// entitlement ledger: who tried the service, who paid, and how many
// purchased credits remain outstanding.
package stats

import (
	"sort"

	"github.com/xraph/arcana/entitlement"
)

// TopPurchaserLimit caps the leaderboard length.
const TopPurchaserLimit = 10

// Purchaser is one row of the purchase leaderboard.
type Purchaser struct {
	UserID    string `json:"user_id"`
	Purchases int    `json:"purchases"`
	Balance   int    `json:"balance"`
}

// Report is a point-in-time aggregation of the ledger.
type Report struct {
	TotalUsers int `json:"total_users"`

	// Funnel
	TrialUsers     int     `json:"trial_users"`
	QuotaUsers     int     `json:"quota_users"`
	QuotaExhausted int     `json:"quota_exhausted"`
	PayingUsers    int     `json:"paying_users"`
	ConversionRate float64 `json:"conversion_rate"`

	// Purchases
	TotalPurchases     int `json:"total_purchases"`
	OutstandingCredits int `json:"outstanding_credits"`

	TopPurchasers []Purchaser `json:"top_purchasers"`
}

// Compute builds a report from the full ledger listing. quickQuota is
// the policy's free quick-decision cap, used to flag exhausted users.
func Compute(ents []*entitlement.Entitlement, quickQuota int) *Report {
	r := &Report{TotalUsers: len(ents)}

	purchasers := make([]Purchaser, 0)
	for _, e := range ents {
		if e.FreeTrialUsed {
			r.TrialUsers++
		}
		if e.QuickQuotaUsed > 0 {
			r.QuotaUsers++
		}
		if quickQuota > 0 && e.QuickQuotaUsed >= quickQuota {
			r.QuotaExhausted++
		}
		if e.TotalPurchases > 0 {
			r.PayingUsers++
			r.TotalPurchases += e.TotalPurchases
			purchasers = append(purchasers, Purchaser{
				UserID:    e.UserID,
				Purchases: e.TotalPurchases,
				Balance:   e.Balance,
			})
		}
		r.OutstandingCredits += e.Balance
	}

	if r.TotalUsers > 0 {
		r.ConversionRate = float64(r.PayingUsers) / float64(r.TotalUsers)
	}

	// Most purchases first; ties break on user ID for stable output.
	sort.Slice(purchasers, func(i, j int) bool {
		if purchasers[i].Purchases != purchasers[j].Purchases {
			return purchasers[i].Purchases > purchasers[j].Purchases
		}
		return purchasers[i].UserID < purchasers[j].UserID
	})
	if len(purchasers) > TopPurchaserLimit {
		purchasers = purchasers[:TopPurchaserLimit]
	}
	r.TopPurchasers = purchasers

	return r
}
