package stats

import (
	"testing"

	"github.com/xraph/arcana/entitlement"
)

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, 5)
	if r.TotalUsers != 0 || r.ConversionRate != 0 || len(r.TopPurchasers) != 0 {
		t.Errorf("empty ledger report: %+v", r)
	}
}

func TestComputeFunnel(t *testing.T) {
	ents := []*entitlement.Entitlement{
		{UserID: "a", FreeTrialUsed: true},
		{UserID: "b", FreeTrialUsed: true, QuickQuotaUsed: 2},
		{UserID: "c", FreeTrialUsed: true, QuickQuotaUsed: 5, TotalPurchases: 3, Balance: 4},
		{UserID: "d", TotalPurchases: 1},
	}

	r := Compute(ents, 5)

	if r.TotalUsers != 4 {
		t.Errorf("TotalUsers = %d, want 4", r.TotalUsers)
	}
	if r.TrialUsers != 3 {
		t.Errorf("TrialUsers = %d, want 3", r.TrialUsers)
	}
	if r.QuotaUsers != 2 {
		t.Errorf("QuotaUsers = %d, want 2", r.QuotaUsers)
	}
	if r.QuotaExhausted != 1 {
		t.Errorf("QuotaExhausted = %d, want 1", r.QuotaExhausted)
	}
	if r.PayingUsers != 2 {
		t.Errorf("PayingUsers = %d, want 2", r.PayingUsers)
	}
	if r.ConversionRate != 0.5 {
		t.Errorf("ConversionRate = %v, want 0.5", r.ConversionRate)
	}
	if r.TotalPurchases != 4 {
		t.Errorf("TotalPurchases = %d, want 4", r.TotalPurchases)
	}
	if r.OutstandingCredits != 4 {
		t.Errorf("OutstandingCredits = %d, want 4", r.OutstandingCredits)
	}

	if len(r.TopPurchasers) != 2 {
		t.Fatalf("TopPurchasers len = %d, want 2", len(r.TopPurchasers))
	}
	if r.TopPurchasers[0].UserID != "c" || r.TopPurchasers[1].UserID != "d" {
		t.Errorf("leaderboard order: %s, %s", r.TopPurchasers[0].UserID, r.TopPurchasers[1].UserID)
	}
}

func TestComputeLeaderboardCap(t *testing.T) {
	ents := make([]*entitlement.Entitlement, 0, 15)
	for i := 0; i < 15; i++ {
		ents = append(ents, &entitlement.Entitlement{
			UserID:         string(rune('a' + i)),
			TotalPurchases: i + 1,
		})
	}

	r := Compute(ents, 5)
	if len(r.TopPurchasers) != TopPurchaserLimit {
		t.Fatalf("leaderboard len = %d, want %d", len(r.TopPurchasers), TopPurchaserLimit)
	}
	if r.TopPurchasers[0].Purchases != 15 {
		t.Errorf("top purchaser has %d purchases, want 15", r.TopPurchasers[0].Purchases)
	}
}
