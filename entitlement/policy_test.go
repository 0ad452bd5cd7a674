package entitlement

import (
	"testing"

	"github.com/xraph/arcana/tier"
	"github.com/xraph/arcana/types"
)

func quickTier() tier.Tier {
	return tier.Tier{Slug: "quick-decision", Name: "Quick Decision", Price: types.XTR(10), Cards: 1, QuickDecision: true}
}

func readingTier() tier.Tier {
	return tier.Tier{Slug: "three-cards", Name: "Three Cards", Price: types.XTR(50), Cards: 3}
}

func packageTier() tier.Tier {
	return tier.Tier{Slug: "package-5", Name: "Package", Price: types.XTR(200), IsPackage: true, PackageCredits: 5}
}

func TestPolicyDecide(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name        string
		ent         *Entitlement
		tier        tier.Tier
		wantMethod  Method
		wantPayment bool
	}{
		{"fresh user quick decision uses quota", New("u1"), quickTier(), MethodQuickQuota, false},
		{"fresh user reading uses free trial", New("u1"), readingTier(), MethodFreeTrial, false},
		{"package always requires payment", New("u1"), packageTier(), MethodPaid, true},
		{
			"trial used, no balance requires payment",
			&Entitlement{UserID: "u1", FreeTrialUsed: true},
			readingTier(), MethodPaid, true,
		},
		{
			"trial used, balance spends balance",
			&Entitlement{UserID: "u1", FreeTrialUsed: true, Balance: 3},
			readingTier(), MethodBalance, false,
		},
		{
			"quota exhausted falls through to trial",
			&Entitlement{UserID: "u1", QuickQuotaUsed: DefaultQuickQuota},
			quickTier(), MethodFreeTrial, false,
		},
		{
			"quota exhausted, trial used, no balance requires payment",
			&Entitlement{UserID: "u1", QuickQuotaUsed: DefaultQuickQuota, FreeTrialUsed: true},
			quickTier(), MethodPaid, true,
		},
		{
			"package ignores balance",
			&Entitlement{UserID: "u1", FreeTrialUsed: true, Balance: 10},
			packageTier(), MethodPaid, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.ent
			d := policy.Decide(tt.ent, tt.tier)
			if d.Method != tt.wantMethod {
				t.Errorf("Method: got %q, want %q", d.Method, tt.wantMethod)
			}
			if d.RequiresPayment != tt.wantPayment {
				t.Errorf("RequiresPayment: got %v, want %v", d.RequiresPayment, tt.wantPayment)
			}
			if *tt.ent != before {
				t.Error("Decide must not mutate the entitlement")
			}
		})
	}
}

func TestPolicyQuotaBoundary(t *testing.T) {
	policy := DefaultPolicy()
	ent := New("u1")
	ent.FreeTrialUsed = true // isolate the quota path

	for i := 0; i < DefaultQuickQuota; i++ {
		d := policy.Decide(ent, quickTier())
		if d.Method != MethodQuickQuota {
			t.Fatalf("decision %d: got %q, want quick_quota", i+1, d.Method)
		}
		if d.QuotaRemaining != DefaultQuickQuota-i-1 {
			t.Errorf("decision %d: QuotaRemaining got %d, want %d", i+1, d.QuotaRemaining, DefaultQuickQuota-i-1)
		}
		if err := ent.Apply(d.Delta); err != nil {
			t.Fatalf("apply delta %d: %v", i+1, err)
		}
	}

	// Sixth request must require payment.
	d := policy.Decide(ent, quickTier())
	if !d.RequiresPayment {
		t.Errorf("request %d should require payment, got %q", DefaultQuickQuota+1, d.Method)
	}
}

func TestPolicyTrialTierRestriction(t *testing.T) {
	policy := Policy{QuickQuota: DefaultQuickQuota, TrialTier: "one-card"}
	ent := New("u1")

	d := policy.Decide(ent, readingTier())
	if d.Method == MethodFreeTrial {
		t.Error("trial should not cover tiers outside TrialTier")
	}

	oneCard := tier.Tier{Slug: "one-card", Name: "One Card", Price: types.XTR(25), Cards: 1}
	d = policy.Decide(ent, oneCard)
	if d.Method != MethodFreeTrial {
		t.Errorf("trial should cover %q, got %q", oneCard.Slug, d.Method)
	}
}

func TestPolicyZeroValueDisablesQuota(t *testing.T) {
	var policy Policy
	ent := New("u1")
	ent.FreeTrialUsed = true

	d := policy.Decide(ent, quickTier())
	if d.Method == MethodQuickQuota {
		t.Error("zero quota should never grant a quick decision")
	}
}

func TestDeltaApply(t *testing.T) {
	tests := []struct {
		name    string
		ent     *Entitlement
		delta   Delta
		wantErr bool
		check   func(*testing.T, *Entitlement)
	}{
		{
			"spend balance", &Entitlement{UserID: "u", Balance: 2}, SpendBalance(), false,
			func(t *testing.T, e *Entitlement) {
				if e.Balance != 1 {
					t.Errorf("Balance: got %d, want 1", e.Balance)
				}
			},
		},
		{
			"spend empty balance", &Entitlement{UserID: "u"}, SpendBalance(), true, nil,
		},
		{
			"add credits", &Entitlement{UserID: "u", Balance: 1}, AddCredits(5), false,
			func(t *testing.T, e *Entitlement) {
				if e.Balance != 6 || e.TotalPurchases != 1 {
					t.Errorf("got balance %d purchases %d, want 6/1", e.Balance, e.TotalPurchases)
				}
			},
		},
		{
			"add zero credits", &Entitlement{UserID: "u"}, AddCredits(0), true, nil,
		},
		{
			"use free trial", &Entitlement{UserID: "u"}, UseFreeTrial(), false,
			func(t *testing.T, e *Entitlement) {
				if !e.FreeTrialUsed {
					t.Error("FreeTrialUsed not set")
				}
			},
		},
		{
			"double free trial", &Entitlement{UserID: "u", FreeTrialUsed: true}, UseFreeTrial(), true, nil,
		},
		{
			"use quick quota", &Entitlement{UserID: "u", QuickQuotaUsed: 2}, UseQuickQuota(5), false,
			func(t *testing.T, e *Entitlement) {
				if e.QuickQuotaUsed != 3 {
					t.Errorf("QuickQuotaUsed: got %d, want 3", e.QuickQuotaUsed)
				}
			},
		},
		{
			"quota at limit", &Entitlement{UserID: "u", QuickQuotaUsed: 5}, UseQuickQuota(5), true, nil,
		},
		{
			"uncapped quota", &Entitlement{UserID: "u", QuickQuotaUsed: 9}, UseQuickQuota(0), false,
			func(t *testing.T, e *Entitlement) {
				if e.QuickQuotaUsed != 10 {
					t.Errorf("QuickQuotaUsed: got %d, want 10", e.QuickQuotaUsed)
				}
			},
		},
		{
			"record purchase", &Entitlement{UserID: "u"}, RecordPurchase(), false,
			func(t *testing.T, e *Entitlement) {
				if e.TotalPurchases != 1 || e.Balance != 0 {
					t.Errorf("got purchases %d balance %d, want 1/0", e.TotalPurchases, e.Balance)
				}
			},
		},
		{
			"unknown op", &Entitlement{UserID: "u"}, Delta{Op: "bogus"}, true, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.ent
			err := tt.ent.Apply(tt.delta)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if *tt.ent != before {
					t.Error("failed Apply must not mutate the entitlement")
				}
				return
			}
			if tt.check != nil {
				tt.check(t, tt.ent)
			}
		})
	}
}

func TestQuotaRemaining(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		used int
		want int
	}{
		{0, 5}, {3, 2}, {5, 0}, {9, 0},
	}
	for _, tt := range tests {
		e := &Entitlement{UserID: "u", QuickQuotaUsed: tt.used}
		if got := policy.QuotaRemaining(e); got != tt.want {
			t.Errorf("QuotaRemaining(used=%d): got %d, want %d", tt.used, got, tt.want)
		}
	}
}
