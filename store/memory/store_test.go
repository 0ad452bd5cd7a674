package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/arcana"
	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/session"
	"github.com/xraph/arcana/types"
)

func TestGetEntitlementCreatesZeroRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	e, err := s.GetEntitlement(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetEntitlement: %v", err)
	}
	if e.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", e.UserID, "user-1")
	}
	if e.Balance != 0 || e.FreeTrialUsed || e.QuickQuotaUsed != 0 || e.TotalPurchases != 0 {
		t.Errorf("expected zero record, got %+v", e)
	}
}

func TestCommitDelta(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Spending with no balance fails and leaves the record untouched.
	if _, err := s.CommitDelta(ctx, "user-1", entitlement.SpendBalance()); !errors.Is(err, arcana.ErrInsufficientBalance) {
		t.Fatalf("spend on empty balance: err = %v, want ErrInsufficientBalance", err)
	}

	e, err := s.CommitDelta(ctx, "user-1", entitlement.AddCredits(5))
	if err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	if e.Balance != 5 || e.TotalPurchases != 1 {
		t.Errorf("after AddCredits(5): balance = %d purchases = %d", e.Balance, e.TotalPurchases)
	}

	e, err = s.CommitDelta(ctx, "user-1", entitlement.SpendBalance())
	if err != nil {
		t.Fatalf("SpendBalance: %v", err)
	}
	if e.Balance != 4 {
		t.Errorf("after spend: balance = %d, want 4", e.Balance)
	}

	// Free trial applies exactly once.
	if _, err := s.CommitDelta(ctx, "user-1", entitlement.UseFreeTrial()); err != nil {
		t.Fatalf("UseFreeTrial: %v", err)
	}
	if _, err := s.CommitDelta(ctx, "user-1", entitlement.UseFreeTrial()); !errors.Is(err, arcana.ErrTrialConsumed) {
		t.Errorf("second UseFreeTrial: err = %v, want ErrTrialConsumed", err)
	}

	// The quota counter stops at the limit the delta carries.
	for i := 0; i < 2; i++ {
		if _, err := s.CommitDelta(ctx, "user-2", entitlement.UseQuickQuota(2)); err != nil {
			t.Fatalf("UseQuickQuota #%d: %v", i+1, err)
		}
	}
	if _, err := s.CommitDelta(ctx, "user-2", entitlement.UseQuickQuota(2)); !errors.Is(err, arcana.ErrQuotaExceeded) {
		t.Errorf("UseQuickQuota past limit: err = %v, want ErrQuotaExceeded", err)
	}
}

func TestCommitDeltaReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()

	e, err := s.CommitDelta(ctx, "user-1", entitlement.AddCredits(3))
	if err != nil {
		t.Fatalf("AddCredits: %v", err)
	}
	e.Balance = 99

	got, err := s.GetEntitlement(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetEntitlement: %v", err)
	}
	if got.Balance != 3 {
		t.Errorf("stored balance mutated through returned value: %d", got.Balance)
	}
}

func TestListEntitlements(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, userID := range []string{"charlie", "alice", "bob"} {
		if _, err := s.GetEntitlement(ctx, userID); err != nil {
			t.Fatalf("GetEntitlement(%s): %v", userID, err)
		}
	}
	if _, err := s.CommitDelta(ctx, "bob", entitlement.AddCredits(1)); err != nil {
		t.Fatalf("AddCredits: %v", err)
	}

	all, err := s.ListEntitlements(ctx, entitlement.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntitlements: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].UserID != "alice" || all[1].UserID != "bob" || all[2].UserID != "charlie" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].UserID, all[1].UserID, all[2].UserID)
	}

	buyers, err := s.ListEntitlements(ctx, entitlement.ListOpts{WithPurchases: true})
	if err != nil {
		t.Fatalf("ListEntitlements(WithPurchases): %v", err)
	}
	if len(buyers) != 1 || buyers[0].UserID != "bob" {
		t.Errorf("WithPurchases: got %d records", len(buyers))
	}

	page, err := s.ListEntitlements(ctx, entitlement.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListEntitlements(paged): %v", err)
	}
	if len(page) != 1 || page[0].UserID != "bob" {
		t.Errorf("page = %+v, want single record for bob", page)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetSession(ctx, "user-1"); !errors.Is(err, arcana.ErrSessionNotFound) {
		t.Fatalf("GetSession on empty store: err = %v, want ErrSessionNotFound", err)
	}

	sess := session.New("user-1", "three-cards")
	if err := s.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession: %v", err)
	}

	got, err := s.GetSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != sess.ID || got.TierSlug != "three-cards" {
		t.Errorf("got session %+v", got)
	}

	// Put replaces the existing session for the same user.
	replacement := session.New("user-1", "celtic-cross")
	if err := s.PutSession(ctx, replacement); err != nil {
		t.Fatalf("PutSession (replace): %v", err)
	}
	got, err = s.GetSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSession after replace: %v", err)
	}
	if got.ID != replacement.ID {
		t.Errorf("session not replaced: got %s, want %s", got.ID, replacement.ID)
	}

	if err := s.DeleteSession(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(ctx, "user-1"); !errors.Is(err, arcana.ErrSessionNotFound) {
		t.Errorf("after delete: err = %v, want ErrSessionNotFound", err)
	}

	// Deleting a missing session is not an error.
	if err := s.DeleteSession(ctx, "user-1"); err != nil {
		t.Errorf("DeleteSession on missing session: %v", err)
	}
}

func TestPurgeSessions(t *testing.T) {
	s := New()
	ctx := context.Background()

	stale := session.New("stale-user", "one-card")
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	if err := s.PutSession(ctx, stale); err != nil {
		t.Fatalf("PutSession: %v", err)
	}

	fresh := session.New("fresh-user", "one-card")
	if err := s.PutSession(ctx, fresh); err != nil {
		t.Fatalf("PutSession: %v", err)
	}

	purged, err := s.PurgeSessions(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeSessions: %v", err)
	}
	if len(purged) != 1 || purged[0].UserID != "stale-user" {
		t.Fatalf("purged = %+v, want the stale session", purged)
	}

	if _, err := s.GetSession(ctx, "stale-user"); !errors.Is(err, arcana.ErrSessionNotFound) {
		t.Errorf("stale session survived purge: err = %v", err)
	}
	if _, err := s.GetSession(ctx, "fresh-user"); err != nil {
		t.Errorf("fresh session purged: %v", err)
	}
}

func TestRecordPaymentDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &session.Payment{
		Entity:     types.NewEntity(),
		UserID:     "user-1",
		TierSlug:   "one-card",
		PaymentRef: "ref-123",
		Amount:     types.XTR(25),
	}
	if err := s.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if err := s.RecordPayment(ctx, p); !errors.Is(err, arcana.ErrDuplicatePayment) {
		t.Errorf("duplicate RecordPayment: err = %v, want ErrDuplicatePayment", err)
	}

	got, err := s.GetPayment(ctx, "ref-123")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if got.UserID != "user-1" || got.Amount.Amount != 25 {
		t.Errorf("got payment %+v", got)
	}

	if _, err := s.GetPayment(ctx, "missing"); !errors.Is(err, arcana.ErrNotFound) {
		t.Errorf("GetPayment(missing): err = %v, want ErrNotFound", err)
	}
}

func TestListOrphanPayments(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, ref := range []string{"ref-a", "ref-b", "ref-c"} {
		p := &session.Payment{
			UserID:     "user-1",
			TierSlug:   "one-card",
			PaymentRef: ref,
			Amount:     types.XTR(25),
			Orphan:     ref != "ref-b",
		}
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		p.UpdatedAt = p.CreatedAt
		if err := s.RecordPayment(ctx, p); err != nil {
			t.Fatalf("RecordPayment(%s): %v", ref, err)
		}
	}

	orphans, err := s.ListOrphanPayments(ctx, session.ListOpts{})
	if err != nil {
		t.Fatalf("ListOrphanPayments: %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("len = %d, want 2", len(orphans))
	}
	// Newest first.
	if orphans[0].PaymentRef != "ref-c" || orphans[1].PaymentRef != "ref-a" {
		t.Errorf("order = %s, %s", orphans[0].PaymentRef, orphans[1].PaymentRef)
	}

	none, err := s.ListOrphanPayments(ctx, session.ListOpts{UserID: "user-2"})
	if err != nil {
		t.Fatalf("ListOrphanPayments(user-2): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no orphans for user-2, got %d", len(none))
	}
}
