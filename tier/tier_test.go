package tier

import (
	"testing"

	"github.com/xraph/arcana/types"
)

func TestTierValidate(t *testing.T) {
	tests := []struct {
		name    string
		tier    Tier
		wantErr bool
	}{
		{"valid reading", Tier{Slug: "one", Name: "One", Price: types.XTR(25), Cards: 1}, false},
		{"valid package", Tier{Slug: "pkg", Name: "Pack", Price: types.XTR(200), IsPackage: true, PackageCredits: 5}, false},
		{"missing slug", Tier{Name: "One", Price: types.XTR(25), Cards: 1}, true},
		{"missing name", Tier{Slug: "one", Price: types.XTR(25), Cards: 1}, true},
		{"negative price", Tier{Slug: "one", Name: "One", Price: types.XTR(-1), Cards: 1}, true},
		{"zero price", Tier{Slug: "one", Name: "One", Price: types.XTR(0), Cards: 1}, true},
		{"zero price package", Tier{Slug: "pkg", Name: "Pack", Price: types.XTR(0), IsPackage: true, PackageCredits: 5}, true},
		{"zero cards", Tier{Slug: "one", Name: "One", Price: types.XTR(25)}, true},
		{"package without credits", Tier{Slug: "pkg", Name: "Pack", Price: types.XTR(200), IsPackage: true}, true},
		{"package quick decision", Tier{Slug: "pkg", Name: "Pack", Price: types.XTR(200), IsPackage: true, PackageCredits: 5, QuickDecision: true}, true},
		{"position count mismatch", Tier{Slug: "three", Name: "Three", Price: types.XTR(50), Cards: 3, Positions: []string{"Past", "Future"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tier.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCatalog(t *testing.T) {
	a := Tier{Slug: "a", Name: "A", Price: types.XTR(10), Cards: 1}
	b := Tier{Slug: "b", Name: "B", Price: types.XTR(20), Cards: 3}

	c, err := NewCatalog(a, b)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len: got %d, want 2", c.Len())
	}

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get(a) not found")
	}
	if got.Name != "A" {
		t.Errorf("Get(a).Name: got %q, want %q", got.Name, "A")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}
}

func TestNewCatalogDuplicateSlug(t *testing.T) {
	a := Tier{Slug: "a", Name: "A", Price: types.XTR(10), Cards: 1}
	if _, err := NewCatalog(a, a); err == nil {
		t.Error("expected error for duplicate slug")
	}
}

func TestNewCatalogInvalidTier(t *testing.T) {
	bad := Tier{Slug: "bad", Name: "Bad", Price: types.XTR(10)}
	if _, err := NewCatalog(bad); err == nil {
		t.Error("expected error for invalid tier")
	}
}

func TestCatalogAllIsCopy(t *testing.T) {
	c := MustCatalog(Tier{Slug: "a", Name: "A", Price: types.XTR(10), Cards: 1})
	all := c.All()
	all[0].Name = "mutated"

	got, _ := c.Get("a")
	if got.Name != "A" {
		t.Error("mutating All() result should not affect the catalog")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if c.Len() != 6 {
		t.Fatalf("expected 6 tiers, got %d", c.Len())
	}

	for _, tr := range c.All() {
		if err := tr.Validate(); err != nil {
			t.Errorf("default tier %q invalid: %v", tr.Slug, err)
		}
		if tr.Price.Currency != "xtr" {
			t.Errorf("default tier %q priced in %q, want xtr", tr.Slug, tr.Price.Currency)
		}
	}

	qd, ok := c.Get("quick-decision")
	if !ok || !qd.QuickDecision {
		t.Error("quick-decision tier missing or not flagged")
	}

	pkg, ok := c.Get("package-5")
	if !ok || !pkg.IsPackage || pkg.PackageCredits != 5 {
		t.Errorf("package-5 tier wrong: %+v", pkg)
	}

	cc, _ := c.Get("celtic-cross")
	if cc.Cards != 10 || len(cc.Positions) != 10 {
		t.Errorf("celtic-cross should have 10 cards and positions, got %d/%d", cc.Cards, len(cc.Positions))
	}
}
