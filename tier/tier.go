// Package tier defines the catalog of reading tiers a user can select.
//
// Tiers are static configuration, not stored records: a deployment ships
// with a catalog and every session references a tier by slug. The catalog
// is immutable after construction so concurrent lookups need no locking.
package tier

import (
	"fmt"

	"github.com/xraph/arcana/types"
)

// Tier describes one purchasable reading product.
type Tier struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       types.Money `json:"price"`
	Cards       int         `json:"cards"`
	Positions   []string    `json:"positions,omitempty"`

	// IsPackage marks a credit bundle: paying for it adds PackageCredits
	// to the user's balance instead of producing a reading.
	IsPackage      bool `json:"is_package"`
	PackageCredits int  `json:"package_credits,omitempty"`

	// QuickDecision marks the tier as eligible for the free quick-decision
	// quota before payment is required.
	QuickDecision bool `json:"quick_decision,omitempty"`
}

// RequiresPositions reports whether the tier produces a positional spread.
func (t Tier) RequiresPositions() bool {
	return !t.IsPackage && len(t.Positions) > 0
}

// Validate checks internal consistency of a single tier definition.
func (t Tier) Validate() error {
	if t.Slug == "" {
		return fmt.Errorf("tier: missing slug")
	}
	if t.Name == "" {
		return fmt.Errorf("tier %q: missing name", t.Slug)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("tier %q: price must be positive", t.Slug)
	}
	if t.IsPackage {
		if t.PackageCredits <= 0 {
			return fmt.Errorf("tier %q: package requires positive credits", t.Slug)
		}
		if t.QuickDecision {
			return fmt.Errorf("tier %q: package cannot be a quick decision", t.Slug)
		}
		return nil
	}
	if t.Cards <= 0 {
		return fmt.Errorf("tier %q: reading requires at least one card", t.Slug)
	}
	if len(t.Positions) > 0 && len(t.Positions) != t.Cards {
		return fmt.Errorf("tier %q: %d positions for %d cards", t.Slug, len(t.Positions), t.Cards)
	}
	return nil
}

// Catalog is an immutable, ordered collection of tiers keyed by slug.
type Catalog struct {
	tiers []Tier
	index map[string]int
}

// NewCatalog validates the given tiers and builds a catalog.
// Slugs must be unique.
func NewCatalog(tiers ...Tier) (*Catalog, error) {
	c := &Catalog{
		tiers: make([]Tier, 0, len(tiers)),
		index: make(map[string]int, len(tiers)),
	}
	for _, t := range tiers {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[t.Slug]; dup {
			return nil, fmt.Errorf("tier: duplicate slug %q", t.Slug)
		}
		c.index[t.Slug] = len(c.tiers)
		c.tiers = append(c.tiers, t)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. Use for static catalogs.
func MustCatalog(tiers ...Tier) *Catalog {
	c, err := NewCatalog(tiers...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the tier for slug. The second return is false when the slug
// is not in the catalog.
func (c *Catalog) Get(slug string) (Tier, bool) {
	i, ok := c.index[slug]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[i], true
}

// All returns the tiers in catalog order. The slice is a copy.
func (c *Catalog) All() []Tier {
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Len returns the number of tiers in the catalog.
func (c *Catalog) Len() int { return len(c.tiers) }

// Default returns the catalog of the stock tarot product line, priced
// in Telegram Stars. Deployments that need different products build
// their own catalog with NewCatalog.
func Default() *Catalog {
	return MustCatalog(
		Tier{
			Slug:          "quick-decision",
			Name:          "Quick Decision",
			Description:   "One card, one answer",
			Price:         types.XTR(10),
			Cards:         1,
			QuickDecision: true,
		},
		Tier{
			Slug:        "one-card",
			Name:        "One Card",
			Description: "A fast answer to your question",
			Price:       types.XTR(25),
			Cards:       1,
		},
		Tier{
			Slug:        "three-cards",
			Name:        "Three Cards",
			Description: "Past, present and future",
			Price:       types.XTR(50),
			Cards:       3,
			Positions:   []string{"Past", "Present", "Future"},
		},
		Tier{
			Slug:        "love-reading",
			Name:        "Love Reading",
			Description: "The secrets of your relationship",
			Price:       types.XTR(75),
			Cards:       5,
			Positions:   []string{"You", "Your partner", "The bond", "The obstacle", "The outcome"},
		},
		Tier{
			Slug:        "celtic-cross",
			Name:        "Celtic Cross",
			Description: "The deepest analysis of your situation",
			Price:       types.XTR(100),
			Cards:       10,
			Positions: []string{
				"Present", "Challenge", "Subconscious", "Past", "Crown",
				"Near future", "Self", "Environment", "Hopes and fears", "Outcome",
			},
		},
		Tier{
			Slug:           "package-5",
			Name:           "Package of 5 Readings",
			Description:    "Five reading credits, usable on any spread",
			Price:          types.XTR(200),
			IsPackage:      true,
			PackageCredits: 5,
		},
	)
}
