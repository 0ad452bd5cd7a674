package reading

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/arcana/id"
	"github.com/xraph/arcana/types"
)

// Spread is a drawn set of cards ready for interpretation.
type Spread struct {
	TierName  string   `json:"tier_name"`
	Cards     []Card   `json:"cards"`
	Positions []string `json:"positions,omitempty"`
	Question  string   `json:"question"`
}

// Position returns the positional label for card i, falling back to
// "Card N" for spreads without named positions.
func (s Spread) Position(i int) string {
	if i < len(s.Positions) {
		return s.Positions[i]
	}
	return fmt.Sprintf("Card %d", i+1)
}

// Format renders the spread as a plain-text block, one card per
// paragraph with its position and keywords.
func (s Spread) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ %s ✨\n\n", s.TierName)
	for i, c := range s.Cards {
		fmt.Fprintf(&b, "🃏 %s: %s\n📖 %s\n\n", s.Position(i), c.Name, c.Keywords)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Reading is the dispatched result of a completed session.
type Reading struct {
	types.Entity
	ID             id.ReadingID `json:"id"`
	UserID         string       `json:"user_id"`
	TierSlug       string       `json:"tier_slug"`
	Spread         Spread       `json:"spread"`
	Interpretation string       `json:"interpretation"`
}

// Generator produces an interpretation for a drawn spread.
// Implementations typically call a language model; the engine only
// requires that a non-empty interpretation or an error comes back.
type Generator interface {
	Generate(ctx context.Context, spread Spread) (string, error)
}

// Deliverer sends a completed reading to the user over whatever
// transport the host application speaks.
type Deliverer interface {
	Deliver(ctx context.Context, userID string, r *Reading) error
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, spread Spread) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, spread Spread) (string, error) {
	return f(ctx, spread)
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, userID string, r *Reading) error

func (f DelivererFunc) Deliver(ctx context.Context, userID string, r *Reading) error {
	return f(ctx, userID, r)
}

// KeywordGenerator is the fallback Generator: it composes an
// interpretation from the cards' own keywords without any external
// service. Hosts that wire a language model replace it via options.
type KeywordGenerator struct{}

func (KeywordGenerator) Generate(_ context.Context, spread Spread) (string, error) {
	var b strings.Builder
	if spread.Question != "" {
		fmt.Fprintf(&b, "You asked: %s\n\n", spread.Question)
	}
	for i, c := range spread.Cards {
		fmt.Fprintf(&b, "%s speaks of %s.\n", spread.Position(i), c.Keywords)
	}
	b.WriteString("\nLet the cards guide, not decide.")
	return b.String(), nil
}
