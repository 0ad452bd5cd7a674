package arcana_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/arcana"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/store/memory"
	"github.com/xraph/arcana/tier"
	"github.com/xraph/arcana/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine with collaborators
		eng := arcana.New(store,
			arcana.WithLogger(slog.Default()),
			arcana.WithDeliverer(reading.DelivererFunc(
				func(_ context.Context, _ string, _ *reading.Reading) error { return nil },
			)),
			arcana.WithSessionTTL(24*time.Hour),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// A user picks a tier; the policy decides how it is funded
		sel, err := eng.SelectTier(ctx, "user-123", "three-cards")
		if err != nil {
			t.Fatal(err)
		}
		if sel.RequiresPayment {
			// Present sel.Invoice through your payment transport,
			// then call eng.ConfirmPayment with the charge ID.
			t.Fatal("a fresh user should be covered by the free trial")
		}

		// The question completes the join and dispatches the reading
		out, err := eng.SubmitQuestion(ctx, "user-123", "Will I get the job?")
		if err != nil {
			t.Fatal(err)
		}
		if !out.Dispatched {
			t.Fatal("expected a dispatched reading")
		}
	})

	t.Run("CustomCatalogExample", func(t *testing.T) {
		// Catalogs are static and validated once at startup
		catalog, err := tier.NewCatalog(
			tier.Tier{
				Slug:  "single",
				Name:  "Single Card",
				Price: types.XTR(30),
				Cards: 1,
			},
			tier.Tier{
				Slug:           "bundle-10",
				Name:           "Ten Reading Bundle",
				Price:          types.XTR(250),
				IsPackage:      true,
				PackageCredits: 10,
			},
		)
		if err != nil {
			t.Fatal(err)
		}

		eng := arcana.New(memory.New(),
			arcana.WithCatalog(catalog),
			arcana.WithSessionTTL(0),
		)

		ctx := context.Background()
		sel, err := eng.SelectTier(ctx, "user-123", "bundle-10")
		if err != nil {
			t.Fatal(err)
		}
		if !sel.RequiresPayment {
			t.Fatal("packages always require payment")
		}

		out, err := eng.ConfirmPayment(ctx, "user-123", "charge-abc")
		if err != nil {
			t.Fatal(err)
		}
		if out.CreditsAdded != 10 {
			t.Fatalf("CreditsAdded = %d, want 10", out.CreditsAdded)
		}
	})

	t.Run("MoneyExample", func(t *testing.T) {
		// Telegram Stars are a zero-decimal currency
		price := types.XTR(50)
		if price.FormatMajor() != "50" {
			t.Fatalf("FormatMajor = %s", price.FormatMajor())
		}
		if price.String() != "⭐50" {
			t.Fatalf("String = %s", price.String())
		}
	})
}
