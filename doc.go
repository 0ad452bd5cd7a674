// Package arcana provides a composable entitlement and session
// reconciliation engine for pay-per-reading services.
//
// Arcana is designed as a library, not a service. Import it directly into your
// Go application and wire your own transport around it. It provides:
//
//   - Per-user reconciliation of two asynchronous events: settlement
//     (payment or free grant) and the user's question
//   - Exactly-once entitlement consumption and exactly-once dispatch,
//     regardless of event order or redelivery
//   - A pure funding policy: free trial, free quick-decision quota,
//     purchased balance, or payment
//   - Package purchases that top up a tier-agnostic credit balance
//   - Durable payment records with orphan detection
//   - Pluggable lifecycle hooks, metrics and audit bridges
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/arcana"
//	    "github.com/xraph/arcana/store/memory"
//	)
//
//	eng := arcana.New(memory.New(),
//	    arcana.WithDeliverer(myTransport),
//	)
//
//	ctx := context.Background()
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// A user selects a tier; the policy decides how it is funded:
//
//	sel, err := eng.SelectTier(ctx, userID, "three-cards")
//	if sel.RequiresPayment {
//	    // Present sel.Invoice through your payment transport.
//	}
//
// The two halves of the request may then arrive in either order:
//
//	out, err := eng.ConfirmPayment(ctx, userID, chargeID)
//	out, err = eng.SubmitQuestion(ctx, userID, "Will I get the job?")
//
// Once both halves are present, the engine draws the spread, calls the
// configured Generator and Deliverer exactly once, and clears the
// session. Duplicate payment confirmations are no-ops; a confirmation
// with no session to claim it is recorded as an orphan, never dropped.
//
// # Stores
//
// Four store drivers ship with the module: memory (ephemeral),
// sqlite, postgres and mongo (durable, via the Grove ORM). Durable
// stores survive restarts mid-session, so a payment arriving after a
// crash still finds its session.
//
// # TypeID
//
// Sessions, payments and readings use TypeID for globally unique,
// type-safe identifiers:
//
//	sess_01h2xcejqtf2nbrexx3vqjhp41  // Session ID
//	pay_01h2xcejqtf2nbrexx3vqjhp41   // Payment ID
//	read_01h455vb4pex5vsknk084sn02q  // Reading ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
//
// User identifiers are deliberately not TypeIDs: they are opaque
// strings owned by the host transport (a chat user ID, an account
// UUID), passed through unchanged.
package arcana
