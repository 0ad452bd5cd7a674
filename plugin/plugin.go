// Package plugin provides an extensible plugin system for Arcana.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine is passed
// as interface{} to avoid an import cycle with the root package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionOpened is called when a user opens a new session.
type OnSessionOpened interface {
	Plugin
	OnSessionOpened(ctx context.Context, sess *session.Session) error
}

// OnSessionSuperseded is called when a new selection replaces an
// unsettled session for the same user.
type OnSessionSuperseded interface {
	Plugin
	OnSessionSuperseded(ctx context.Context, old, replacement *session.Session) error
}

// OnSettled is called when a session's entitlement is settled, whether
// by free trial, quota, balance, or a confirmed payment.
type OnSettled interface {
	Plugin
	OnSettled(ctx context.Context, sess *session.Session) error
}

// OnInvoiceRequested is called when a selection requires payment and an
// invoice should be presented to the user.
type OnInvoiceRequested interface {
	Plugin
	OnInvoiceRequested(ctx context.Context, sess *session.Session) error
}

// OnSessionsPurged is called after the expiry sweeper removes stale
// sessions.
type OnSessionsPurged interface {
	Plugin
	OnSessionsPurged(ctx context.Context, purged []*session.Session) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnPackageCredited is called when a package purchase adds credits to a
// user's balance.
type OnPackageCredited interface {
	Plugin
	OnPackageCredited(ctx context.Context, ent *entitlement.Entitlement, credits int) error
}

// OnQuotaExceeded is called when a user has exhausted the free
// quick-decision quota and must pay.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, userID string, used, limit int) error
}

// OnOrphanPayment is called when a settled payment arrives with no
// session to attach to.
type OnOrphanPayment interface {
	Plugin
	OnOrphanPayment(ctx context.Context, p *session.Payment) error
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// OnDispatched is called after a reading is generated and delivered.
type OnDispatched interface {
	Plugin
	OnDispatched(ctx context.Context, r *reading.Reading) error
}

// OnDispatchFailed is called when generation or delivery of a reading
// fails after the entitlement was already consumed.
type OnDispatchFailed interface {
	Plugin
	OnDispatchFailed(ctx context.Context, sess *session.Session, err error) error
}
