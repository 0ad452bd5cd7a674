// Package audithook bridges Arcana lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/plugin"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnSessionOpened     = (*Extension)(nil)
	_ plugin.OnSessionSuperseded = (*Extension)(nil)
	_ plugin.OnSettled           = (*Extension)(nil)
	_ plugin.OnInvoiceRequested  = (*Extension)(nil)
	_ plugin.OnSessionsPurged    = (*Extension)(nil)
	_ plugin.OnPackageCredited   = (*Extension)(nil)
	_ plugin.OnQuotaExceeded     = (*Extension)(nil)
	_ plugin.OnOrphanPayment     = (*Extension)(nil)
	_ plugin.OnDispatched        = (*Extension)(nil)
	_ plugin.OnDispatchFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Arcana lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionOpened implements plugin.OnSessionOpened.
func (e *Extension) OnSessionOpened(ctx context.Context, sess *session.Session) error {
	return e.record(ctx, ActionSessionOpened, SeverityInfo, OutcomeSuccess,
		ResourceSession, sess.ID.String(), CategorySession, nil,
		"user_id", sess.UserID,
		"tier", sess.TierSlug,
	)
}

// OnSessionSuperseded implements plugin.OnSessionSuperseded.
func (e *Extension) OnSessionSuperseded(ctx context.Context, old, replacement *session.Session) error {
	return e.record(ctx, ActionSessionSuperseded, SeverityInfo, OutcomeSuccess,
		ResourceSession, old.ID.String(), CategorySession, nil,
		"user_id", old.UserID,
		"old_tier", old.TierSlug,
		"new_tier", replacement.TierSlug,
		"replacement_id", replacement.ID.String(),
	)
}

// OnSettled implements plugin.OnSettled.
func (e *Extension) OnSettled(ctx context.Context, sess *session.Session) error {
	return e.record(ctx, ActionSessionSettled, SeverityInfo, OutcomeSuccess,
		ResourceSession, sess.ID.String(), CategoryPayment, nil,
		"user_id", sess.UserID,
		"tier", sess.TierSlug,
		"method", string(sess.Method),
	)
}

// OnInvoiceRequested implements plugin.OnInvoiceRequested.
func (e *Extension) OnInvoiceRequested(ctx context.Context, sess *session.Session) error {
	return e.record(ctx, ActionInvoiceRequested, SeverityInfo, OutcomeSuccess,
		ResourceSession, sess.ID.String(), CategoryPayment, nil,
		"user_id", sess.UserID,
		"tier", sess.TierSlug,
	)
}

// OnSessionsPurged implements plugin.OnSessionsPurged.
func (e *Extension) OnSessionsPurged(ctx context.Context, purged []*session.Session) error {
	return e.record(ctx, ActionSessionsPurged, SeverityInfo, OutcomeSuccess,
		ResourceSession, "", CategorySession, nil,
		"count", len(purged),
	)
}

// ──────────────────────────────────────────────────
// Entitlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnPackageCredited implements plugin.OnPackageCredited.
func (e *Extension) OnPackageCredited(ctx context.Context, ent *entitlement.Entitlement, credits int) error {
	return e.record(ctx, ActionPackageCredited, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, ent.UserID, CategoryPayment, nil,
		"user_id", ent.UserID,
		"credits", credits,
		"balance", ent.Balance,
	)
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, userID string, used, limit int) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceEntitlement, userID, CategoryAccess, nil,
		"user_id", userID,
		"used", used,
		"limit", limit,
	)
}

// OnOrphanPayment implements plugin.OnOrphanPayment.
func (e *Extension) OnOrphanPayment(ctx context.Context, p *session.Payment) error {
	return e.record(ctx, ActionOrphanPayment, SeverityCritical, OutcomeFailure,
		ResourcePayment, p.ID.String(), CategoryPayment, nil,
		"user_id", p.UserID,
		"payment_ref", p.PaymentRef,
		"amount", p.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Dispatch lifecycle hooks
// ──────────────────────────────────────────────────

// OnDispatched implements plugin.OnDispatched.
func (e *Extension) OnDispatched(ctx context.Context, r *reading.Reading) error {
	return e.record(ctx, ActionReadingDispatched, SeverityInfo, OutcomeSuccess,
		ResourceReading, r.ID.String(), CategoryDispatch, nil,
		"user_id", r.UserID,
		"tier", r.TierSlug,
		"cards", len(r.Spread.Cards),
	)
}

// OnDispatchFailed implements plugin.OnDispatchFailed.
func (e *Extension) OnDispatchFailed(ctx context.Context, sess *session.Session, err error) error {
	return e.record(ctx, ActionDispatchFailed, SeverityCritical, OutcomeFailure,
		ResourceSession, sess.ID.String(), CategoryDispatch, err,
		"user_id", sess.UserID,
		"tier", sess.TierSlug,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
