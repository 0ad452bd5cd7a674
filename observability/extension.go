// Package observability provides a metrics extension for Arcana that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/plugin"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnSessionOpened     = (*MetricsExtension)(nil)
	_ plugin.OnSessionSuperseded = (*MetricsExtension)(nil)
	_ plugin.OnSettled           = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceRequested  = (*MetricsExtension)(nil)
	_ plugin.OnSessionsPurged    = (*MetricsExtension)(nil)
	_ plugin.OnPackageCredited   = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded     = (*MetricsExtension)(nil)
	_ plugin.OnOrphanPayment     = (*MetricsExtension)(nil)
	_ plugin.OnDispatched        = (*MetricsExtension)(nil)
	_ plugin.OnDispatchFailed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an Arcana plugin to automatically track funnel metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Session metrics
	SessionsOpened     Counter
	SessionsSuperseded Counter
	SessionsPurged     Counter

	// Settlement metrics
	SettledFreeTrial  Counter
	SettledQuickQuota Counter
	SettledBalance    Counter
	SettledPaid       Counter
	InvoicesRequested Counter
	PackagesCredited  Counter
	PackageCredits    Histogram

	// Anomaly metrics
	OrphanPayments Counter
	QuotaExceeded  Counter

	// Dispatch metrics
	ReadingsDispatched Counter
	DispatchFailures   Counter
	SpreadSize         Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Session metrics
		SessionsOpened:     factory.Counter("arcana.session.opened"),
		SessionsSuperseded: factory.Counter("arcana.session.superseded"),
		SessionsPurged:     factory.Counter("arcana.session.purged"),

		// Settlement metrics
		SettledFreeTrial:  factory.Counter("arcana.settled.free_trial"),
		SettledQuickQuota: factory.Counter("arcana.settled.quick_quota"),
		SettledBalance:    factory.Counter("arcana.settled.balance"),
		SettledPaid:       factory.Counter("arcana.settled.paid"),
		InvoicesRequested: factory.Counter("arcana.invoice.requested"),
		PackagesCredited:  factory.Counter("arcana.package.credited"),
		PackageCredits:    factory.Histogram("arcana.package.credits"),

		// Anomaly metrics
		OrphanPayments: factory.Counter("arcana.payment.orphaned"),
		QuotaExceeded:  factory.Counter("arcana.quota.exceeded"),

		// Dispatch metrics
		ReadingsDispatched: factory.Counter("arcana.reading.dispatched"),
		DispatchFailures:   factory.Counter("arcana.reading.dispatch_failed"),
		SpreadSize:         factory.Histogram("arcana.reading.spread_size"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionOpened implements plugin.OnSessionOpened.
func (m *MetricsExtension) OnSessionOpened(_ context.Context, _ *session.Session) error {
	m.SessionsOpened.Inc()
	return nil
}

// OnSessionSuperseded implements plugin.OnSessionSuperseded.
func (m *MetricsExtension) OnSessionSuperseded(_ context.Context, _, _ *session.Session) error {
	m.SessionsSuperseded.Inc()
	return nil
}

// OnSessionsPurged implements plugin.OnSessionsPurged.
func (m *MetricsExtension) OnSessionsPurged(_ context.Context, purged []*session.Session) error {
	m.SessionsPurged.Add(float64(len(purged)))
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettled implements plugin.OnSettled.
func (m *MetricsExtension) OnSettled(_ context.Context, sess *session.Session) error {
	switch sess.Method {
	case entitlement.MethodFreeTrial:
		m.SettledFreeTrial.Inc()
	case entitlement.MethodQuickQuota:
		m.SettledQuickQuota.Inc()
	case entitlement.MethodBalance:
		m.SettledBalance.Inc()
	case entitlement.MethodPaid:
		m.SettledPaid.Inc()
	}
	return nil
}

// OnInvoiceRequested implements plugin.OnInvoiceRequested.
func (m *MetricsExtension) OnInvoiceRequested(_ context.Context, _ *session.Session) error {
	m.InvoicesRequested.Inc()
	return nil
}

// OnPackageCredited implements plugin.OnPackageCredited.
func (m *MetricsExtension) OnPackageCredited(_ context.Context, _ *entitlement.Entitlement, credits int) error {
	m.PackagesCredited.Inc()
	m.PackageCredits.Observe(float64(credits))
	return nil
}

// ──────────────────────────────────────────────────
// Anomaly hooks
// ──────────────────────────────────────────────────

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ string, _, _ int) error {
	m.QuotaExceeded.Inc()
	return nil
}

// OnOrphanPayment implements plugin.OnOrphanPayment.
func (m *MetricsExtension) OnOrphanPayment(_ context.Context, _ *session.Payment) error {
	m.OrphanPayments.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// OnDispatched implements plugin.OnDispatched.
func (m *MetricsExtension) OnDispatched(_ context.Context, r *reading.Reading) error {
	m.ReadingsDispatched.Inc()
	m.SpreadSize.Observe(float64(len(r.Spread.Cards)))
	return nil
}

// OnDispatchFailed implements plugin.OnDispatchFailed.
func (m *MetricsExtension) OnDispatchFailed(_ context.Context, _ *session.Session, _ error) error {
	m.DispatchFailures.Inc()
	return nil
}
