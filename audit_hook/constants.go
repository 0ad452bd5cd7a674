package audithook

// Action constants for audit events.
const (
	// Session actions
	ActionSessionOpened     = "session.opened"
	ActionSessionSuperseded = "session.superseded"
	ActionSessionSettled    = "session.settled"
	ActionSessionsPurged    = "session.purged"

	// Payment actions
	ActionInvoiceRequested = "invoice.requested"
	ActionPackageCredited  = "package.credited"
	ActionOrphanPayment    = "payment.orphaned"

	// Entitlement actions
	ActionQuotaExceeded = "quota.exceeded"

	// Dispatch actions
	ActionReadingDispatched = "reading.dispatched"
	ActionDispatchFailed    = "reading.dispatch_failed"
)

// Resource constants for audit events.
const (
	ResourceSession     = "session"
	ResourcePayment     = "payment"
	ResourceEntitlement = "entitlement"
	ResourceReading     = "reading"
)

// Category constants for audit events.
const (
	CategorySession  = "session"
	CategoryPayment  = "payment"
	CategoryAccess   = "access"
	CategoryDispatch = "dispatch"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
