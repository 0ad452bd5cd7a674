package arcana

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("arcana: not found")
	ErrInvalidInput = errors.New("arcana: invalid input")

	// Tier errors
	ErrUnknownTier = errors.New("arcana: unknown tier")

	// Session errors
	ErrSessionNotFound = errors.New("arcana: session not found")
	ErrNoActiveSession = errors.New("arcana: no active session")
	ErrSessionBusy     = errors.New("arcana: session is dispatching")
	ErrSessionExpired  = errors.New("arcana: session expired")
	ErrWrongTier       = errors.New("arcana: payment tier does not match session")

	// Payment errors
	ErrOrphanPayment    = errors.New("arcana: payment without active session")
	ErrDuplicatePayment = errors.New("arcana: payment already recorded")
	ErrAlreadySettled   = errors.New("arcana: session already settled")

	// Entitlement errors
	ErrInsufficientBalance = errors.New("arcana: insufficient balance")
	ErrTrialConsumed       = errors.New("arcana: free trial already used")
	ErrQuotaExceeded       = errors.New("arcana: quick-decision quota exceeded")
	ErrLedgerCommit        = errors.New("arcana: entitlement commit failed")

	// Dispatch errors
	ErrDispatchFailed   = errors.New("arcana: reading dispatch failed")
	ErrQuestionRequired = errors.New("arcana: question required before dispatch")
	ErrQuestionEmpty    = errors.New("arcana: question is empty")

	// Store errors
	ErrStoreNotReady     = errors.New("arcana: store not ready")
	ErrStoreClosed       = errors.New("arcana: store is closed")
	ErrTransactionFailed = errors.New("arcana: transaction failed")
	ErrMigrationFailed   = errors.New("arcana: migration failed")

	// Lifecycle errors
	ErrEngineStopped = errors.New("arcana: engine is stopped")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("arcana: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "arcana: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("arcana: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNoActiveSession)
}

// IsPaymentError returns true if the error relates to payment handling.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrOrphanPayment) ||
		errors.Is(err, ErrDuplicatePayment) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrWrongTier)
}

// IsEntitlementError returns true if the error relates to balances or quotas.
func IsEntitlementError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTrialConsumed) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrLedgerCommit)
}

// IsRetryable returns true if the error is temporary and the whole event can
// be safely redelivered. Dispatch failures are deliberately excluded: the
// entitlement is already consumed, and a retry could double-deliver.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrSessionBusy) ||
		errors.Is(err, ErrLedgerCommit)
}
