// Package errors defines the alerting error taxonomy and re-exports the
// standard library helpers so callers need a single import.
package errors

import (
	stderrors "errors"
)

// Sentinel errors for the alerting pipeline. Callers test with Is.
var (
	// ErrRuleValidation marks a rule rejected at create/update time.
	ErrRuleValidation = stderrors.New("rule validation failed")

	// ErrDuplicateSuppressed marks an alert folded by deduplication.
	// Counted in metrics and stored with status suppressed for audit.
	ErrDuplicateSuppressed = stderrors.New("duplicate alert suppressed")

	// ErrDeliveryFailure marks a per-channel delivery failure. Retried.
	ErrDeliveryFailure = stderrors.New("delivery failed")

	// ErrEscalationMaxLevel marks an alert that exhausted escalation levels.
	// Logged as a warning; the alert remains active.
	ErrEscalationMaxLevel = stderrors.New("escalation max level reached")

	// ErrNotFound marks a missing entity in the datastore.
	ErrNotFound = stderrors.New("not found")
)

// New returns an error with the given text.
func New(text string) error { return stderrors.New(text) }

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree matching target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join wraps the given errors into one.
func Join(errs ...error) error { return stderrors.Join(errs...) }
