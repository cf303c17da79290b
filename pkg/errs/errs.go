package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed or incomplete input. It is never retried
// automatically; the caller must fix the named fields.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func NewValidation(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ConflictError reports a concurrent mutation of the same subject or request.
// The caller should reload state and retry deliberately.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("conflict on %s", e.Resource)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Detail)
}

func NewConflict(resource, detail string) *ConflictError {
	return &ConflictError{Resource: resource, Detail: detail}
}

// TimeoutError reports an external call that exceeded its budget. Retryable;
// it is never a definitive negative result.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Budget)
}

// ProviderError reports an upstream provider failure. Retryable after backoff
// or via the next provider in the failover chain.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AllProvidersExhaustedError reports that every enabled provider for a
// capability failed within a single dispatch.
type AllProvidersExhaustedError struct {
	Capability string
	Attempts   int
}

func (e *AllProvidersExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted for capability %s", e.Attempts, e.Capability)
}

// IncompleteDocumentsError is the business-rule gate on certificate
// submission. Missing names every required slot still empty so the caller
// knows exactly what to supply.
type IncompleteDocumentsError struct {
	Missing []string
}

func (e *IncompleteDocumentsError) Error() string {
	return fmt.Sprintf("missing required documents: %s", strings.Join(e.Missing, ", "))
}

// AuthorityRejectionError is terminal for the request it concerns. A new
// request must be created to try again.
type AuthorityRejectionError struct {
	Reason string
}

func (e *AuthorityRejectionError) Error() string {
	return fmt.Sprintf("rejected by certification authority: %s", e.Reason)
}

// IsRetryable reports whether an error represents a transient condition the
// caller may retry: timeouts and provider failures. Validation, conflict,
// document-gate and authority-rejection errors are not retryable as-is.
func IsRetryable(err error) bool {
	var te *TimeoutError
	var pe *ProviderError
	var ae *AllProvidersExhaustedError
	return errors.As(err, &te) || errors.As(err, &pe) || errors.As(err, &ae)
}
