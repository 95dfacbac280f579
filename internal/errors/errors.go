package errors

import (
	"errors"
	"fmt"
)

// LanternError is the structured error type for Lantern.
// It carries a stable code, classification, and key-value context for
// logging and for the propagation decisions in the indexing pipeline.
type LanternError struct {
	// Code is the unique error code (e.g. "ERR_301_ENGINE_UNREACHABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Document, Transport, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *LanternError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LanternError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *LanternError) Is(target error) bool {
	if t, ok := target.(*LanternError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *LanternError) WithDetail(key, value string) *LanternError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new LanternError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LanternError {
	return &LanternError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Code returns the code of err if it is a LanternError, or "" otherwise.
func Code(err error) string {
	var le *LanternError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsRetryable reports whether err (anywhere in its chain) is retryable.
func IsRetryable(err error) bool {
	var le *LanternError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// IsEngineUnreachable reports a client-side connection or timeout failure.
// These abort the remainder of an indexing batch.
func IsEngineUnreachable(err error) bool {
	return categoryOf(err) == CategoryTransport
}

// IsEngineServer reports a server-side rejection (bad query, schema
// mismatch). These are isolated per document and never abort a batch.
func IsEngineServer(err error) bool {
	return categoryOf(err) == CategoryEngine
}

// IsMalformedDocument reports a document that failed export validation.
func IsMalformedDocument(err error) bool {
	return Code(err) == ErrCodeMalformedDocument
}

func categoryOf(err error) Category {
	var le *LanternError
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}
