// Package errors provides structured error handling for Lantern.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Document and validation errors
//   - 3XX: Engine transport errors (retryable)
//   - 4XX: Engine server errors
//   - 5XX: Source system and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryDocument indicates malformed or invalid documents.
	CategoryDocument Category = "DOCUMENT"
	// CategoryTransport indicates engine connection failures.
	CategoryTransport Category = "TRANSPORT"
	// CategoryEngine indicates server-side engine failures.
	CategoryEngine Category = "ENGINE"
	// CategoryInternal indicates source-system and internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Document errors (200-299)
	ErrCodeMalformedDocument = "ERR_201_MALFORMED_DOCUMENT"
	ErrCodeInvalidQuery      = "ERR_202_INVALID_QUERY"

	// Engine transport errors (300-399)
	ErrCodeEngineUnreachable = "ERR_301_ENGINE_UNREACHABLE"
	ErrCodeEngineTimeout     = "ERR_302_ENGINE_TIMEOUT"

	// Engine server errors (400-499)
	ErrCodeEngineServer   = "ERR_401_ENGINE_SERVER"
	ErrCodeSchemaInvalid  = "ERR_402_SCHEMA_INVALID"
	ErrCodeEngineNotReady = "ERR_403_ENGINE_NOT_READY"

	// Source system and internal errors (500-599)
	ErrCodeAccessCheckFailure = "ERR_501_ACCESS_CHECK_FAILURE"
	ErrCodeProviderFailure    = "ERR_502_PROVIDER_FAILURE"
	ErrCodeInternal           = "ERR_503_INTERNAL"
	ErrCodeLockHeld           = "ERR_504_LOCK_HELD"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryDocument
	case '3':
		return CategoryTransport
	case '4':
		return CategoryEngine
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeAccessCheckFailure:
		// A failing access check skips one result, nothing more.
		return SeverityWarning
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid, ErrCodeSchemaInvalid:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code may
// be retried by the caller. Lantern itself never auto-retries.
func isRetryableCode(code string) bool {
	return categoryFromCode(code) == CategoryTransport
}
