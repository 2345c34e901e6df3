// Package errors provides the standardized error taxonomy for the ranking service.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration errors: catalog/config integrity bugs, fatal to the call.
	ErrCodeTaxStateNotFound ErrorCode = "TAX_STATE_NOT_FOUND"
	ErrCodeTaxTableInvalid  ErrorCode = "TAX_TABLE_INVALID"

	// Per-metro data errors: recovered by excluding the metro.
	ErrCodeInvalidMetroData ErrorCode = "INVALID_METRO_DATA"

	// Catalog errors: fatal, surfaced to the caller.
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"

	// Cache errors: never surfaced, always absorbed via the fallback tier.
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	// Request boundary errors.
	ErrCodeRequestValidationFailed ErrorCode = "REQUEST_VALIDATION_FAILED"

	// Natural-language parser errors.
	ErrCodeParseAPIFailed  ErrorCode = "NLPARSE_API_FAILED"
	ErrCodeParseAPITimeout ErrorCode = "NLPARSE_API_TIMEOUT"
	ErrCodeParseBadOutput  ErrorCode = "NLPARSE_BAD_OUTPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTaxStateNotFoundError creates a non-retryable configuration error.
// A missing state in the tax table is a catalog/config integrity bug and
// must abort the whole rank call rather than be silently defaulted.
func NewTaxStateNotFoundError(state string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTaxStateNotFound,
		Message:   "No tax bands configured for state",
		Details:   fmt.Sprintf("state: %s", state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaxTableInvalidError creates a non-retryable configuration error.
func NewTaxTableInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTaxTableInvalid,
		Message:   "Tax band table failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidMetroDataError creates a per-metro data integrity error.
// The caller excludes the metro from the result set and continues.
func NewInvalidMetroDataError(metroID int64, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMetroData,
		Message:   "Stored metro data violates an invariant",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"metroId": metroID},
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogUnavailableError creates a retryable catalog access error.
func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Metro catalog unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache backend error.
// This error never reaches the API boundary; it exists for logging and
// fallback-tier accounting only.
func NewCacheUnavailableError(tier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache backend unreachable",
		Details:   fmt.Sprintf("tier: %s, error: %s", tier, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestValidationFailedError creates a non-retryable request error.
func NewRequestValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestValidationFailed,
		Message:   "Rank request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseAPIFailedError creates a retryable NL parser API error.
func NewParseAPIFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseAPIFailed,
		Message:   "Preference parsing API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseAPITimeoutError creates a retryable NL parser timeout error.
func NewParseAPITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeParseAPITimeout,
		Message:   "Preference parsing API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseBadOutputError creates a non-retryable NL parser output error.
func NewParseBadOutputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseBadOutput,
		Message:   "Preference parsing produced an unusable request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode of err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether err must abort the whole rank call instead of
// excluding a single metro.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTaxStateNotFound, ErrCodeTaxTableInvalid, ErrCodeCatalogUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TAX"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "METRO"):
		return "METRO_DATA"
	case strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NLPARSE"):
		return "AI"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
