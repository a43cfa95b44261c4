package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeTaxonomyLoad    = "TAXONOMY_LOAD_FAILED"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeRecordSkipped   = "RECORD_SKIPPED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternal        = "INTERNAL_ERROR"

	// Resolution-service error codes.
	ErrCodeResolverFailure     = "RESOLVER_FAILURE"
	ErrCodeResolverAuthFailure = "RESOLVER_AUTH_FAILURE"
	ErrCodeResolverRateLimited = "RESOLVER_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ExtractError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
