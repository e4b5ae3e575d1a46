// Package apperr provides structured error handling for the market-intel
// service. It defines error types with codes, messages, causes, and
// contextual information so failures can be classified at package
// boundaries without string matching.
package apperr

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrorCode represents a categorized error type for structured error handling.
type ErrorCode string

// Error code constants for categorizing application errors.
const (
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimit   ErrorCode = "RATE_LIMIT_ERROR"
	ErrCodeAuth        ErrorCode = "AUTH_ERROR"
	ErrCodeUpstream    ErrorCode = "UPSTREAM_ERROR"
	ErrCodeTimeout     ErrorCode = "TIMEOUT_ERROR"
	ErrCodeSchema      ErrorCode = "SCHEMA_ERROR"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE_ERROR"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error with code, message,
// cause, and context. It implements the error interface and supports
// error unwrapping.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a string representation of the AppError.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ValidationError creates an AppError for input validation failures.
func ValidationError(message string, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Context: context,
	}
}

// RateLimitError creates an AppError for provider rate limit violations.
func RateLimitError(message string, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimit,
		Message: message,
		Context: context,
	}
}

// AuthError creates an AppError for credential rejections. Adapters treat
// these as sticky: the provider stays disabled until restart.
func AuthError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeAuth,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// UpstreamError creates an AppError for external API call failures.
func UpstreamError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeUpstream,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// TimeoutError creates an AppError for timeout-related failures.
func TimeoutError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// SchemaError creates an AppError for provider payloads that do not match
// the expected shape. The offending record is dropped; siblings survive.
func SchemaError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeSchema,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// UnavailableError creates an AppError for optional collaborators that are
// not configured or not reachable (reranker, archive, outbox).
func UnavailableError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeUnavailable,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// InternalError creates an AppError for unclassified failures.
func InternalError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Non-AppError chains report ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	return CodeOf(err) == ErrCodeAuth
}

// IsRateLimit reports whether err is a provider rate limit violation.
func IsRateLimit(err error) bool {
	return CodeOf(err) == ErrCodeRateLimit
}

// IsTransient reports whether err should be swallowed at the adapter
// boundary and surfaced as an empty result.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case ErrCodeUpstream, ErrCodeTimeout, ErrCodeRateLimit, ErrCodeUnavailable:
		return true
	}
	return false
}

// LogError logs an AppError with structured logging and context.
func LogError(logger *slog.Logger, err error, operation string) {
	if logger == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []interface{}{
			"operation", operation,
			"error_code", string(appErr.Code),
			"error_message", appErr.Message,
		}

		if appErr.Context != nil {
			for key, value := range appErr.Context {
				args = append(args, key, value)
			}
		}

		if appErr.Cause != nil {
			args = append(args, "cause", appErr.Cause.Error())
		}

		logger.Error("application error occurred", args...)
		return
	}

	logger.Error("unknown error occurred",
		"operation", operation,
		"error", err.Error(),
	)
}
