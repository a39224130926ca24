package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
//
// The first block is the closed taxonomy surfaced to callers of the session,
// profile and credential services. The second block is used internally by the
// storage adapters and collapses into the first block before leaving a service.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials covers bad email/password pairs, disabled accounts and equivalents.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeRateLimited indicates too many failed attempts.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeNetworkUnavailable indicates a transport-level failure talking to the identity provider.
	ErrCodeNetworkUnavailable ErrorCode = "network_unavailable"
	// ErrCodePopupCancelled indicates the user aborted a federated sign-in flow.
	ErrCodePopupCancelled ErrorCode = "popup_cancelled"
	// ErrCodeAlreadyLinked indicates a credential-linking conflict.
	ErrCodeAlreadyLinked ErrorCode = "already_linked"
	// ErrCodeReauthRequired indicates the provider demands a fresh sign-in before a sensitive operation.
	ErrCodeReauthRequired ErrorCode = "reauth_required"
	// ErrCodeBackendUnavailable indicates the profile or billing backend is unreachable or erroring.
	ErrCodeBackendUnavailable ErrorCode = "backend_unavailable"
	// ErrCodeUnknown is a passthrough for anything unmapped; Message keeps the original text.
	ErrCodeUnknown ErrorCode = "unknown"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data or a request rejected by policy.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeInternal indicates a logic defect.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// BackendUnavailable wraps a profile/billing backend failure.
func BackendUnavailable(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeBackendUnavailable,
		Message: message,
		Cause:   err,
	}
}

// Unknown wraps an unmapped failure, keeping the original message visible.
func Unknown(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
		Cause:   err,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if any AppError in err's tree carries code, including every branch of a
// joined error.
func isCode(err error, code ErrorCode) bool {
	return walk(err, func(appErr *AppError) bool { return appErr.Code == code })
}

// walk visits err and its causes depth-first, stopping when fn returns true.
func walk(err error, fn func(*AppError) bool) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr != nil && fn(appErr) {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				if walk(e, fn) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return false
		}
	}
	return false
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool {
	return isCode(err, ErrCodeRateLimited)
}

// IsNetworkUnavailable checks if an error is a NetworkUnavailable error.
func IsNetworkUnavailable(err error) bool {
	return isCode(err, ErrCodeNetworkUnavailable)
}

// IsPopupCancelled checks if an error is a PopupCancelled error.
func IsPopupCancelled(err error) bool {
	return isCode(err, ErrCodePopupCancelled)
}

// IsAlreadyLinked checks if an error is an AlreadyLinked error.
func IsAlreadyLinked(err error) bool {
	return isCode(err, ErrCodeAlreadyLinked)
}

// IsReauthRequired checks if an error is a ReauthRequired error.
func IsReauthRequired(err error) bool {
	return isCode(err, ErrCodeReauthRequired)
}

// IsBackendUnavailable checks if an error is a BackendUnavailable error.
func IsBackendUnavailable(err error) bool {
	return isCode(err, ErrCodeBackendUnavailable)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
