package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ProviderError carries a raw identity-provider error code before normalization.
// Adapters return it; services run it through NormalizeProvider so callers only ever
// see the closed ErrorCode taxonomy.
type ProviderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// providerCodes maps both SDK-style ("auth/...") and REST-style (UPPER_SNAKE) codes.
var providerCodes = map[string]ErrorCode{
	"auth/invalid-credential":           ErrCodeInvalidCredentials,
	"auth/invalid-email":                ErrCodeInvalidCredentials,
	"auth/user-not-found":               ErrCodeInvalidCredentials,
	"auth/wrong-password":               ErrCodeInvalidCredentials,
	"auth/user-disabled":                ErrCodeInvalidCredentials,
	"auth/too-many-requests":            ErrCodeRateLimited,
	"auth/network-request-failed":       ErrCodeNetworkUnavailable,
	"auth/popup-closed-by-user":         ErrCodePopupCancelled,
	"auth/cancelled-popup-request":      ErrCodePopupCancelled,
	"auth/user-cancelled":               ErrCodePopupCancelled,
	"auth/provider-already-linked":      ErrCodeAlreadyLinked,
	"auth/credential-already-in-use":    ErrCodeAlreadyLinked,
	"auth/email-already-in-use":         ErrCodeAlreadyLinked,
	"auth/requires-recent-login":        ErrCodeReauthRequired,
	"auth/user-token-expired":           ErrCodeReauthRequired,
	"INVALID_LOGIN_CREDENTIALS":         ErrCodeInvalidCredentials,
	"INVALID_PASSWORD":                  ErrCodeInvalidCredentials,
	"INVALID_EMAIL":                     ErrCodeInvalidCredentials,
	"EMAIL_NOT_FOUND":                   ErrCodeInvalidCredentials,
	"USER_DISABLED":                     ErrCodeInvalidCredentials,
	"TOO_MANY_ATTEMPTS_TRY_LATER":       ErrCodeRateLimited,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN":    ErrCodeReauthRequired,
	"TOKEN_EXPIRED":                     ErrCodeReauthRequired,
	"INVALID_ID_TOKEN":                  ErrCodeReauthRequired,
	"USER_NOT_FOUND":                    ErrCodeReauthRequired,
	"EMAIL_EXISTS":                      ErrCodeAlreadyLinked,
	"FEDERATED_USER_ID_ALREADY_LINKED":  ErrCodeAlreadyLinked,
	"PROVIDER_ALREADY_LINKED":           ErrCodeAlreadyLinked,
	"CREDENTIAL_ALREADY_IN_USE":         ErrCodeAlreadyLinked,
	"NETWORK_REQUEST_FAILED":            ErrCodeNetworkUnavailable,
	"POPUP_CLOSED_BY_USER":              ErrCodePopupCancelled,
	"USER_CANCELLED":                    ErrCodePopupCancelled,
}

// messages shown for mapped codes; unknown codes keep the provider message.
var codeMessages = map[ErrorCode]string{
	ErrCodeInvalidCredentials: "Invalid email or password",
	ErrCodeRateLimited:        "Too many failed attempts. Please try again later",
	ErrCodeNetworkUnavailable: "Network error. Please check your connection",
	ErrCodePopupCancelled:     "Sign-in was cancelled",
	ErrCodeAlreadyLinked:      "This account already has this sign-in method",
	ErrCodeReauthRequired:     "Please sign in again before retrying this operation",
}

// NormalizeProviderCode strips the human-readable suffix REST errors carry,
// e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account..." -> "TOO_MANY_ATTEMPTS_TRY_LATER".
func NormalizeProviderCode(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.Index(code, " : "); i >= 0 {
		code = code[:i]
	}
	return strings.TrimSpace(code)
}

// FromProviderCode maps a raw provider error code into the closed taxonomy.
func FromProviderCode(code, message string) *AppError {
	normalized := NormalizeProviderCode(code)
	mapped, ok := providerCodes[normalized]
	if !ok {
		if message == "" {
			message = code
		}
		return &AppError{
			Code:    ErrCodeUnknown,
			Message: message,
			Cause:   &ProviderError{Code: code, Message: message},
		}
	}
	return &AppError{
		Code:    mapped,
		Message: codeMessages[mapped],
		Cause:   &ProviderError{Code: normalized, Message: message},
	}
}

// NormalizeProvider converts any error returned by an identity provider adapter into an AppError.
// AppErrors pass through untouched; transport failures become NetworkUnavailable.
func NormalizeProvider(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		mapped := FromProviderCode(provErr.Code, provErr.Message)
		if provErr.Cause != nil {
			mapped.Cause = provErr
		}
		return mapped
	}

	if isTransportError(err) {
		return &AppError{
			Code:    ErrCodeNetworkUnavailable,
			Message: codeMessages[ErrCodeNetworkUnavailable],
			Cause:   err,
		}
	}

	return Unknown(err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
