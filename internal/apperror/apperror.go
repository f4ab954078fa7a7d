// Package apperror defines the application's error taxonomy.
//
// Each failure class gets a sentinel error so callers can branch with
// errors.Is() without string matching, plus a constructor that attaches
// the context a human needs (provider error code, row position, HTTP
// status).
//
// PROPAGATION POLICY:
//   - Refresh and persisted-credential failures are recoverable: the
//     credential manager falls back to a fresh interactive authorization.
//   - Failures DURING interactive authorization surface to the caller
//     directly — silently retrying would loop the user through popups.
//   - A malformed membership row is fatal for that row only; the batch
//     continues and rejected rows are reported alongside the results.
//   - An API error mid-pagination aborts the fetch; partial pages are
//     discarded, never presented as a complete result.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorizationDenied — the provider returned an error parameter on
	// the redirect (user declined, or a provider-side failure).
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrInvalidState — the state returned on the redirect does not match
	// the one generated for this authorization attempt.
	ErrInvalidState = errors.New("invalid authorization state")

	// ErrTokenExchange — the code-for-credential exchange failed.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrRefreshFailed — the refresh grant was rejected. The refresh token
	// involved is burned and must not be retried.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrMalformedRecord — a membership row is missing the fields required
	// for matching.
	ErrMalformedRecord = errors.New("malformed membership record")

	// ErrExternalAPI — the accounting API returned a non-2xx response.
	ErrExternalAPI = errors.New("external API error")

	// ErrAuthorizationCancelled — the user abandoned the interactive flow
	// (context cancelled or listener timed out before the redirect).
	ErrAuthorizationCancelled = errors.New("authorization cancelled")
)

// AppError wraps a sentinel with human-readable context.
type AppError struct {
	Err     error  // underlying sentinel, matched with errors.Is
	Message string // human-readable error message
	Code    string // provider error code, for ErrAuthorizationDenied
	Row     int    // 1-based row position, for ErrMalformedRecord
	Status  int    // HTTP status, for ErrExternalAPI
	Body    string // response body, for ErrExternalAPI
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AuthorizationDenied reports a provider error on the authorization
// redirect, carrying the provider's error code (e.g. "access_denied").
func AuthorizationDenied(code string) *AppError {
	return &AppError{
		Err:     ErrAuthorizationDenied,
		Code:    code,
		Message: fmt.Sprintf("authorization denied by provider: %s", code),
	}
}

// InvalidState reports a state mismatch on the authorization redirect.
// The expected/got values are deliberately not echoed into the message —
// the state token should not end up in logs.
func InvalidState() *AppError {
	return &AppError{
		Err:     ErrInvalidState,
		Message: "authorization response state does not match request",
	}
}

// TokenExchange reports a failed code-for-credential exchange.
func TokenExchange(err error) *AppError {
	return &AppError{
		Err:     ErrTokenExchange,
		Message: fmt.Sprintf("exchanging authorization code: %v", err),
	}
}

// RefreshFailed reports a rejected refresh grant.
func RefreshFailed(err error) *AppError {
	return &AppError{
		Err:     ErrRefreshFailed,
		Message: fmt.Sprintf("refreshing credential: %v", err),
	}
}

// MalformedRecord reports a membership row that cannot be classified.
// row is the 1-based position within the input (header row excluded).
func MalformedRecord(row int, reason string) *AppError {
	return &AppError{
		Err:     ErrMalformedRecord,
		Row:     row,
		Message: fmt.Sprintf("membership row %d: %s", row, reason),
	}
}

// ExternalAPI reports a non-2xx response from the accounting API,
// preserving status and body for diagnosis.
func ExternalAPI(status int, body string) *AppError {
	return &AppError{
		Err:     ErrExternalAPI,
		Status:  status,
		Body:    body,
		Message: fmt.Sprintf("accounting API returned status %d", status),
	}
}

// Cancelled reports an abandoned interactive authorization.
func Cancelled(reason string) *AppError {
	return &AppError{
		Err:     ErrAuthorizationCancelled,
		Message: fmt.Sprintf("authorization cancelled: %s", reason),
	}
}
