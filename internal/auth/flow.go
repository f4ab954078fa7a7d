package auth

import "context"

// CallbackParams are the query parameters carried back on the
// authorization redirect. Exactly one of Code or ErrorCode is normally
// set; State echoes the anti-CSRF token and must be verified by the
// caller before anything else is trusted.
type CallbackParams struct {
	Code      string // authorization code, on success
	State     string // echoed state token
	ErrorCode string // provider error code (e.g. "access_denied"), on failure
}

// AuthorizationFlow presents an authorization URL to the user and
// returns the redirect outcome. The credential manager does not care how
// presentation happens — a local callback listener that opens a browser,
// an embedded web-auth popup, or a test fake all satisfy it equally.
//
// Implementations must honour ctx cancellation: a user abandoning the
// flow must unblock Present, and any resources (listeners in
// particular) must be torn down exactly once on every exit path.
type AuthorizationFlow interface {
	Present(ctx context.Context, authorizationURL string) (CallbackParams, error)
}
