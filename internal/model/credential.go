package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the bearer credential issued by the identity provider
// after a successful authorization-code or refresh exchange.
//
// The JSON tags match the token endpoint's response body, which is also
// the shape we persist to the credential store — a credential written by
// one process run is readable by the next.
//
// LIFECYCLE:
//  1. Created by AuthorizeInteractive (code exchange) or a refresh grant
//  2. Persisted to the CredentialStore
//  3. Read back and expiry-checked on every operation needing API access
//  4. Cleared on explicit sign-out or irrecoverable refresh failure
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"` // declared lifetime in seconds

	// IssuedAt is recorded locally when the credential is obtained. It is
	// only consulted when the access token carries no decodable expiry
	// claim of its own.
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiresAt returns the instant the access token stops being usable.
//
// The provider's access tokens are JWTs with an embedded "exp" claim, and
// that claim is authoritative: the provider may reissue tokens with
// different lifetimes, and the embedded claim is immune to local clock
// drift on the recorded issue time. We decode WITHOUT verifying the
// signature — we are the token's audience, not its validator, and we only
// need the timestamp.
//
// If the token is not a JWT or carries no exp claim, fall back to
// IssuedAt + ExpiresIn. A zero return means no expiry could be derived at
// all; callers treat that as already expired.
func (c *Credential) ExpiresAt() time.Time {
	if c.AccessToken != "" {
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims); err == nil {
			if claims.ExpiresAt != nil {
				return claims.ExpiresAt.Time
			}
		}
	}
	if !c.IssuedAt.IsZero() && c.ExpiresIn > 0 {
		return c.IssuedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// Expired reports whether the access token is unusable at the given
// instant. A credential with no access token, or one whose expiry cannot
// be derived, counts as expired — the manager must never hand out a
// token it cannot vouch for.
func (c *Credential) Expired(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return true
	}
	exp := c.ExpiresAt()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now)
}

// DisplayName extracts the signed-in user's display name from the
// identity token, if one was issued. Returns "" when there is no
// identity token or it carries no name claim. Used purely for
// presentation ("signed in as ...").
func (c *Credential) DisplayName() string {
	if c == nil || c.IDToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.IDToken, claims); err != nil {
		return ""
	}
	if name, ok := claims["name"].(string); ok {
		return name
	}
	return ""
}
