// Package auth implements the credential lifecycle for the accounting
// API: interactive OAuth2 authorization with PKCE, silent refresh,
// durable persistence, and expiry detection.
//
// AUTHORIZATION CODE FLOW WITH PKCE:
//  1. Generate a random code verifier and derive its S256 challenge.
//  2. Send the user to the provider's authorization endpoint with the
//     challenge (plus a random anti-CSRF state token).
//  3. The provider redirects back with a short-lived code.
//  4. Exchange the code AND the original verifier for tokens.
//
// The verifier never leaves this process, so an attacker who intercepts
// the authorization code cannot complete the exchange — that is the
// whole point of PKCE, and why no client secret is needed.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/membersync/internal/apperror"
	"github.com/sakif/membersync/internal/model"
)

// Provider performs the provider-side steps of the flow: building the
// authorization URL and exchanging grants for credentials. The manager
// owns the verifier/state generation and the policy around when to call
// what.
type Provider interface {
	// AuthorizationURL builds the URL the user must visit, embedding
	// response_type=code, the requested scopes, the S256 challenge
	// derived from verifier, and the anti-CSRF state.
	AuthorizationURL(ctx context.Context, state, verifier string) (string, error)

	// Exchange trades an authorization code plus the PKCE verifier for a
	// credential. This is the only path that yields a guaranteed-fresh
	// refresh token.
	Exchange(ctx context.Context, code, verifier string) (*model.Credential, error)

	// Refresh trades a refresh token for a new credential.
	Refresh(ctx context.Context, refreshToken string) (*model.Credential, error)
}

// Discovery lazily resolves the provider's OIDC discovery document into
// OAuth2 endpoints. Resolution happens once per process lifetime
// (sync.Once) — the endpoints of an identity provider do not move during
// a run, and the only invalidation point is a process restart.
type Discovery struct {
	url    string
	client *http.Client

	once     sync.Once
	endpoint oauth2.Endpoint
	err      error
}

// NewDiscovery creates a Discovery for the given well-known
// configuration URL. httpClient may be nil to use http.DefaultClient.
func NewDiscovery(url string, httpClient *http.Client) *Discovery {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Discovery{url: url, client: httpClient}
}

// Endpoint returns the discovered authorization and token endpoints,
// fetching the discovery document on first use.
func (d *Discovery) Endpoint(ctx context.Context) (oauth2.Endpoint, error) {
	d.once.Do(func() {
		d.endpoint, d.err = d.fetch(ctx)
	})
	return d.endpoint, d.err
}

func (d *Discovery) fetch(ctx context.Context) (oauth2.Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("auth: building discovery request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("auth: fetching discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauth2.Endpoint{}, fmt.Errorf("auth: discovery endpoint returned status %d", resp.StatusCode)
	}

	// The discovery document is large; we only need the two endpoints.
	var doc struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
		TokenEndpoint         string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("auth: decoding discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return oauth2.Endpoint{}, fmt.Errorf("auth: discovery document missing endpoints")
	}

	return oauth2.Endpoint{
		AuthURL:  doc.AuthorizationEndpoint,
		TokenURL: doc.TokenEndpoint,
	}, nil
}

// OIDCProvider is the production Provider, built on golang.org/x/oauth2.
// It is a public OAuth client: no client secret, PKCE only.
type OIDCProvider struct {
	clientID    string
	redirectURL string
	scopes      []string
	discovery   *Discovery
	now         func() time.Time
}

var _ Provider = (*OIDCProvider)(nil)

// NewOIDCProvider creates a provider for the given client registration.
func NewOIDCProvider(clientID, redirectURL string, scopes []string, discovery *Discovery) *OIDCProvider {
	return &OIDCProvider{
		clientID:    clientID,
		redirectURL: redirectURL,
		scopes:      scopes,
		discovery:   discovery,
		now:         time.Now,
	}
}

// config assembles the oauth2.Config against the discovered endpoints.
func (p *OIDCProvider) config(ctx context.Context) (*oauth2.Config, error) {
	endpoint, err := p.discovery.Endpoint(ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Config{
		ClientID:    p.clientID,
		RedirectURL: p.redirectURL,
		Scopes:      p.scopes,
		Endpoint:    endpoint,
	}, nil
}

// AuthorizationURL builds the authorization request URL.
// oauth2.S256ChallengeOption hashes the verifier and attaches both
// code_challenge and code_challenge_method=S256.
func (p *OIDCProvider) AuthorizationURL(ctx context.Context, state, verifier string) (string, error) {
	cfg, err := p.config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange implements the code-for-credential exchange, presenting the
// PKCE verifier that matches the challenge sent on the authorization
// request.
func (p *OIDCProvider) Exchange(ctx context.Context, code, verifier string) (*model.Credential, error) {
	cfg, err := p.config(ctx)
	if err != nil {
		return nil, err
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperror.TokenExchange(err)
	}
	return p.credentialFromToken(token), nil
}

// Refresh implements the refresh grant. Callers must treat the refresh
// token as burned on failure — the provider may have rotated or revoked
// it, and replaying it buys nothing.
func (p *OIDCProvider) Refresh(ctx context.Context, refreshToken string) (*model.Credential, error) {
	cfg, err := p.config(ctx)
	if err != nil {
		return nil, err
	}

	// TokenSource with only a refresh token forces a refresh grant on the
	// first Token() call.
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, apperror.RefreshFailed(err)
	}
	return p.credentialFromToken(token), nil
}

// credentialFromToken maps the oauth2 token response onto our persisted
// credential shape.
func (p *OIDCProvider) credentialFromToken(token *oauth2.Token) *model.Credential {
	cred := &model.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
		IssuedAt:     p.now(),
	}
	if cred.ExpiresIn == 0 && !token.Expiry.IsZero() {
		cred.ExpiresIn = int64(time.Until(token.Expiry) / time.Second)
	}
	// OIDC providers attach the identity token as an extra field.
	if idToken, ok := token.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	return cred
}
