package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/membersync/internal/apperror"
	"github.com/sakif/membersync/internal/model"
	"github.com/sakif/membersync/internal/repository"
)

// State is the credential manager's lifecycle state. It exists for
// observability — the transitions are driven entirely by
// GetValidCredential / AuthorizeInteractive / SignOut, never set
// directly by callers.
type State string

const (
	StateNoCredential           State = "no_credential"
	StateValid                  State = "valid"
	StateExpired                State = "expired"
	StateRefreshing             State = "refreshing"
	StateAuthorizingInteractive State = "authorizing_interactive"
)

// Manager orchestrates the credential lifecycle: it decides when a
// stored credential is usable, when to refresh silently, and when the
// user has to go through the interactive authorization flow again.
//
// STATE MACHINE:
//
//	NoCredential → AuthorizingInteractive → Valid   (user completes flow)
//	                                      → NoCredential (cancel/denied/mismatch, error surfaced)
//	Valid        → Expired                           (expiry claim ≤ now)
//	Expired      → Refreshing → Valid                (refresh token accepted, persisted)
//	                          → NoCredential         (refresh token burned, never retried)
//	Expired      → NoCredential                      (no refresh token)
//
// The manager serves one logical flow at a time. Concurrent callers are
// serialized by an internal mutex: whoever arrives second blocks until
// the first outcome is persisted, then reads the now-valid credential
// without touching the network. This matters because the ledger fetches
// run in parallel and both go through GetValidCredential.
type Manager struct {
	store    repository.CredentialStore
	flow     AuthorizationFlow
	provider Provider
	logger   *slog.Logger

	// mu guards state, burned and the store round-trips, so the lifecycle
	// runs one flow at a time even when callers don't.
	mu    sync.Mutex
	state State

	// burned records refresh tokens that failed once within this manager
	// instance. A failed refresh token is never presented again — the
	// provider has rotated or revoked it, and replaying it can trip
	// replay protection on the provider side.
	burned map[string]bool

	now func() time.Time
}

// NewManager wires a Manager from its collaborators.
func NewManager(store repository.CredentialStore, flow AuthorizationFlow, provider Provider, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		flow:     flow,
		provider: provider,
		logger:   logger,
		state:    StateNoCredential,
		burned:   make(map[string]bool),
		now:      time.Now,
	}
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetValidCredential returns a credential whose access token is valid
// strictly beyond now, going through as little ceremony as possible:
//
//  1. A persisted, unexpired credential is returned as-is — zero
//     network calls.
//  2. An expired credential with an (unburned) refresh token is
//     refreshed silently, persisted, and returned.
//  3. Anything else falls through to the full interactive flow.
//
// Every successful path leaves the store holding the returned
// credential. An expired access token is never returned.
//
// Safe for concurrent use: calls are serialized, so two callers hitting
// an expired credential produce ONE refresh grant, not two racing ones.
func (m *Manager) GetValidCredential(ctx context.Context) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.store.Read(ctx)
	if err != nil {
		// A broken store is recoverable here — treat as absent and let
		// the interactive flow repopulate it. The Write at the end will
		// surface the store problem if it persists.
		m.logger.Warn("reading persisted credential", slog.String("error", err.Error()))
		cred = nil
	}

	if cred != nil {
		if !cred.Expired(m.now()) {
			m.state = StateValid
			m.logger.Debug("persisted credential still valid",
				slog.Time("expiresAt", cred.ExpiresAt()),
			)
			return cred, nil
		}
		m.state = StateExpired

		if cred.RefreshToken != "" && !m.burned[cred.RefreshToken] {
			refreshed, err := m.refresh(ctx, cred.RefreshToken)
			if err == nil {
				return refreshed, nil
			}
			m.logger.Warn("silent refresh failed, falling back to interactive authorization",
				slog.String("error", err.Error()),
			)
		} else {
			m.state = StateNoCredential
		}
	}

	return m.authorizeInteractive(ctx)
}

// refresh performs the refresh grant. On failure the refresh token is
// burned and the stale credential cleared — the next attempt starts from
// NoCredential rather than replaying a dead token.
func (m *Manager) refresh(ctx context.Context, refreshToken string) (*model.Credential, error) {
	m.state = StateRefreshing

	cred, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		m.burned[refreshToken] = true
		m.state = StateNoCredential
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("clearing credential after failed refresh", slog.String("error", clearErr.Error()))
		}
		return nil, err
	}

	if cred.Expired(m.now()) {
		// A provider handing back an already-expired token is treated the
		// same as a rejected grant.
		m.burned[refreshToken] = true
		m.state = StateNoCredential
		return nil, apperror.RefreshFailed(fmt.Errorf("provider returned an expired access token"))
	}

	if err := m.store.Write(ctx, cred); err != nil {
		return nil, fmt.Errorf("auth: persisting refreshed credential: %w", err)
	}
	m.state = StateValid
	m.logger.Info("credential refreshed", slog.Time("expiresAt", cred.ExpiresAt()))
	return cred, nil
}

// AuthorizeInteractive runs the full authorization-code flow.
//
// A FRESH verifier and a FRESH state token are generated per invocation
// and never reused — reuse would let a stale authorization response be
// replayed against a later attempt. Failures here surface to the caller
// directly; there is no silent retry, because an unattended loop of
// browser popups is worse than an error message.
func (m *Manager) AuthorizeInteractive(ctx context.Context) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authorizeInteractive(ctx)
}

// authorizeInteractive is the flow body; callers hold mu.
func (m *Manager) authorizeInteractive(ctx context.Context) (*model.Credential, error) {
	m.state = StateAuthorizingInteractive
	// Any exit that doesn't reach StateValid leaves us credential-less.
	defer func() {
		if m.state != StateValid {
			m.state = StateNoCredential
		}
	}()

	verifier := oauth2.GenerateVerifier()
	state := xid.New().String()

	authURL, err := m.provider.AuthorizationURL(ctx, state, verifier)
	if err != nil {
		return nil, err
	}

	params, err := m.flow.Present(ctx, authURL)
	if err != nil {
		return nil, err
	}

	// State first — nothing in the response is trusted until the echoed
	// state proves it belongs to THIS attempt.
	if params.State != state {
		return nil, apperror.InvalidState()
	}
	if params.ErrorCode != "" {
		return nil, apperror.AuthorizationDenied(params.ErrorCode)
	}
	if params.Code == "" {
		return nil, fmt.Errorf("auth: redirect carried neither code nor error")
	}

	cred, err := m.provider.Exchange(ctx, params.Code, verifier)
	if err != nil {
		return nil, err
	}

	if err := m.store.Write(ctx, cred); err != nil {
		return nil, fmt.Errorf("auth: persisting credential: %w", err)
	}
	m.state = StateValid

	attrs := []any{slog.Time("expiresAt", cred.ExpiresAt())}
	if name := cred.DisplayName(); name != "" {
		attrs = append(attrs, slog.String("user", name))
	}
	m.logger.Info("authorization complete", attrs...)
	return cred, nil
}

// SignOut clears the persisted credential unconditionally. It is
// idempotent and never fails — a store error is logged and swallowed,
// since there is nothing actionable for the caller.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clearing credential on sign-out", slog.String("error", err.Error()))
	}
	m.state = StateNoCredential
	m.logger.Info("signed out")
}
