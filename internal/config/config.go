// Package config assembles the tool's configuration from the
// environment, with a .env file loaded first when one exists.
//
// Everything has a sensible default except the OAuth client ID, which
// is per-deployment: register an app with the accounting provider and
// set XERO_CLIENT_ID (the app must be a public/PKCE client with the
// local callback URL registered as a redirect URI).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for everything the environment doesn't override.
const (
	DefaultDiscoveryURL = "https://identity.xero.com/.well-known/openid-configuration"
	DefaultScopes       = "openid profile email accounting.contacts offline_access"
	DefaultRedirectPort = 8964
	DefaultCallbackPath = "/callback"
	DefaultDBPath       = "data/membersync.db"
	DefaultMembersFile  = "data/mahi-contacts.csv"
	DefaultOutputDir    = "data"
	DefaultPageSize     = 1000
	DefaultThreshold    = 0.1
)

// Config is the fully resolved configuration.
type Config struct {
	ClientID     string // OAuth client ID (required)
	DiscoveryURL string // OIDC discovery document URL
	Scopes       []string
	RedirectPort int    // loopback port for the callback listener
	CallbackPath string // route the provider redirects to

	DBPath      string // credential store location
	MembersFile string // membership registry CSV export
	OutputDir   string // where the four result CSVs land

	PageSize       int     // contacts page size
	MatchThreshold float64 // name-match acceptance threshold
	CaseFold       bool    // case-insensitive name matching
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present (missing is fine — real
// environments set variables directly).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ClientID:       os.Getenv("XERO_CLIENT_ID"),
		DiscoveryURL:   envOr("XERO_DISCOVERY_URL", DefaultDiscoveryURL),
		Scopes:         strings.Fields(envOr("XERO_SCOPES", DefaultScopes)),
		RedirectPort:   DefaultRedirectPort,
		CallbackPath:   DefaultCallbackPath,
		DBPath:         envOr("MEMBERSYNC_DB_PATH", DefaultDBPath),
		MembersFile:    envOr("MEMBERSYNC_MEMBERS_FILE", DefaultMembersFile),
		OutputDir:      envOr("MEMBERSYNC_OUTPUT_DIR", DefaultOutputDir),
		PageSize:       DefaultPageSize,
		MatchThreshold: DefaultThreshold,
	}

	if v := os.Getenv("MEMBERSYNC_REDIRECT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MEMBERSYNC_REDIRECT_PORT %q: %w", v, err)
		}
		cfg.RedirectPort = port
	}

	if v := os.Getenv("MEMBERSYNC_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return nil, fmt.Errorf("config: invalid MEMBERSYNC_PAGE_SIZE %q", v)
		}
		cfg.PageSize = size
	}

	if v := os.Getenv("MEMBERSYNC_MATCH_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("config: invalid MEMBERSYNC_MATCH_THRESHOLD %q (want 0..1)", v)
		}
		cfg.MatchThreshold = threshold
	}

	if v := os.Getenv("MEMBERSYNC_CASE_FOLD"); v != "" {
		fold, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MEMBERSYNC_CASE_FOLD %q: %w", v, err)
		}
		cfg.CaseFold = fold
	}

	return cfg, nil
}

// RequireClientID fails when no OAuth client ID is configured. Only the
// commands that actually talk to the provider call this — sign-out, for
// one, works without it.
func (c *Config) RequireClientID() error {
	if c.ClientID == "" {
		return fmt.Errorf("config: XERO_CLIENT_ID is not set — register a public (PKCE) app with the provider and set its client ID")
	}
	return nil
}

// RedirectURL is the callback URL the provider redirects to. It must be
// registered verbatim with the provider.
func (c *Config) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", c.RedirectPort, c.CallbackPath)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
