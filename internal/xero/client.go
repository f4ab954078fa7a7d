// Package xero is the read-side client for the accounting API.
//
// Every call needs two things resolved first: a currently-valid bearer
// credential (delegated to the credential manager via CredentialSource)
// and the tenant the data belongs to. The tenant is looked up once per
// session from the connections endpoint and sent as a header on every
// subsequent request.
//
// This client never writes to the ledger — reconciliation only proposes
// updates, it does not apply them.
package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/membersync/internal/apperror"
	"github.com/sakif/membersync/internal/model"
)

const (
	// DefaultBaseURL is the accounting API's public host.
	DefaultBaseURL = "https://api.xero.com"

	// DefaultPageSize is the contacts page size. The API caps pages, so
	// the fetch loops until the reported page count is reached.
	DefaultPageSize = 1000

	tenantHeader = "Xero-tenant-id"
)

// CredentialSource supplies a valid bearer credential for each request.
// *auth.Manager satisfies this.
type CredentialSource interface {
	GetValidCredential(ctx context.Context) (*model.Credential, error)
}

// Client talks to the accounting API for one session.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    CredentialSource
	logger   *slog.Logger
	pageSize int

	// tenant is resolved lazily by Tenant() and cached for the session.
	tenant *model.Tenant
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different host (tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithPageSize overrides the contacts page size.
func WithPageSize(size int) Option {
	return func(c *Client) { c.pageSize = size }
}

// NewClient creates a Client backed by the given credential source.
func NewClient(creds CredentialSource, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		http:     http.DefaultClient,
		creds:    creds,
		logger:   logger,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tenant resolves the session's tenant from the connections endpoint.
// The first connection wins — this tool is single-tenant by design. The
// result is cached; subsequent calls are free.
func (c *Client) Tenant(ctx context.Context) (*model.Tenant, error) {
	if c.tenant != nil {
		return c.tenant, nil
	}

	var tenants []model.Tenant
	if err := c.get(ctx, "/connections", nil, false, &tenants); err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, fmt.Errorf("xero: no tenant connections for this credential")
	}

	c.tenant = &tenants[0]
	c.logger.Info("resolved tenant",
		slog.String("tenantID", c.tenant.TenantID),
		slog.String("tenantName", c.tenant.TenantName),
	)
	return c.tenant, nil
}

// ContactGroups fetches the active contact groups.
func (c *Client) ContactGroups(ctx context.Context) ([]model.ContactGroup, error) {
	params := url.Values{"Statuses": {model.ContactStatusActive}}

	var body struct {
		ContactGroups []model.ContactGroup `json:"ContactGroups"`
	}
	if err := c.get(ctx, "/api.xro/2.0/ContactGroups", params, true, &body); err != nil {
		return nil, err
	}
	return body.ContactGroups, nil
}

// Contacts fetches the full active contact list, page by page.
//
// PAGINATION CONTRACT:
// Pages are sequential — each page's response reports the total page
// count, and the loop continues until that count is reached. The fetch
// always restarts from page 1; there is no partial-fetch resume across
// runs. Any page failing aborts the whole fetch and the pages already
// fetched are discarded: a partial contact list presented as complete
// would silently misclassify every missing contact as New.
func (c *Client) Contacts(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	page, pageCount := 0, 1

	for page < pageCount {
		page++
		params := url.Values{
			"Statuses":    {model.ContactStatusActive},
			"SummaryOnly": {"True"},
			"PageSize":    {strconv.Itoa(c.pageSize)},
			"Page":        {strconv.Itoa(page)},
		}

		var body struct {
			Pagination struct {
				Page      int `json:"page"`
				PageSize  int `json:"pageSize"`
				PageCount int `json:"pageCount"`
				ItemCount int `json:"itemCount"`
			} `json:"pagination"`
			Contacts []model.Contact `json:"Contacts"`
		}
		if err := c.get(ctx, "/api.xro/2.0/Contacts", params, true, &body); err != nil {
			return nil, err
		}

		pageCount = body.Pagination.PageCount
		contacts = append(contacts, body.Contacts...)

		c.logger.Debug("fetched contacts page",
			slog.Int("page", page),
			slog.Int("pageCount", pageCount),
			slog.Int("contacts", len(body.Contacts)),
		)
	}
	return contacts, nil
}

// get performs an authenticated GET and decodes the JSON response into
// out. withTenant additionally resolves and attaches the tenant header —
// everything except the connections lookup itself needs it.
func (c *Client) get(ctx context.Context, path string, params url.Values, withTenant bool, out any) error {
	cred, err := c.creds.GetValidCredential(ctx)
	if err != nil {
		return fmt.Errorf("xero: obtaining credential: %w", err)
	}

	var tenantID string
	if withTenant {
		tenant, err := c.Tenant(ctx)
		if err != nil {
			return err
		}
		tenantID = tenant.TenantID
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("xero: building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if tenantID != "" {
		req.Header.Set(tenantHeader, tenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("xero: calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperror.ExternalAPI(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("xero: decoding %s response: %w", path, err)
	}
	return nil
}
