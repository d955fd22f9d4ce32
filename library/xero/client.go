// Package xero is a small authenticated client for the Xero accounting API.
package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/Laisky/xero-mcp/library/log"
)

const (
	// DefaultAPIBase is the Xero API host.
	DefaultAPIBase = "https://api.xero.com"
	// DefaultIdentityBase is the Xero identity host issuing access tokens.
	DefaultIdentityBase = "https://identity.xero.com"

	accountingPath = "/api.xro/2.0"
	defaultTimeout = 30 * time.Second
)

// DefaultScopes are requested by custom connections when none are configured.
var DefaultScopes = []string{
	"accounting.transactions",
	"accounting.contacts",
	"accounting.settings",
}

// Config holds the credentials and endpoints of a Client.
//
// Either ClientID and ClientSecret (custom connection) or BearerToken must be set.
type Config struct {
	ClientID     string
	ClientSecret string
	BearerToken  string
	Scopes       []string
	// TenantID pins the tenant; the first connection is used when empty.
	TenantID     string
	APIBase      string
	IdentityBase string
	Timeout      time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(httpcli *http.Client) Option {
	return func(c *Client) {
		c.httpcli = httpcli
	}
}

// WithClock replaces the clock used for token expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// Client is an authenticated handle to the Xero API.
// It is safe for concurrent use; the session is re-acquired on demand.
type Client struct {
	cfg     Config
	httpcli *http.Client
	logger  logSDK.Logger
	clock   func() time.Time

	authGroup singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	tenantID  string
}

// New constructs a Client from cfg.
func New(cfg Config, logger logSDK.Logger, opts ...Option) (*Client, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.BearerToken = strings.TrimSpace(cfg.BearerToken)
	if cfg.BearerToken == "" && (cfg.ClientID == "" || cfg.ClientSecret == "") {
		return nil, errors.New("either bearer token or client id and client secret are required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.IdentityBase == "" {
		cfg.IdentityBase = DefaultIdentityBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.IdentityBase = strings.TrimRight(cfg.IdentityBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Logger.Named("xero")
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpcli == nil {
		httpcli, err := gutils.NewHTTPClient(
			gutils.WithHTTPClientTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new http client")
		}
		httpcli.Transport = otelhttp.NewTransport(httpcli.Transport)
		c.httpcli = httpcli
	}

	return c, nil
}

// TenantID returns the tenant resolved by the last successful Authenticate.
func (c *Client) TenantID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenantID
}

// GetBrandingThemes lists the branding themes of the tenant.
// A nil response means Xero returned no body.
func (c *Client) GetBrandingThemes(ctx context.Context, tenantID string, headers http.Header) (*BrandingThemesResponse, error) {
	var resp *BrandingThemesResponse
	if err := c.doAccounting(ctx, http.MethodGet, "/BrandingThemes", tenantID, headers, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "get branding themes")
	}

	return resp, nil
}

// UpdateContact posts payload to the contact identified by contactID.
// An empty idempotencyKey sends no Idempotency-Key header.
func (c *Client) UpdateContact(ctx context.Context, tenantID, contactID string, payload Contacts, idempotencyKey string, headers http.Header) (*ContactsResponse, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, errors.New("contact id is required")
	}

	headers = headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}

	var resp *ContactsResponse
	if err := c.doAccounting(ctx, http.MethodPost, "/Contacts/"+contactID, tenantID, headers, payload, &resp); err != nil {
		return nil, errors.Wrapf(err, "update contact %s", contactID)
	}

	return resp, nil
}

// GetOrganisations returns the organisation record of the tenant.
func (c *Client) GetOrganisations(ctx context.Context, tenantID string, headers http.Header) (*OrganisationsResponse, error) {
	var resp *OrganisationsResponse
	if err := c.doAccounting(ctx, http.MethodGet, "/Organisation", tenantID, headers, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "get organisation")
	}

	return resp, nil
}

func (c *Client) doAccounting(ctx context.Context, method, path, tenantID string, headers http.Header, body any, out any) error {
	if strings.TrimSpace(tenantID) == "" {
		return errors.New("tenant id is required")
	}

	token := c.accessToken()
	if token == "" {
		return errors.New("client is not authenticated")
	}

	reqHeaders := headers.Clone()
	if reqHeaders == nil {
		reqHeaders = http.Header{}
	}
	reqHeaders.Set("xero-tenant-id", tenantID)
	reqHeaders.Set("Authorization", "Bearer "+token)

	return c.doJSON(ctx, method, c.cfg.APIBase+accountingPath+path, reqHeaders, body, out)
}

// doJSON sends body as JSON and decodes the reply into out.
func (c *Client) doJSON(ctx context.Context, method, url string, headers http.Header, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errors.Wrapf(err, "new request `%s`", url)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startAt := c.clock()
	resp, err := c.httpcli.Do(req) //nolint: bodyclose
	if err != nil {
		return errors.Wrapf(err, "do request `%s %s`", method, url)
	}
	defer c.closeBody(resp)

	c.logger.Debug("xero request finished",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", c.clock().Sub(startAt)),
	)

	return decodeResponse(resp, out)
}

func (c *Client) closeBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	gutils.CloseWithLog(resp.Body, c.logger)
}

// decodeResponse decodes a 2xx reply into out.
// Non-2xx replies become *APIError; an empty 2xx body leaves out untouched.
func decodeResponse(resp *http.Response, out any) error {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.WithStack(newAPIError(resp.StatusCode, respBody))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err = json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "unmarshal response body")
	}

	return nil
}
