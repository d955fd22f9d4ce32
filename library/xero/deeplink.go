package xero

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	deepLinkBase        = "https://go.xero.com/organisationlogin/default.aspx"
	contactRedirectPath = "/Contacts/View/"
	// DefaultShortCodeTTL bounds how long an organisation short code is reused.
	DefaultShortCodeTTL = 24 * time.Hour
)

// OrganisationSource is the part of the client needed to look up the organisation short code.
type OrganisationSource interface {
	Authenticate(ctx context.Context) error
	TenantID() string
	GetOrganisations(ctx context.Context, tenantID string, headers http.Header) (*OrganisationsResponse, error)
}

// ShortCodeCache stores organisation short codes keyed by tenant.
type ShortCodeCache interface {
	GetShortCode(ctx context.Context, tenantID string) (shortCode string, ok bool, err error)
	SetShortCode(ctx context.Context, tenantID, shortCode string, ttl time.Duration) error
}

// DeepLinker builds links that open an entity in the Xero web app.
type DeepLinker struct {
	source OrganisationSource
	cache  ShortCodeCache
	ttl    time.Duration
}

// NewDeepLinker constructs a DeepLinker. A nil cache falls back to an in-process cache.
func NewDeepLinker(source OrganisationSource, cache ShortCodeCache) (*DeepLinker, error) {
	if source == nil {
		return nil, errors.New("organisation source is required")
	}
	if cache == nil {
		cache = NewMemoryShortCodeCache(nil)
	}

	return &DeepLinker{
		source: source,
		cache:  cache,
		ttl:    DefaultShortCodeTTL,
	}, nil
}

// Contact returns the deep link that opens contactID in the Xero web app.
func (d *DeepLinker) Contact(ctx context.Context, contactID string) (string, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return "", errors.New("contact id is required")
	}

	shortCode, err := d.shortCode(ctx)
	if err != nil {
		return "", errors.Wrap(err, "get organisation short code")
	}

	query := url.Values{}
	query.Set("shortcode", shortCode)
	query.Set("redirecturl", contactRedirectPath+contactID)
	return deepLinkBase + "?" + query.Encode(), nil
}

func (d *DeepLinker) shortCode(ctx context.Context) (string, error) {
	if err := d.source.Authenticate(ctx); err != nil {
		return "", errors.Wrap(err, "authenticate")
	}
	tenantID := d.source.TenantID()

	if code, ok, err := d.cache.GetShortCode(ctx, tenantID); err != nil {
		return "", errors.Wrap(err, "load cached short code")
	} else if ok {
		return code, nil
	}

	resp, err := d.source.GetOrganisations(ctx, tenantID, ClientHeaders())
	if err != nil {
		return "", errors.WithStack(err)
	}
	if resp == nil || len(resp.Organisations) == 0 || resp.Organisations[0].ShortCode == "" {
		return "", errors.New("organisation has no short code")
	}

	code := resp.Organisations[0].ShortCode
	if err = d.cache.SetShortCode(ctx, tenantID, code, d.ttl); err != nil {
		return "", errors.Wrap(err, "cache short code")
	}

	return code, nil
}

// MemoryShortCodeCache is an in-process ShortCodeCache.
type MemoryShortCodeCache struct {
	clock func() time.Time

	mu    sync.Mutex
	items map[string]memoryShortCode
}

type memoryShortCode struct {
	code     string
	expireAt time.Time
}

// NewMemoryShortCodeCache constructs an empty cache. A nil clock uses time.Now.
func NewMemoryShortCodeCache(clock func() time.Time) *MemoryShortCodeCache {
	if clock == nil {
		clock = time.Now
	}

	return &MemoryShortCodeCache{
		clock: clock,
		items: make(map[string]memoryShortCode),
	}
}

// GetShortCode implements ShortCodeCache.
func (c *MemoryShortCodeCache) GetShortCode(_ context.Context, tenantID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[tenantID]
	if !ok {
		return "", false, nil
	}
	if !item.expireAt.IsZero() && !c.clock().Before(item.expireAt) {
		delete(c.items, tenantID)
		return "", false, nil
	}

	return item.code, true, nil
}

// SetShortCode implements ShortCodeCache.
func (c *MemoryShortCodeCache) SetShortCode(_ context.Context, tenantID, shortCode string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := memoryShortCode{code: shortCode}
	if ttl > 0 {
		item.expireAt = c.clock().Add(ttl)
	}
	c.items[tenantID] = item
	return nil
}
