package xero

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshLeeway renews a token this long before it expires.
const tokenRefreshLeeway = time.Minute

// Authenticate makes sure the client holds a usable access token and tenant.
//
// It is idempotent and cheap when the session is still valid. Concurrent callers
// share a single in-flight authentication.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.sessionValid() {
		return nil
	}

	_, err, _ := c.authGroup.Do("authenticate", func() (any, error) {
		if c.sessionValid() {
			return nil, nil
		}
		return nil, c.authenticate(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "authenticate xero client")
	}

	return nil
}

func (c *Client) sessionValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || c.tenantID == "" {
		return false
	}
	if c.expiresAt.IsZero() {
		return true
	}

	return c.clock().Add(tokenRefreshLeeway).Before(c.expiresAt)
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) authenticate(ctx context.Context) error {
	var (
		token     string
		expiresAt time.Time
		err       error
	)
	if c.cfg.BearerToken != "" {
		token = c.cfg.BearerToken
		if expiresAt, err = bearerTokenExpiry(token); err != nil {
			return errors.Wrap(err, "inspect bearer token")
		}
		if !expiresAt.IsZero() && !c.clock().Before(expiresAt) {
			return errors.Errorf("bearer token expired at %s", expiresAt.Format(time.RFC3339))
		}
	} else {
		if token, expiresAt, err = c.requestClientCredentialsToken(ctx); err != nil {
			return errors.Wrap(err, "request access token")
		}
	}

	tenantID := strings.TrimSpace(c.cfg.TenantID)
	if tenantID == "" {
		if tenantID, err = c.resolveTenant(ctx, token); err != nil {
			return errors.Wrap(err, "resolve tenant")
		}
	}

	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.tenantID = tenantID
	c.mu.Unlock()

	c.logger.Info("xero client authenticated",
		zap.String("tenant_id", tenantID),
		zap.Time("expires_at", expiresAt),
		zap.Bool("bearer_token", c.cfg.BearerToken != ""),
	)
	return nil
}

// requestClientCredentialsToken runs the custom-connection grant against the identity server.
func (c *Client) requestClientCredentialsToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", strings.Join(c.cfg.Scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.IdentityBase+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "new token request")
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for key, values := range ClientHeaders() {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpcli.Do(req) //nolint: bodyclose
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "do token request")
	}
	defer c.closeBody(resp)

	tok := new(tokenResponse)
	if err = decodeResponse(resp, tok); err != nil {
		return "", time.Time{}, errors.WithStack(err)
	}
	if tok.AccessToken == "" {
		return "", time.Time{}, errors.New("identity server returned an empty access token")
	}

	var expiresAt time.Time
	if tok.ExpiresIn > 0 {
		expiresAt = c.clock().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	return tok.AccessToken, expiresAt, nil
}

// resolveTenant picks the first organisation connection authorised for token.
func (c *Client) resolveTenant(ctx context.Context, token string) (string, error) {
	headers := ClientHeaders()
	headers.Set("Authorization", "Bearer "+token)

	var connections []Connection
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.APIBase+"/connections", headers, nil, &connections); err != nil {
		return "", errors.Wrap(err, "list connections")
	}

	for _, conn := range connections {
		if conn.TenantID == "" {
			continue
		}
		if conn.TenantType == "" || strings.EqualFold(conn.TenantType, "ORGANISATION") {
			return conn.TenantID, nil
		}
	}

	return "", errors.New("no xero organisation is connected to this token")
}

// bearerTokenExpiry reads the exp claim of a JWT access token without verifying it.
// Opaque tokens report a zero time, meaning no known expiry.
func bearerTokenExpiry(token string) (time.Time, error) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "parse jwt")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "read exp claim")
	}
	if exp == nil {
		return time.Time{}, nil
	}

	return exp.Time.UTC(), nil
}
