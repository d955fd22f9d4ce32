// Package auth guards the MCP HTTP routes with a shared API token.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	errors "github.com/Laisky/errors/v2"

	"github.com/Laisky/xero-mcp/internal/mcp/ctxkeys"
)

var (
	// ErrMissingAuthorization indicates that no authorization header was provided.
	ErrMissingAuthorization = errors.New("authorization header required")
	// ErrInvalidAuthorization indicates that the authorization header is malformed.
	ErrInvalidAuthorization = errors.New("invalid authorization header")
	// ErrUnknownToken indicates that the presented token is not the configured one.
	ErrUnknownToken = errors.New("unknown api token")
)

const keySuffixLen = 4

// Context describes an authenticated HTTP caller.
type Context struct {
	// KeySuffix is the tail of the presented token, safe to log.
	KeySuffix string
	// TokenHash is the hex sha256 of the presented token.
	TokenHash string
}

// Authenticator checks Authorization headers against one configured token.
type Authenticator struct {
	tokenSum [sha256.Size]byte
}

// NewAuthenticator returns an Authenticator accepting token.
func NewAuthenticator(token string) (*Authenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("api token is required")
	}

	return &Authenticator{tokenSum: sha256.Sum256([]byte(token))}, nil
}

// Authenticate parses an Authorization header and verifies its token.
func (a *Authenticator) Authenticate(header string) (*Context, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return nil, ErrMissingAuthorization
	}

	token := stripBearerPrefix(trimmed)
	if token == "" || strings.ContainsAny(token, " \t") {
		return nil, ErrInvalidAuthorization
	}

	sum := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(sum[:], a.tokenSum[:]) != 1 {
		return nil, ErrUnknownToken
	}

	suffix := token
	if len(suffix) > keySuffixLen {
		suffix = suffix[len(suffix)-keySuffixLen:]
	}
	return &Context{
		KeySuffix: suffix,
		TokenHash: hex.EncodeToString(sum[:]),
	}, nil
}

// stripBearerPrefix removes any number of leading case-insensitive "Bearer " prefixes.
func stripBearerPrefix(header string) string {
	const prefix = "bearer "
	value := strings.TrimSpace(header)
	for len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		value = strings.TrimSpace(value[len(prefix):])
	}
	if strings.EqualFold(value, strings.TrimSpace(prefix)) {
		return ""
	}
	return value
}

// WithContext stores authCtx on ctx.
func WithContext(ctx context.Context, authCtx *Context) context.Context {
	if authCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxkeys.AuthContext, authCtx)
}

// FromContext returns the caller stored by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	authCtx, ok := ctx.Value(ctxkeys.AuthContext).(*Context)
	if !ok || authCtx == nil {
		return nil, false
	}
	return authCtx, true
}
