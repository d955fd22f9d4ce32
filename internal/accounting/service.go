// Package accounting runs Xero operations on behalf of MCP tools.
//
// Each handler authenticates, transforms its input, calls exactly one Xero
// operation and wraps the outcome in a Result. Handlers never return errors
// or panic past their own boundary.
package accounting

import (
	"context"
	"net/http"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/xero-mcp/library/log"
	"github.com/Laisky/xero-mcp/library/xero"
)

// Session is the authenticated Xero handle the handlers call.
// Authenticate must be safe to call before every operation.
type Session interface {
	Authenticate(ctx context.Context) error
	TenantID() string
	GetBrandingThemes(ctx context.Context, tenantID string, headers http.Header) (*xero.BrandingThemesResponse, error)
	UpdateContact(ctx context.Context, tenantID, contactID string, payload xero.Contacts, idempotencyKey string, headers http.Header) (*xero.ContactsResponse, error)
}

var _ Session = (*xero.Client)(nil)

// Service hosts the handlers of every supported Xero operation.
type Service struct {
	session Session
	logger  logSDK.Logger
}

// NewService constructs a Service bound to session.
func NewService(session Session, logger logSDK.Logger) (*Service, error) {
	if session == nil {
		return nil, errors.New("xero session is required")
	}
	if logger == nil {
		logger = log.Logger.Named("accounting")
	}

	return &Service{session: session, logger: logger}, nil
}

// recoverFailure turns a panic inside a handler into a failure result.
func recoverFailure[T any](logger logSDK.Logger, operation string, result *Result[T]) {
	if r := recover(); r != nil {
		logger.Error("handler panicked", zap.String("operation", operation), zap.Any("panic", r))
		*result = Failure[T](r)
	}
}
