package accounting

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/xero-mcp/library/xero"
)

// ListBrandingThemes lists every branding theme of the tenant.
// A missing list is an empty success.
func (s *Service) ListBrandingThemes(ctx context.Context) (result Result[[]xero.BrandingTheme]) {
	defer recoverFailure(s.logger, "list_branding_themes", &result)

	themes, err := s.listBrandingThemes(ctx)
	if err != nil {
		s.logger.Warn("list branding themes", zap.Error(err))
		return Failure[[]xero.BrandingTheme](err)
	}

	return Success(themes)
}

func (s *Service) listBrandingThemes(ctx context.Context) ([]xero.BrandingTheme, error) {
	if err := s.session.Authenticate(ctx); err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}

	resp, err := s.session.GetBrandingThemes(ctx, s.session.TenantID(), xero.ClientHeaders())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp == nil || resp.BrandingThemes == nil {
		return []xero.BrandingTheme{}, nil
	}

	return resp.BrandingThemes, nil
}
