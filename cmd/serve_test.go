package cmd

import (
	"context"
	"testing"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/xero-mcp/internal/accounting"
	"github.com/Laisky/xero-mcp/internal/mcp"
	"github.com/Laisky/xero-mcp/internal/mcp/tools"
	"github.com/Laisky/xero-mcp/library/xero"
)

type stubAccounting struct{}

func (stubAccounting) ListBrandingThemes(context.Context) accounting.Result[[]xero.BrandingTheme] {
	return accounting.Success([]xero.BrandingTheme{})
}

func (stubAccounting) UpdateContact(_ context.Context, in accounting.UpdateContactInput) accounting.Result[*xero.Contact] {
	return accounting.Success(&xero.Contact{ContactID: in.ContactID, Name: in.Name})
}

func TestBuildRegistryHonoursToggles(t *testing.T) {
	logger := logSDK.Shared.Named("test_build_registry")

	tests := []struct {
		name     string
		settings mcp.ToolsSettings
		want     []string
	}{
		{
			name:     "all enabled",
			settings: mcp.ToolsSettings{ListBrandingThemesEnabled: true, UpdateContactEnabled: true},
			want:     []string{tools.ListBrandingThemesToolName, tools.UpdateContactToolName},
		},
		{
			name:     "update contact only",
			settings: mcp.ToolsSettings{UpdateContactEnabled: true},
			want:     []string{tools.UpdateContactToolName},
		},
		{
			name:     "none enabled",
			settings: mcp.ToolsSettings{},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := buildRegistry(tt.settings, stubAccounting{}, nil, logger)
			require.NoError(t, err)
			require.Equal(t, tt.want, registry.Names())
		})
	}
}

func TestBuildRegistryNoToolsFailsServer(t *testing.T) {
	logger := logSDK.Shared.Named("test_build_registry_empty")

	registry, err := buildRegistry(mcp.ToolsSettings{}, stubAccounting{}, nil, logger)
	require.NoError(t, err)

	_, err = mcp.NewServer(registry, xero.Version, logger)
	require.ErrorContains(t, err, "at least one MCP tool must be enabled")
}

func TestLoadXeroConfigEnvFallback(t *testing.T) {
	t.Setenv("XERO_CLIENT_ID", " env-id ")
	t.Setenv("XERO_CLIENT_SECRET", "env-secret")
	t.Setenv("XERO_CLIENT_BEARER_TOKEN", "")
	t.Setenv("XERO_SCOPES", "accounting.contacts accounting.settings")

	gconfig.Shared.Set("settings.xero.client_secret", "cfg-secret")
	gconfig.Shared.Set("settings.xero.timeout_seconds", 15)
	t.Cleanup(func() {
		gconfig.Shared.Set("settings.xero.client_secret", "")
		gconfig.Shared.Set("settings.xero.timeout_seconds", 0)
	})

	cfg := loadXeroConfig()
	require.Equal(t, "env-id", cfg.ClientID)
	require.Equal(t, "cfg-secret", cfg.ClientSecret)
	require.Empty(t, cfg.BearerToken)
	require.Equal(t, []string{"accounting.contacts", "accounting.settings"}, cfg.Scopes)
	require.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestSetupTelemetryDisabled(t *testing.T) {
	shutdown, err := setupTelemetry(context.Background(), false, logSDK.Shared.Named("test_telemetry"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown(context.Background())
}

func TestBuildShortCodeCache(t *testing.T) {
	logger := logSDK.Shared.Named("test_short_code_cache")

	cache, closeCache := buildShortCodeCache(logger)
	require.Nil(t, cache)
	closeCache()

	gconfig.Shared.Set("settings.db.redis.addr", "127.0.0.1:0")
	t.Cleanup(func() {
		gconfig.Shared.Set("settings.db.redis.addr", "")
	})

	cache, closeCache = buildShortCodeCache(logger)
	require.NotNil(t, cache)
	closeCache()
}
