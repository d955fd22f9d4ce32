package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/Laisky/xero-mcp/internal/accounting"
	"github.com/Laisky/xero-mcp/internal/mcp"
	"github.com/Laisky/xero-mcp/internal/mcp/calllog"
	"github.com/Laisky/xero-mcp/internal/mcp/observe"
	"github.com/Laisky/xero-mcp/internal/mcp/tools"
	"github.com/Laisky/xero-mcp/internal/web"
	"github.com/Laisky/xero-mcp/library/db/postgres"
	"github.com/Laisky/xero-mcp/library/db/redis"
	"github.com/Laisky/xero-mcp/library/log"
	"github.com/Laisky/xero-mcp/library/xero"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "serve",
	Long:  `serve Xero tools over MCP stdio or streamable HTTP`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runServe(ctx, log.Logger)
	},
}

func init() {
	serveCMD.Flags().String("transport", transportStdio, "`stdio/http`")
	serveCMD.Flags().String("listen", "localhost:8080", "like `localhost:8080`, used by the http transport")
	rootCMD.AddCommand(serveCMD)
}

func runServe(ctx context.Context, logger logSDK.Logger) error {
	transport := strings.ToLower(strings.TrimSpace(gconfig.Shared.GetString("transport")))
	if transport != transportStdio && transport != transportHTTP {
		return errors.Errorf("unknown transport %q", transport)
	}

	shutdownTelemetry, err := setupTelemetry(ctx, gconfig.Shared.GetBool("settings.otel.enabled"), logger)
	if err != nil {
		return errors.Wrap(err, "setup telemetry")
	}
	defer shutdownTelemetry(context.WithoutCancel(ctx))

	client, err := xero.New(loadXeroConfig(), logger.Named("xero"))
	if err != nil {
		return errors.Wrap(err, "new xero client")
	}
	accountingSvc, err := accounting.NewService(client, logger.Named("accounting"))
	if err != nil {
		return errors.Wrap(err, "new accounting service")
	}
	shortCodeCache, closeShortCodeCache := buildShortCodeCache(logger)
	defer closeShortCodeCache()
	linker, err := xero.NewDeepLinker(client, shortCodeCache)
	if err != nil {
		return errors.Wrap(err, "new deep linker")
	}

	observer, err := observe.NewToolObserver(
		otel.GetMeterProvider().Meter(observe.InstrumentationName),
		otel.Tracer(observe.InstrumentationName),
	)
	if err != nil {
		return errors.Wrap(err, "new tool observer")
	}
	registryOpts := []mcp.RegistryOption{
		mcp.WithObserver(observer),
		mcp.WithTenantSource(client.TenantID),
	}

	callLogSvc, closeCallLog, err := buildCallLog(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "setup call log")
	}
	defer closeCallLog()
	if callLogSvc != nil {
		registryOpts = append(registryOpts, mcp.WithCallRecorder(callLogSvc))
	}

	registry, err := buildRegistry(mcp.LoadToolsSettingsFromConfig(), accountingSvc, linker, logger, registryOpts...)
	if err != nil {
		return errors.Wrap(err, "build tool registry")
	}
	server, err := mcp.NewServer(registry, xero.Version, logger)
	if err != nil {
		return errors.Wrap(err, "new mcp server")
	}

	if transport == transportStdio {
		return server.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	webOpts := []web.Option{
		web.WithDebug(gconfig.Shared.GetBool("debug")),
		web.WithAPIToken(settingOrEnv("settings.web.api_token", "XERO_MCP_API_TOKEN")),
		web.WithAllowedOrigins(gconfig.Shared.GetStringSlice("settings.web.allowed_origins")...),
		web.WithMetrics(gconfig.Shared.GetBool("settings.web.metrics.enabled")),
	}
	if callLogSvc != nil {
		webOpts = append(webOpts, web.WithCallLogHandler(calllog.NewHTTPHandler(callLogSvc, logger.Named("call_log_http"))))
	}
	httpSrv, err := web.NewServer(gconfig.Shared.GetString("listen"), server.Handler(), logger, webOpts...)
	if err != nil {
		return errors.Wrap(err, "new web server")
	}
	return httpSrv.Run(ctx)
}

// accountingTools is implemented by *accounting.Service.
type accountingTools interface {
	tools.BrandingThemeLister
	tools.ContactUpdater
}

// buildRegistry registers every tool enabled in settings.
func buildRegistry(settings mcp.ToolsSettings,
	svc accountingTools,
	linker tools.ContactLinker,
	logger logSDK.Logger,
	opts ...mcp.RegistryOption,
) (*mcp.Registry, error) {
	registry, err := mcp.NewRegistry(logger, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new registry")
	}

	if settings.ListBrandingThemesEnabled {
		tool, err := tools.NewListBrandingThemesTool(svc, logger)
		if err != nil {
			return nil, errors.Wrap(err, "new list-branding-themes tool")
		}
		if err = registry.Register(tool); err != nil {
			return nil, errors.Wrap(err, "register list-branding-themes")
		}
	}
	if settings.UpdateContactEnabled {
		tool, err := tools.NewUpdateContactTool(svc, linker, logger)
		if err != nil {
			return nil, errors.Wrap(err, "new update-contact tool")
		}
		if err = registry.Register(tool); err != nil {
			return nil, errors.Wrap(err, "register update-contact")
		}
	}

	return registry, nil
}

// loadXeroConfig reads settings.xero, falling back to the XERO_* environment variables.
func loadXeroConfig() xero.Config {
	cfg := xero.Config{
		ClientID:     settingOrEnv("settings.xero.client_id", "XERO_CLIENT_ID"),
		ClientSecret: settingOrEnv("settings.xero.client_secret", "XERO_CLIENT_SECRET"),
		BearerToken:  settingOrEnv("settings.xero.bearer_token", "XERO_CLIENT_BEARER_TOKEN"),
		TenantID:     strings.TrimSpace(gconfig.Shared.GetString("settings.xero.tenant_id")),
		APIBase:      strings.TrimSpace(gconfig.Shared.GetString("settings.xero.api_base")),
		IdentityBase: strings.TrimSpace(gconfig.Shared.GetString("settings.xero.identity_base")),
		Timeout:      time.Duration(gconfig.Shared.GetInt("settings.xero.timeout_seconds")) * time.Second,
	}

	scopes := gconfig.Shared.GetStringSlice("settings.xero.scopes")
	if len(scopes) == 0 {
		scopes = strings.Fields(os.Getenv("XERO_SCOPES"))
	}
	cfg.Scopes = scopes

	return cfg
}

func settingOrEnv(key, env string) string {
	if v := strings.TrimSpace(gconfig.Shared.GetString(key)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(env))
}

// buildShortCodeCache returns a redis cache when settings.db.redis.addr is set,
// otherwise nil so the deep linker keeps codes in memory.
// The returned func closes the redis client.
func buildShortCodeCache(logger logSDK.Logger) (xero.ShortCodeCache, func()) {
	addr := strings.TrimSpace(gconfig.Shared.GetString("settings.db.redis.addr"))
	if addr == "" {
		return nil, func() {}
	}

	logger.Info("use redis short code cache", zap.String("addr", addr))
	db := redis.NewDB(&goredis.Options{
		Addr:     addr,
		DB:       gconfig.Shared.GetInt("settings.db.redis.db"),
		Password: gconfig.Shared.GetString("settings.db.redis.password"),
	})
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close redis short code cache", zap.Error(err))
		}
	}
}

// buildCallLog connects the call log when settings.db.postgres.dsn is set.
func buildCallLog(ctx context.Context, logger logSDK.Logger) (*calllog.Service, func(), error) {
	dsn := strings.TrimSpace(gconfig.Shared.GetString("settings.db.postgres.dsn"))
	if dsn == "" {
		return nil, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect postgres")
	}
	svc, err := calllog.NewService(ctx, pool, logger.Named("call_log"), nil)
	if err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "new call log service")
	}

	logger.Info("call log enabled")
	return svc, pool.Close, nil
}
