// Package web hosts the MCP streamable HTTP transport on a gin engine.
package web

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	ginMw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/xero-mcp/internal/mcp/auth"
	"github.com/Laisky/xero-mcp/internal/mcp/calllog"
)

const (
	// MCPPath is where the MCP transport is mounted.
	MCPPath = "/mcp"
	// HealthPath answers liveness probes.
	HealthPath = "/health"

	shutdownTimeout = 10 * time.Second
)

// Server serves MCP over streamable HTTP together with the operational routes.
type Server struct {
	addr   string
	engine *gin.Engine
	logger logSDK.Logger
}

type serverOptions struct {
	apiToken       string
	callLogHandler http.Handler
	allowedOrigins []string
	debug          bool
	metrics        bool
}

// Option customizes a Server.
type Option func(*serverOptions)

// WithAPIToken sets the bearer token callers of the MCP and call log routes must present.
func WithAPIToken(token string) Option {
	return func(o *serverOptions) {
		o.apiToken = token
	}
}

// WithCallLogHandler mounts h on calllog.ListPath.
func WithCallLogHandler(h http.Handler) Option {
	return func(o *serverOptions) {
		o.callLogHandler = h
	}
}

// WithAllowedOrigins allows browser clients from these hosts and their subdomains.
func WithAllowedOrigins(hosts ...string) Option {
	return func(o *serverOptions) {
		for _, host := range hosts {
			host = strings.ToLower(strings.TrimSpace(host))
			if host != "" {
				o.allowedOrigins = append(o.allowedOrigins, host)
			}
		}
	}
}

// WithDebug keeps gin in debug mode.
func WithDebug(debug bool) Option {
	return func(o *serverOptions) {
		o.debug = debug
	}
}

// WithMetrics exposes the gin-middlewares metric routes.
func WithMetrics(enabled bool) Option {
	return func(o *serverOptions) {
		o.metrics = enabled
	}
}

// NewServer builds the HTTP host for mcpHandler.
func NewServer(addr string, mcpHandler http.Handler, logger logSDK.Logger, opts ...Option) (*Server, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("listen address is required")
	}
	if mcpHandler == nil {
		return nil, errors.New("mcp handler is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	authenticator, err := auth.NewAuthenticator(o.apiToken)
	if err != nil {
		return nil, errors.Wrap(err, "new authenticator")
	}

	if !o.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		ginMw.NewLoggerMiddleware(
			ginMw.WithLoggerMwColored(),
			ginMw.WithLevel(logger.Level().String()),
			ginMw.WithLogger(logger.Named("gin")),
		),
		newCORSMiddleware(o.allowedOrigins),
	)
	if o.metrics {
		if err := ginMw.EnableMetric(engine); err != nil {
			return nil, errors.Wrap(err, "enable metric server")
		}
	}

	engine.Any(HealthPath, func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	engine.Any(MCPPath, gin.WrapH(authenticator.HTTPMiddleware(mcpHandler)))
	if o.callLogHandler != nil {
		engine.GET(calllog.ListPath, gin.WrapH(authenticator.HTTPMiddleware(o.callLogHandler)))
	}

	return &Server{
		addr:   addr,
		engine: engine,
		logger: logger.Named("web"),
	}, nil
}

// Handler exposes the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http", zap.String("addr", s.addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	s.logger.Info("http server stopped")
	return nil
}

// newCORSMiddleware allows loopback origins and the configured hosts.
func newCORSMiddleware(allowedHosts []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if origin != "" && isAllowedOrigin(origin, allowedHosts) {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
			ctx.Header("Access-Control-Expose-Headers", "Mcp-Session-Id")
			ctx.Header("Access-Control-Max-Age", "86400")
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}

func isAllowedOrigin(origin string, allowedHosts []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}

	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
