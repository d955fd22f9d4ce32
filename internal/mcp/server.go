package mcp

import (
	"context"
	"io"
	"net/http"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	srv "github.com/mark3labs/mcp-go/server"
)

const (
	// ServerName is advertised to MCP clients during initialization.
	ServerName = "xero-mcp-server"

	httpLogBodyLimit = 16 * 1024
)

const serverInstructions = "Tools for a connected Xero organisation. " +
	"Use list-branding-themes to look up branding theme IDs and update-contact to change a contact. " +
	"Show the user any deep link returned by update-contact."

// Server wraps the MCP server state for the stdio and HTTP transports.
type Server struct {
	mcpServer *srv.MCPServer
	handler   http.Handler
	registry  *Registry
	logger    logSDK.Logger
}

// NewServer builds an MCP server exposing every tool in registry.
func NewServer(registry *Registry, version string, logger logSDK.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(registry.Names()) == 0 {
		return nil, errors.New("at least one MCP tool must be enabled")
	}

	hooks := newMCPHooks(logger.Named("mcp_hooks"))
	mcpServer := srv.NewMCPServer(
		ServerName,
		version,
		srv.WithToolCapabilities(true),
		srv.WithInstructions(serverInstructions),
		srv.WithRecovery(),
		srv.WithHooks(hooks),
	)
	registry.Attach(mcpServer)

	streamable := srv.NewStreamableHTTPServer(mcpServer)

	s := &Server{
		mcpServer: mcpServer,
		handler:   newExchangeLogger(streamable, logger.Named("mcp_http"), httpLogBodyLimit),
		registry:  registry,
		logger:    logger.Named("mcp"),
	}
	s.logger.Info("mcp server ready",
		zap.String("version", version),
		zap.Strings("tools", registry.Names()),
	)
	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer exposes the underlying protocol server.
func (s *Server) MCPServer() *srv.MCPServer {
	return s.mcpServer
}

// ToolNames lists the tools the server advertises.
func (s *Server) ToolNames() []string {
	return s.registry.Names()
}

// ServeStdio serves MCP over in and out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving mcp over stdio")
	stdio := srv.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "serve stdio")
	}
	return nil
}
