package ctxkeys

// Key identifies a context value propagated across MCP services.
type Key string

const (
	// Logger stores the per-request logger within tool contexts.
	Logger Key = "mcp_logger"
	// AuthContext stores the authenticated HTTP caller.
	AuthContext Key = "mcp_auth_context"
)
