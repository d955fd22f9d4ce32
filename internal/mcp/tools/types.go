package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool exposes the capabilities required by the MCP server registration lifecycle.
type Tool interface {
	Name() string
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}
