package tools

import (
	"context"
	"fmt"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/xero-mcp/internal/mcp/ctxkeys"
)

// toolLogger prefers the logger the registry stored in ctx, then fallback,
// then the gin request logger.
func toolLogger(ctx context.Context, fallback logSDK.Logger) logSDK.Logger {
	if ctxLogger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}
	if fallback != nil {
		return fallback
	}

	return gmw.GetLogger(ctx)
}

// textItem renders lines as one text content item, skipping empty lines.
func textItem(lines ...string) mcp.Content {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return mcp.NewTextContent(strings.Join(kept, "\n"))
}

// failureResult renders an envelope failure as "Error <action>: <message>".
func failureResult(action, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error %s: %s", action, message))
}
