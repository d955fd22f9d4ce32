package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/Laisky/xero-mcp/internal/accounting"
	"github.com/Laisky/xero-mcp/internal/mcp/auth"
	"github.com/Laisky/xero-mcp/internal/mcp/calllog"
	"github.com/Laisky/xero-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/xero-mcp/internal/mcp/observe"
	"github.com/Laisky/xero-mcp/internal/mcp/tools"
)

// CallRecorder persists tool invocations.
type CallRecorder interface {
	Record(ctx context.Context, input calllog.RecordInput) error
}

// Registry is the startup-built table of tools exposed by the server, keyed by unique name.
type Registry struct {
	logger   logSDK.Logger
	tools    []tools.Tool
	names    map[string]struct{}
	recorder CallRecorder
	observer *observe.ToolObserver
	tenant   func() string
	clock    func() time.Time
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithCallRecorder records every tool call through recorder.
func WithCallRecorder(recorder CallRecorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = recorder
	}
}

// WithObserver reports every tool call to observer.
func WithObserver(observer *observe.ToolObserver) RegistryOption {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithTenantSource tags recorded calls with the Xero tenant returned by tenant.
func WithTenantSource(tenant func() string) RegistryOption {
	return func(r *Registry) {
		r.tenant = tenant
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logSDK.Logger, opts ...RegistryOption) (*Registry, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	r := &Registry{
		logger: logger.Named("mcp_registry"),
		names:  map[string]struct{}{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds tool to the table. Empty or duplicate names are configuration errors.
func (r *Registry) Register(tool tools.Tool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	name := strings.TrimSpace(tool.Name())
	if name == "" {
		return errors.New("tool name is required")
	}
	if _, ok := r.names[name]; ok {
		return errors.Errorf("tool %q is already registered", name)
	}

	r.names[name] = struct{}{}
	r.tools = append(r.tools, tool)
	return nil
}

// Names lists the registered tools in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, tool := range r.tools {
		names = append(names, tool.Name())
	}
	return names
}

// Attach exposes every registered tool on server, in registration order.
func (r *Registry) Attach(server *srv.MCPServer) {
	for _, tool := range r.tools {
		server.AddTool(tool.Definition(), r.handler(tool))
		r.logger.Debug("tool attached", zap.String("tool", tool.Name()))
	}
}

// handler wraps tool so that no panic or Go error reaches the protocol layer,
// and every call is observed and recorded.
func (r *Registry) handler(tool tools.Tool) srv.ToolHandlerFunc {
	name := tool.Name()
	return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		startAt := r.clock()
		sessionID := sessionIDFromContext(ctx)
		logger := r.logger.Named(name).With(zap.String("tool", name), zap.String("session_id", sessionID))
		if caller, ok := auth.FromContext(ctx); ok {
			logger = logger.With(zap.String("key_suffix", caller.KeySuffix))
		}
		ctx = context.WithValue(ctx, ctxkeys.Logger, logger)
		ctx, inv := r.observer.Start(ctx, name)

		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("tool handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
				result = internalErrorResult(name, rec)
			}
			if err != nil {
				logger.Error("tool handler failed", zap.Error(err))
				result, err = internalErrorResult(name, err), nil
			}
			if result == nil {
				result = &mcp.CallToolResult{Content: []mcp.Content{}}
			}

			errText := resultErrorText(result)
			inv.Finish(!result.IsError, errText)
			r.recordCall(ctx, logger, calllog.RecordInput{
				ToolName:     name,
				SessionID:    sessionID,
				Status:       callStatus(result),
				Duration:     r.clock().Sub(startAt),
				Parameters:   redactToolArguments(req.GetArguments()),
				ErrorMessage: errText,
				OccurredAt:   startAt.UTC(),
			})
		}()

		return tool.Handle(ctx, req)
	}
}

func (r *Registry) recordCall(ctx context.Context, logger logSDK.Logger, input calllog.RecordInput) {
	if r.recorder == nil {
		return
	}
	if r.tenant != nil {
		input.TenantID = r.tenant()
	}
	if err := r.recorder.Record(ctx, input); err != nil {
		logger.Warn("record tool call", zap.Error(err))
	}
}

func internalErrorResult(name string, failure any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %s", name, accounting.FormatError(failure)))
}

func callStatus(result *mcp.CallToolResult) string {
	if result.IsError {
		return calllog.StatusError
	}
	return calllog.StatusSuccess
}

// resultErrorText returns the text of a failed result, or "" for a success.
func resultErrorText(result *mcp.CallToolResult) string {
	if !result.IsError {
		return ""
	}
	parts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func sessionIDFromContext(ctx context.Context) string {
	if session := srv.ClientSessionFromContext(ctx); session != nil {
		return session.SessionID()
	}
	return ""
}
