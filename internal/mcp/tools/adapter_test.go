package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/xero-mcp/library/log"
)

type echoArgs struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Kind  string `json:"kind,omitempty" validate:"omitempty,oneof=A B"`
	Inner *struct {
		Line string `json:"line" validate:"required"`
	} `json:"inner,omitempty" validate:"omitempty"`
}

func newEchoTool(t *testing.T, calls *int, execute ExecuteFunc[echoArgs]) *TypedTool[echoArgs] {
	t.Helper()

	if execute == nil {
		execute = func(_ context.Context, in echoArgs) *mcp.CallToolResult {
			*calls++
			return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("hello " + in.Name)}}
		}
	}
	tool, err := NewTypedTool("echo", "Echo a name.", []mcp.ToolOption{
		mcp.WithString("name", mcp.Required()),
	}, execute, log.Logger.Named("test_adapter"))
	require.NoError(t, err)
	return tool
}

func callRequest(args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func requireText(t *testing.T, content mcp.Content) string {
	t.Helper()

	text, ok := content.(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", content)
	return text.Text
}

func requireInvalidArguments(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	require.NotNil(t, result)
	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(requireText(t, result.Content[0])), &payload))
	require.Equal(t, ErrCodeInvalidArguments, payload["code"])
	return payload
}

func TestNewTypedToolValidatesInputs(t *testing.T) {
	logger := log.Logger.Named("test_adapter")
	noop := func(context.Context, echoArgs) *mcp.CallToolResult { return nil }

	_, err := NewTypedTool[echoArgs](" ", "", nil, noop, logger)
	require.Error(t, err)

	_, err = NewTypedTool[echoArgs]("echo", "", nil, nil, logger)
	require.Error(t, err)

	_, err = NewTypedTool[echoArgs]("echo", "", nil, noop, nil)
	require.Error(t, err)
}

func TestTypedToolDefinition(t *testing.T) {
	var calls int
	tool := newEchoTool(t, &calls, nil)

	def := tool.Definition()
	require.Equal(t, "echo", tool.Name())
	require.Equal(t, "echo", def.Name)
	require.Equal(t, "Echo a name.", def.Description)
	require.Contains(t, def.InputSchema.Properties, "name")
	require.Equal(t, []string{"name"}, def.InputSchema.Required)
}

func TestTypedToolHandleSuccess(t *testing.T) {
	var calls int
	tool := newEchoTool(t, &calls, nil)

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"name": "xero"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "hello xero", requireText(t, result.Content[0]))
	require.Equal(t, 1, calls)
}

func TestTypedToolRejectsInvalidArguments(t *testing.T) {
	cases := []struct {
		name  string
		args  any
		field string
		rule  string
	}{
		{"missing required", map[string]any{}, "name", "required"},
		{"nil arguments", nil, "name", "required"},
		{"bad email", map[string]any{"name": "a", "email": "not-an-email"}, "email", "email"},
		{"bad enum", map[string]any{"name": "a", "kind": "C"}, "kind", "oneof"},
		{"nested required", map[string]any{"name": "a", "inner": map[string]any{}}, "inner.line", "required"},
		{"wrong type", map[string]any{"name": 42}, "name", "type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			tool := newEchoTool(t, &calls, nil)

			result, err := tool.Handle(context.Background(), callRequest(tc.args))
			require.NoError(t, err)

			payload := requireInvalidArguments(t, result)
			require.Equal(t, 0, calls, "execute must not run on invalid arguments")

			fields, ok := payload["fields"].([]any)
			require.True(t, ok)
			require.Len(t, fields, 1)
			issue := fields[0].(map[string]any)
			require.Equal(t, tc.field, issue["field"])
			require.Equal(t, tc.rule, issue["rule"])
			require.Contains(t, payload["message"], tc.field)
		})
	}
}

func TestTypedToolRecoversPanic(t *testing.T) {
	tool := newEchoTool(t, nil, func(context.Context, echoArgs) *mcp.CallToolResult {
		panic("render exploded")
	})

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"name": "xero"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	require.Equal(t, "Error executing echo: render exploded", requireText(t, result.Content[0]))
}

func TestTypedToolNilResultIsEmpty(t *testing.T) {
	tool := newEchoTool(t, nil, func(context.Context, echoArgs) *mcp.CallToolResult { return nil })

	result, err := tool.Handle(context.Background(), callRequest(map[string]any{"name": "xero"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.Content)
	require.False(t, result.IsError)
}
