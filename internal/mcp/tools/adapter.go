package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/xero-mcp/internal/accounting"
)

// ErrCodeInvalidArguments marks a call rejected before the tool body ran.
const ErrCodeInvalidArguments = "invalid_arguments"

// ExecuteFunc runs a tool body against validated arguments and renders the caller-facing result.
type ExecuteFunc[In any] func(ctx context.Context, in In) *mcp.CallToolResult

// TypedTool binds raw MCP arguments into In, validates them and hands them to an ExecuteFunc.
//
// Validation uses the `validate` struct tags on In; the mcp.ToolOption schema is only advertised.
type TypedTool[In any] struct {
	name    string
	tool    mcp.Tool
	execute ExecuteFunc[In]
	logger  logSDK.Logger
}

// FieldIssue describes one argument that failed validation.
type FieldIssue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

var argumentValidator = newArgumentValidator()

func newArgumentValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			return "-"
		case "":
			return field.Name
		default:
			return name
		}
	})
	return v
}

// NewTypedTool constructs a TypedTool advertised under name.
func NewTypedTool[In any](name, description string, schema []mcp.ToolOption, execute ExecuteFunc[In], logger logSDK.Logger) (*TypedTool[In], error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("tool name is required")
	}
	if execute == nil {
		return nil, errors.Errorf("execute function is required for tool %q", name)
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, schema...)
	return &TypedTool[In]{
		name:    name,
		tool:    mcp.NewTool(name, opts...),
		execute: execute,
		logger:  logger.Named(name),
	}, nil
}

// Name returns the tool name.
func (t *TypedTool[In]) Name() string {
	return t.name
}

// Definition returns the MCP metadata describing the tool.
func (t *TypedTool[In]) Definition() mcp.Tool {
	return t.tool
}

// Handle validates the request arguments and runs the tool body.
// It never returns a Go error: every failure is rendered as a tool result.
func (t *TypedTool[In]) Handle(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
	logger := toolLogger(ctx, t.logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", zap.Any("panic", r), zap.Stack("stack"))
			result = mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %s", t.name, accounting.FormatError(r)))
			err = nil
		}
	}()

	var in In
	if bindErr := req.BindArguments(&in); bindErr != nil {
		logger.Debug("bind tool arguments", zap.Error(bindErr))
		return invalidArgumentsResult(bindIssues(bindErr)), nil
	}
	if issues := validateArguments(in); len(issues) > 0 {
		logger.Debug("reject tool arguments", zap.Any("issues", issues))
		return invalidArgumentsResult(issues), nil
	}

	result = t.execute(ctx, in)
	if result == nil {
		result = &mcp.CallToolResult{Content: []mcp.Content{}}
	}
	return result, nil
}

// validateArguments returns every field of in that breaks its validate tags.
func validateArguments(in any) []FieldIssue {
	err := argumentValidator.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// non-struct input has nothing to validate
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return []FieldIssue{{Rule: "invalid", Message: err.Error()}}
	}

	issues := make([]FieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		issues = append(issues, FieldIssue{
			Field:   field,
			Rule:    fe.Tag(),
			Message: issueMessage(field, fe.Tag(), fe.Param()),
		})
	}
	return issues
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func issueMessage(field, rule, param string) string {
	switch rule {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, rule)
	}
}

// bindIssues converts a JSON decoding error into field issues.
func bindIssues(err error) []FieldIssue {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return []FieldIssue{{
				Rule:    "type",
				Message: "arguments must be an object",
			}}
		}
		return []FieldIssue{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("%s must be a %s", field, jsonTypeName(typeErr.Type)),
		}}
	}

	return []FieldIssue{{Rule: "decode", Message: err.Error()}}
}

func jsonTypeName(typ reflect.Type) string {
	if typ == nil {
		return "value"
	}
	switch typ.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// invalidArgumentsResult builds the structured error returned for rejected arguments.
func invalidArgumentsResult(issues []FieldIssue) *mcp.CallToolResult {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	message := "invalid arguments: " + strings.Join(messages, "; ")

	payload := map[string]any{
		"code":    ErrCodeInvalidArguments,
		"message": message,
		"fields":  issues,
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError(message)
	}
	result.IsError = true
	return result
}
