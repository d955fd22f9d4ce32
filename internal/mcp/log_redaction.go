package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// contactPIIKeys lists argument and Xero payload keys holding contact personal data,
// lower-cased for matching.
var contactPIIKeys = map[string]struct{}{
	"email":        {},
	"emailaddress": {},
	"phone":        {},
	"phonenumber":  {},
	"addressline1": {},
	"addressline2": {},
	"postalcode":   {},
}

// redactMCPBody redacts contact personal data from a JSON MCP payload.
func redactMCPBody(raw string) string {
	if raw == "" {
		return raw
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return raw
	}
	out, err := encodeLogJSON(redactMCPValue(payload))
	if err != nil {
		return raw
	}
	return out
}

// redactSSEBody redacts every data line of a text/event-stream body.
func redactSSEBody(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		lines[i] = "data: " + redactMCPBody(strings.TrimSpace(data))
	}
	return strings.Join(lines, "\n")
}

// encodeLogJSON marshals v without escaping <, > and &, so redaction markers stay readable.
func encodeLogJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// redactMCPValue recursively redacts nested payloads.
func redactMCPValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return redactMCPMap(v)
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			result = append(result, redactMCPValue(item))
		}
		return result
	default:
		return value
	}
}

// redactMCPMap returns a copy of input with personal data fields summarized.
func redactMCPMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		if _, ok := contactPIIKeys[strings.ToLower(key)]; ok {
			output[key] = summarizeRedaction(value)
			continue
		}
		output[key] = redactMCPValue(value)
	}
	return output
}

// redactToolArguments returns a redacted copy of tool call arguments.
func redactToolArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	return redactMCPMap(args)
}

// summarizeRedaction replaces a value with a marker that keeps only its size.
func summarizeRedaction(value any) string {
	s, ok := value.(string)
	if !ok {
		return "<redacted>"
	}
	return fmt.Sprintf("<redacted:%d>", len(s))
}

// redactHookPayload renders a redacted JSON string for hook logging.
func redactHookPayload(payload any) string {
	data, err := encodeLogJSON(payload)
	if err != nil {
		return ""
	}
	return redactMCPBody(data)
}
