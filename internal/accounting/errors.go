package accounting

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Laisky/xero-mcp/library/xero"
)

const (
	fallbackErrorMessage = "An unexpected error occurred."
	fallbackAPIMessage   = "An error occurred while communicating with Xero."
)

// FormatError renders any failure value as a human-readable message.
//
// Xero API errors are mapped by status code, errors use their message,
// everything else gets a stable fmt representation.
func FormatError(failure any) string {
	var msg string
	switch v := failure.(type) {
	case nil:
		return fallbackErrorMessage
	case error:
		if apiErr, ok := xero.AsAPIError(v); ok {
			return formatAPIError(apiErr)
		}
		msg = v.Error()
	case fmt.Stringer:
		msg = v.String()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%+v", v)
	}

	if msg = strings.TrimSpace(msg); msg == "" {
		return fallbackErrorMessage
	}
	return msg
}

func formatAPIError(apiErr *xero.APIError) string {
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return "Authentication failed. Please check your Xero credentials."
	case http.StatusForbidden:
		return "You don't have permission to access this resource in Xero."
	case http.StatusTooManyRequests:
		return "Too many requests to Xero. Please try again in a moment."
	}

	if detail := strings.TrimSpace(apiErr.Detail); detail != "" {
		return detail
	}
	if msgs := apiErr.ValidationMessages(); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	if msg := strings.TrimSpace(apiErr.Message); msg != "" {
		return msg
	}

	return fallbackAPIMessage
}
