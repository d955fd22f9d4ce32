package accounting

import (
	"net/http"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/xero-mcp/library/xero"
)

type namedFailure struct{ name string }

func (f namedFailure) String() string { return "failure " + f.name }

func TestFormatError(t *testing.T) {
	cases := []struct {
		name    string
		failure any
		want    string
	}{
		{"nil", nil, "An unexpected error occurred."},
		{"error", errors.New("boom"), "boom"},
		{"string", "plain text", "plain text"},
		{"blank string", "  ", "An unexpected error occurred."},
		{"stringer", namedFailure{name: "x"}, "failure x"},
		{"int", 42, "42"},
		{"struct", struct{ Code int }{Code: 7}, "{Code:7}"},
		{"unauthorized", &xero.APIError{StatusCode: http.StatusUnauthorized}, "Authentication failed. Please check your Xero credentials."},
		{"forbidden", errors.WithStack(&xero.APIError{StatusCode: http.StatusForbidden}), "You don't have permission to access this resource in Xero."},
		{"rate limited", errors.Wrap(&xero.APIError{StatusCode: http.StatusTooManyRequests}, "call"), "Too many requests to Xero. Please try again in a moment."},
		{"detail", &xero.APIError{StatusCode: http.StatusNotFound, Detail: "Contact not found"}, "Contact not found"},
		{"message", &xero.APIError{StatusCode: http.StatusBadRequest, Message: "A validation exception occurred"}, "A validation exception occurred"},
		{"bare api error", &xero.APIError{StatusCode: http.StatusInternalServerError}, "An error occurred while communicating with Xero."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, FormatError(tc.failure))
		})
	}
}

func TestFormatErrorValidationMessages(t *testing.T) {
	apiErr := &xero.APIError{StatusCode: http.StatusBadRequest, Message: "A validation exception occurred"}
	apiErr.Elements = []xero.ErrorElement{{
		ValidationErrors: []xero.ValidationError{{Message: "Name is required"}, {Message: "Email is invalid"}},
	}}

	require.Equal(t, "Name is required; Email is invalid", FormatError(apiErr))
}

func TestResultEnvelope(t *testing.T) {
	ok := Success(3)
	v, valid := ok.Value()
	require.True(t, valid)
	require.Equal(t, 3, v)
	require.False(t, ok.IsError())
	require.Empty(t, ok.Err())

	failed := Failure[int](errors.New("nope"))
	v, valid = failed.Value()
	require.False(t, valid)
	require.Zero(t, v)
	require.True(t, failed.IsError())
	require.Equal(t, "nope", failed.Err())

	var zero Result[string]
	require.True(t, zero.IsError())
	require.Equal(t, "An unexpected error occurred.", zero.Err())
}
