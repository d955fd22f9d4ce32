package xero

import "net/http"

// Version is reported to Xero in the User-Agent of every request.
var Version = "1.0.0"

// ClientHeaders returns the headers identifying this server to Xero.
func ClientHeaders() http.Header {
	headers := http.Header{}
	headers.Set("User-Agent", "xero-mcp-server/"+Version)
	return headers
}
