package mcp

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	srv "github.com/mark3labs/mcp-go/server"
)

// exchangeLogger logs every MCP HTTP exchange at debug level with contact
// personal data redacted from both bodies.
type exchangeLogger struct {
	next   http.Handler
	logger logSDK.Logger
	limit  int
}

func newExchangeLogger(next http.Handler, logger logSDK.Logger, limit int) http.Handler {
	if next == nil {
		return nil
	}
	if logger == nil {
		return next
	}

	return &exchangeLogger{next: next, logger: logger, limit: limit}
}

func (l *exchangeLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startAt := time.Now()
	reqBody, err := peekRequestBody(r)
	if err != nil {
		l.logger.Warn("read mcp request body", zap.Error(err))
	}

	sessionID := strings.TrimSpace(r.Header.Get(srv.HeaderKeySessionID))
	l.logger.Debug("mcp http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("mcp_session_id", sessionID),
		zap.String("body", loggedBody(reqBody, len(reqBody) > l.limit, r.Header.Get("Content-Type"))),
	)

	capture := &responseCapture{ResponseWriter: w, limit: l.limit}
	l.next.ServeHTTP(capture, r)

	l.logger.Debug("mcp http response",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("mcp_session_id", sessionID),
		zap.Int("status", capture.statusCode()),
		zap.String("body", loggedBody(capture.body.Bytes(), capture.overflow, capture.Header().Get("Content-Type"))),
		zap.Duration("cost", time.Since(startAt)),
	)
}

// peekRequestBody reads the whole request body and puts it back for the next handler.
func peekRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

// loggedBody renders a body for the debug log. A cut body cannot be parsed for
// redaction, so only its size is kept.
func loggedBody(data []byte, truncated bool, contentType string) string {
	if truncated {
		return fmt.Sprintf("<truncated:%d>", len(data))
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/event-stream" {
		return redactSSEBody(string(data))
	}
	return redactMCPBody(string(data))
}

// responseCapture keeps up to limit bytes of the response for logging.
type responseCapture struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}

	if room := c.limit - c.body.Len(); room < len(b) {
		c.overflow = true
		if room > 0 {
			c.body.Write(b[:room])
		}
	} else {
		c.body.Write(b)
	}

	return c.ResponseWriter.Write(b)
}

// Flush lets streamable HTTP push SSE events through the capture.
func (c *responseCapture) Flush() {
	if flusher, ok := c.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (c *responseCapture) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
