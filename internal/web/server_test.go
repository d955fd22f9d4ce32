package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/xero-mcp/internal/mcp/calllog"
)

var (
	ginModeOnce sync.Once
)

const testAPIToken = "sk-web-test"

func authorize(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	return req
}

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func TestAllowCORS(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		origin         string
		expectedStatus int
		expectedCORS   bool
	}{
		{
			name:           "No origin header - should pass through",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Configured host - GET request",
			method:         http.MethodGet,
			origin:         "https://example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Subdomain of configured host - POST request",
			method:         http.MethodPost,
			origin:         "https://inspector.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Localhost with port - preflight",
			method:         http.MethodOptions,
			origin:         "http://localhost:6274",
			expectedStatus: http.StatusNoContent,
			expectedCORS:   true,
		},
		{
			name:           "Loopback IP - preflight",
			method:         http.MethodOptions,
			origin:         "http://127.0.0.1:3000",
			expectedStatus: http.StatusNoContent,
			expectedCORS:   true,
		},
		{
			name:           "Lookalike suffix - rejected preflight",
			method:         http.MethodOptions,
			origin:         "https://badexample.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Unknown origin - GET passes without CORS headers",
			method:         http.MethodGet,
			origin:         "https://evil.test",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(newCORSMiddleware([]string{"example.com"}))
			router.Any("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCORS {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")
				assert.Equal(t, "Mcp-Session-Id", w.Header().Get("Access-Control-Expose-Headers"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	t.Parallel()

	allowed := []string{"example.com"}
	assert.True(t, isAllowedOrigin("https://example.com", allowed))
	assert.True(t, isAllowedOrigin("https://a.b.example.com:8443", allowed))
	assert.True(t, isAllowedOrigin("http://[::1]:8080", allowed))
	assert.False(t, isAllowedOrigin("https://example.com.evil.test", allowed))
	assert.False(t, isAllowedOrigin("not a url", allowed))
	assert.False(t, isAllowedOrigin("https://example.com", nil))
}

func TestWithAllowedOriginsNormalizes(t *testing.T) {
	t.Parallel()

	var o serverOptions
	WithAllowedOrigins(" Example.COM ", "", "xero.com")(&o)
	require.Equal(t, []string{"example.com", "xero.com"}, o.allowedOrigins)
}

func TestNewServerValidation(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	logger := logSDK.Shared.Named("test_web")
	h := http.NotFoundHandler()

	_, err := NewServer("", h, logger, WithAPIToken(testAPIToken))
	require.ErrorContains(t, err, "listen address")

	_, err = NewServer(":0", nil, logger, WithAPIToken(testAPIToken))
	require.ErrorContains(t, err, "mcp handler")

	_, err = NewServer(":0", h, nil, WithAPIToken(testAPIToken))
	require.ErrorContains(t, err, "logger")

	_, err = NewServer(":0", h, logger)
	require.ErrorContains(t, err, "api token is required")
}

func TestServerRoutes(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	logger := logSDK.Shared.Named("test_web_routes")
	var mcpMethods []string
	var mu sync.Mutex
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		mcpMethods = append(mcpMethods, r.Method)
		mu.Unlock()
		w.Header().Set("Mcp-Session-Id", "session-1")
		w.WriteHeader(http.StatusAccepted)
	})
	logsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	server, err := NewServer(":0", mcpHandler, logger,
		WithDebug(true),
		WithAPIToken(testAPIToken),
		WithCallLogHandler(logsHandler),
		WithAllowedOrigins("example.com"),
	)
	require.NoError(t, err)
	handler := server.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "hello, world", w.Body.String())

	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		w = httptest.NewRecorder()
		req := authorize(httptest.NewRequest(method, MCPPath, strings.NewReader(`{}`)))
		req.Header.Set("Origin", "https://app.example.com")
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code, method)
		require.Equal(t, "session-1", w.Header().Get("Mcp-Session-Id"))
		require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	}
	mu.Lock()
	require.Equal(t, []string{http.MethodPost, http.MethodGet, http.MethodDelete}, mcpMethods)
	mu.Unlock()

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, authorize(httptest.NewRequest(http.MethodGet, calllog.ListPath, nil)))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestServerRejectsUnauthenticatedCallers(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	var reached bool
	reach := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	server, err := NewServer(":0", reach, logSDK.Shared.Named("test_web_auth"),
		WithDebug(true),
		WithAPIToken(testAPIToken),
		WithCallLogHandler(reach),
		WithAllowedOrigins("example.com"),
	)
	require.NoError(t, err)
	handler := server.Handler()

	for _, path := range []string{MCPPath, calllog.ListPath} {
		for _, header := range []string{"", "Bearer sk-wrong"} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			handler.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code, "%s %q", path, header)
		}
	}
	require.False(t, reached)

	// preflight and health stay open
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, MCPPath, nil)
	req.Header.Set("Origin", "https://example.com")
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerWithoutCallLog(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	server, err := NewServer(":0", http.NotFoundHandler(), logSDK.Shared.Named("test_web_no_logs"), WithDebug(true), WithAPIToken(testAPIToken))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, authorize(httptest.NewRequest(http.MethodGet, calllog.ListPath, nil)))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	server, err := NewServer("127.0.0.1:0", http.NotFoundHandler(), logSDK.Shared.Named("test_web_run"), WithDebug(true), WithAPIToken(testAPIToken))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
