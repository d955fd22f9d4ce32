package auth

import (
	"encoding/json"
	"net/http"
)

// HTTPMiddleware rejects callers without the configured token and injects their
// auth context into request contexts.
func (a *Authenticator) HTTPMiddleware(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := a.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), authCtx)))
	})
}

// writeUnauthorized writes a standardized 401 body for auth middleware failures.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="xero-mcp"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
