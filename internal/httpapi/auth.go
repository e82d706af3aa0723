package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"llmctl/internal/config"
)

// requireAPIKey enforces [server] use_auth on the wrapped routes. Keys are
// read per request so config changes apply without a restart. A request is
// accepted with "Authorization: Bearer <key>" or "X-API-Key: <key>".
func requireAPIKey(cfg func() config.ServerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := cfg()
			if !sc.UseAuth {
				next.ServeHTTP(w, r)
				return
			}
			key := presentedKey(r)
			if key == "" || !keyAllowed(key, sc.Keys()) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="llmctl"`)
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if k, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(k)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func keyAllowed(key string, keys []string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
