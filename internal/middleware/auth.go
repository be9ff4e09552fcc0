package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
	AuthBearer AuthMode = "bearer"
)

type AuthConfig struct {
	Mode        AuthMode
	APIKey      string
	BearerToken string
	// SkipPaths are left open. An entry ending in "/" matches every path
	// below it.
	SkipPaths []string
}

type authErr struct {
	Error string `json:"error"`
}

func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Mode == AuthNone || cfg.Mode == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflights carry no credentials
			if r.Method == http.MethodOptions || skipped(cfg.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			switch cfg.Mode {
			case AuthAPIKey:
				// Header: X-API-Key: <key>
				if constantTimeEq(r.Header.Get("X-API-Key"), cfg.APIKey) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `ApiKey realm="tasktree", header="X-API-Key"`)

			case AuthBearer:
				// Header: Authorization: Bearer <token>
				authz := r.Header.Get("Authorization")
				if token, ok := strings.CutPrefix(authz, "Bearer "); ok && constantTimeEq(strings.TrimSpace(token), cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `Bearer realm="tasktree"`)

			default:
				// unknown modes fail closed
				unauthorized(w, "")
			}
		})
	}
}

func skipped(paths []string, path string) bool {
	for _, p := range paths {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func constantTimeEq(a, b string) bool {
	if len(a) != len(b) || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("Content-Type", "application/json")
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(authErr{Error: "unauthorized"})
}
