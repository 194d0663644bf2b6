package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader is the alternative to a bearer Authorization header.
const APIKeyHeader = "X-API-Key"

type contextKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}

// Middleware rejects requests without a valid API key with 401 and a JSON
// error body, and stores the principal in the request context otherwise.
func Middleware(keys *KeySet) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := keys.Validate(extractKey(r))
			if err != nil {
				logger.WarnContext(r.Context(), "request rejected",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				unauthorized(w, err)
				return
			}

			logger.DebugContext(r.Context(), "API key accepted", "key_name", p.KeyName)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// extractKey reads a bearer token or the X-API-Key header.
func extractKey(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="formarter"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "unauthorized",
			"message": err.Error(),
		},
	})
}
