package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type clientKey struct{}

// TokenResolver resolves a client name from a bearer token.
type TokenResolver interface {
	ResolveClient(ctx context.Context, token string) (string, error)
}

// StaticToken accepts a single shared token.
type StaticToken string

// ResolveClient implements TokenResolver.
func (s StaticToken) ResolveClient(_ context.Context, token string) (string, error) {
	if s == "" || subtle.ConstantTimeCompare([]byte(s), []byte(token)) != 1 {
		return "", ErrUnauthorized
	}
	return "default", nil
}

// ClientFromContext returns the authenticated client name, if present.
func ClientFromContext(ctx context.Context) (string, bool) {
	client, ok := ctx.Value(clientKey{}).(string)
	return client, ok
}

// AuthMiddleware enforces bearer token authentication. /health stays open.
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			client, err := resolver.ResolveClient(r.Context(), token)
			if err != nil || client == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), clientKey{}, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
