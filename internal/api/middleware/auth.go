// Package middleware provides HTTP middleware for ResearchBridge.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/policy"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// Resolver turns a bearer token into a Principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (policy.Principal, error)
}

// RequireAuth resolves the Bearer JWT in the Authorization header and injects
// the Principal into the request context. Failures are written as 401
// JSON:API errors carrying the resolver's reason code.
func RequireAuth(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := res.Resolve(r.Context(), extractBearerToken(r))
			if err != nil {
				jsonapi.RenderErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth is RequireAuth for routes that also serve anonymous callers.
// A request without an Authorization header continues as the zero Principal;
// a header carrying a bad token is still rejected.
func OptionalAuth(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		required := RequireAuth(res)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			required.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the resolved Principal, or the zero Principal
// and false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (policy.Principal, bool) {
	p, ok := ctx.Value(principalKey).(policy.Principal)
	return p, ok
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
