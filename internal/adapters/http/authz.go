package http

import (
	"context"
	"net/http"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Authenticator resolves an access token to an active principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
}

// RequireAuth is the identity stage of the Authorization Gate. It rejects
// requests without a valid bearer token for an active account and attaches
// the principal to the request context.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeMissingBearerError(r.Context(), w, "authorization_gate")
				return
			}
			principal, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				writeMappedError(r.Context(), w, "authorization_gate", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRoles is the role stage of the gate. Each route lists every role it
// admits; admin is not implied.
func RequireRoles(allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMappedError(r.Context(), w, "authorize_roles", domain.ErrUnauthenticated)
				return
			}
			if err := domain.AuthorizeRoles(principal, allowed...); err != nil {
				writeMappedError(r.Context(), w, "authorize_roles", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOrRoles admits the account addressed by the URL parameter
// regardless of role, and otherwise the listed roles.
func RequireOwnerOrRoles(param string, allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMappedError(r.Context(), w, "authorize_owner", domain.ErrUnauthenticated)
				return
			}
			ownerID, _ := uuid.Parse(chi.URLParam(r, param))
			if err := domain.AuthorizeOwnerOrRoles(principal, ownerID, allowed...); err != nil {
				writeMappedError(r.Context(), w, "authorize_owner", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithPrincipal attaches the resolved identity for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the identity attached by RequireAuth.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(domain.Principal)
	return p, ok
}
