package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
)

type contextKey string

const authClaimsKey contextKey = "auth_claims"

type AuthMiddleware struct {
	tokenService outbound.TokenService
}

func NewAuthMiddleware(tokenService outbound.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			response.Unauthorized(w, "Token cannot be empty")
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// RequireRole admits authenticated callers holding one of roles.
func (m *AuthMiddleware) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserClaims(r.Context())
		if claims == nil {
			response.Unauthorized(w, "User not authenticated")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		response.Forbidden(w, "Insufficient role")
	})
}

func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireRole(next, entity.RoleAdmin)
}

// WithClaims stores verified token claims on ctx.
func WithClaims(ctx context.Context, claims *outbound.TokenClaims) context.Context {
	return context.WithValue(ctx, authClaimsKey, claims)
}

// GetUserClaims retrieves user claims from context
func GetUserClaims(ctx context.Context) *outbound.TokenClaims {
	if claims, ok := ctx.Value(authClaimsKey).(*outbound.TokenClaims); ok {
		return claims
	}
	return nil
}

// ActorFromContext turns the caller's claims into a workflow actor. The engine
// still consults the approval policy for coordinator addresses.
func ActorFromContext(ctx context.Context) (valueobject.Actor, bool) {
	claims := GetUserClaims(ctx)
	if claims == nil || claims.Email == "" {
		return valueobject.Actor{}, false
	}
	return valueobject.NewActor(claims.Email, claims.Name, claims.Role, claims.Role == entity.RolePOC), true
}
