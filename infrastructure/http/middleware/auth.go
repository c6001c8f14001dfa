package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/techstore/storefront/application/authz"
	"github.com/techstore/storefront/application/port/outbound"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/http/response"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

const (
	AccessTokenCookie  = "access"
	RefreshTokenCookie = "refresh"
)

type contextKey string

const claimsKey contextKey = "access_claims"

type AuthMiddleware struct {
	tokenService outbound.TokenService
	logger       logger.Logger
}

func NewAuthMiddleware(tokenService outbound.TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		logger:       log,
	}
}

// AccessToken reads the access token from its cookie, then from an
// Authorization: Bearer header.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RefreshToken only ever comes from the refresh cookie.
func RefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.tokenService.ValidateAccess(AccessToken(r))
		if err != nil {
			logger.LogAuthEvent(r.Context(), m.logger, "access_rejected", "", ClientIP(r), false, map[string]interface{}{
				"code": string(domainerror.CodeOf(err)),
				"path": r.URL.Path,
			})
			response.FromError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = logger.ContextWithPrincipalID(ctx, claims.PrincipalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route that RequireAuth already ran on.
func (m *AuthMiddleware) RequireRole(roles ...valueobject.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if err := authz.Check(claims, roles...); err != nil {
				if claims != nil {
					logger.LogSecurityEvent(r.Context(), m.logger, "role_forbidden", "MEDIUM", map[string]interface{}{
						"role": claims.Role.String(),
						"path": r.URL.Path,
					})
				}
				response.FromError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims returns the validated access claims, or nil on public routes.
func GetClaims(ctx context.Context) *valueobject.AccessClaims {
	if claims, ok := ctx.Value(claimsKey).(*valueobject.AccessClaims); ok {
		return claims
	}
	return nil
}

// ClientIP prefers the proxy headers, then the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}
