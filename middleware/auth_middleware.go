package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upb/hydra-router/internal/observability"
	"github.com/upb/hydra-router/utils"
	"go.uber.org/zap"
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// AuthMiddleware guards the API with bearer tokens
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth rejects requests without a valid bearer token. On success the
// claims and a logger tagged with the token subject are put in the context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx, m.logger)

		token, ok := extractBearerToken(r)
		if !ok {
			logger.Warn("missing bearer token")
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			logger.Warn("token rejected", zap.Error(err))
			if errors.Is(err, ErrTokenExpired) {
				_ = utils.WriteUnauthorized(w, "Token expired")
			} else {
				_ = utils.WriteUnauthorized(w, "Invalid token")
			}
			return
		}

		ctx = WithClaims(ctx, claims)
		ctx = observability.WithLogger(ctx, logger.With(zap.String("sub", claims.Subject)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose token lacks role. Mount it after
// RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}
			if !claims.HasRole(role) {
				observability.LoggerFromContext(r.Context(), m.logger).Warn("missing role",
					zap.String("required_role", role),
					zap.Strings("roles", claims.Roles))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
