package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "watchpost/pkg/domain"
	"watchpost/pkg/requestcontext"

	"watchpost/internal/platform/token"
)

// JWTValidator validates bearer tokens and returns their claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token. The principal
// ID from the claims lands in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := principalFromRequest(r, validator, logger)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"missing or invalid bearer token"}`))
				return
			}
			ctx := requestcontext.WithPrincipalID(r.Context(), principalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth admits anonymous requests but attaches the principal when a
// valid token is present. Validation submission uses this: anonymous
// validations carry no principal.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principalID, ok := principalFromRequest(r, validator, logger); ok {
				ctx := requestcontext.WithPrincipalID(r.Context(), principalID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principalFromRequest(r *http.Request, validator JWTValidator, logger *slog.Logger) (id.PrincipalID, bool) {
	authHeader := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return id.PrincipalID{}, false
	}

	claims, err := validator.ValidateToken(raw)
	if err != nil {
		logger.WarnContext(r.Context(), "invalid bearer token",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		return id.PrincipalID{}, false
	}

	principalID, err := id.ParsePrincipalID(claims.PrincipalID)
	if err != nil {
		logger.WarnContext(r.Context(), "token carries malformed principal id",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		return id.PrincipalID{}, false
	}
	return principalID, true
}
