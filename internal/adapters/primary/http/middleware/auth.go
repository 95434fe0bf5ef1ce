package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/lorrc/taskboard/internal/core/ports"
	"github.com/lorrc/taskboard/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityKey is the key used to store the authenticated identity in the request context.
const IdentityKey contextKey = "identity"

var (
	errMissingCredential = errors.New("missing credential")
	errMalformedHeader   = errors.New("authorization header format must be Bearer {token}")
)

// JWTMiddleware validates the bearer token from the Authorization header.
func JWTMiddleware(verifier ports.CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			tokenString, err := parseBearer(authHeader)
			if err != nil {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Add the identity to the context for downstream handlers to use.
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores identity in ctx, and its user ID for the logger.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	ctx = context.WithValue(ctx, IdentityKey, identity)
	return logging.WithUserID(ctx, identity.UserID.String())
}

// IdentityFromContext returns the identity stored by JWTMiddleware or the stream gate.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func parseBearer(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errMalformedHeader
	}
	return parts[1], nil
}
