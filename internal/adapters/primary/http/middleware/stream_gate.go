package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lorrc/taskboard/internal/adapters/metrics"
	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// DefaultStreamPrefix is the path prefix of subscription endpoints.
const DefaultStreamPrefix = "/api/v1/stream/"

// TokenQueryParam carries the credential for clients that cannot set headers
// (EventSource, browser WebSocket).
const TokenQueryParam = "token"

// StreamGate admits connections to subscription endpoints. Requests outside
// its path prefix are passed through untouched.
type StreamGate struct {
	verifier ports.CredentialVerifier
	prefix   string
	metrics  *metrics.StreamMetrics
	logger   *slog.Logger
}

// NewStreamGate creates a gate for paths under prefix. m may be nil.
func NewStreamGate(verifier ports.CredentialVerifier, prefix string, m *metrics.StreamMetrics, logger *slog.Logger) *StreamGate {
	if prefix == "" {
		prefix = DefaultStreamPrefix
	}
	return &StreamGate{
		verifier: verifier,
		prefix:   prefix,
		metrics:  m,
		logger:   logger.With("component", "stream_gate"),
	}
}

// Applies reports whether path is a subscription endpoint.
func (g *StreamGate) Applies(path string) bool {
	return strings.HasPrefix(path, g.prefix)
}

// Authenticate verifies the request's bearer credential. Every failure is
// reported as apperrors.ErrUnauthenticated; the cause is only logged.
func (g *StreamGate) Authenticate(r *http.Request) (*domain.Identity, error) {
	credential, err := streamCredential(r)
	if err != nil {
		g.reject(r, err)
		return nil, apperrors.ErrUnauthenticated
	}

	identity, err := g.verifier.Verify(r.Context(), credential)
	if err != nil {
		g.reject(r, err)
		return nil, apperrors.ErrUnauthenticated
	}
	return identity, nil
}

// Middleware rejects unauthenticated requests to subscription endpoints with 401.
func (g *StreamGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Applies(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := g.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required","code":"UNAUTHENTICATED"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (g *StreamGate) reject(r *http.Request, cause error) {
	g.metrics.ConnectRejected()
	g.logger.WarnContext(r.Context(), "stream connection rejected",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error", cause,
	)
}

// streamCredential reads the Authorization header, falling back to the token query parameter.
func streamCredential(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return parseBearer(header)
	}
	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token, nil
	}
	return "", errMissingCredential
}
