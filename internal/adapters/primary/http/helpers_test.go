package http

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/taskboard/internal/adapters/metrics"
	mw "github.com/lorrc/taskboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/taskboard/internal/adapters/primary/stream"
	"github.com/lorrc/taskboard/internal/auth"
	"github.com/lorrc/taskboard/internal/core/mocks"
)

const testHeartbeat = 25 * time.Second

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	server   *httptest.Server
	registry *stream.Registry
	tokens   *auth.TokenManager
	clock    clockwork.FakeClock
	projects *mocks.MockProjectService
	tasks    *mocks.MockTaskService
	userID   uuid.UUID
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLimiter(t, nil)
}

func newTestEnvWithLimiter(t *testing.T, streamLimiter *mw.RateLimiter) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	streamMetrics := metrics.NewStreamMetrics(reg)
	registry := stream.NewRegistry(streamMetrics, discardLogger)
	tokens := auth.NewTokenManager("handler-secret", time.Hour)
	clock := clockwork.NewFakeClock()
	projects := mocks.NewMockProjectService()
	tasks := mocks.NewMockTaskService()
	errorHandler := NewErrorHandler(discardLogger)

	streams := NewStreamHandler(registry, StreamConfig{
		QueueSize:         stream.DefaultQueueSize,
		HeartbeatInterval: testHeartbeat,
		WriteTimeout:      5 * time.Second,
		PongWait:          time.Minute,
		AllowAllOrigins:   true,
	}, clock, errorHandler, discardLogger)

	router := NewRouter(RouterConfig{
		Logger:     discardLogger,
		Verifier:   tokens,
		StreamGate: mw.NewStreamGate(tokens, mw.DefaultStreamPrefix, streamMetrics, discardLogger),
		Health:     NewHealthHandler(nil, registry, "test"),
		Projects: NewProjectHandler(projects,
			NewTaskHandler(tasks, errorHandler, discardLogger),
			errorHandler, discardLogger),
		Streams:        streams,
		Metrics:        metrics.Handler(reg),
		StreamLimiter:  streamLimiter,
		AllowedOrigins: []string{"*"},
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		// Ending every stream first lets the server drain its handlers.
		registry.Close()
		server.Close()
	})

	userID := uuid.New()
	token, err := tokens.GenerateToken(userID, "member")
	require.NoError(t, err)

	return &testEnv{
		server:   server,
		registry: registry,
		tokens:   tokens,
		clock:    clock,
		projects: projects,
		tasks:    tasks,
		userID:   userID,
		token:    token,
	}
}
