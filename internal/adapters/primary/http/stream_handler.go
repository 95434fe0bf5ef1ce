package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	mw "github.com/lorrc/taskboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/taskboard/internal/adapters/primary/stream"
	"github.com/lorrc/taskboard/internal/config"
	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/infrastructure/logging"
)

// StreamConfig holds configuration for the subscription endpoints
type StreamConfig struct {
	QueueSize         int
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	PongWait          time.Duration
	ReadBufferSize    int
	WriteBufferSize   int
	AllowedOrigins    []string
	AllowAllOrigins   bool
}

// NewStreamConfig derives the handler configuration from the application config.
func NewStreamConfig(cfg *config.Config) StreamConfig {
	return StreamConfig{
		QueueSize:         cfg.Stream.QueueSize,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		WriteTimeout:      cfg.Stream.WriteTimeout,
		PongWait:          cfg.Stream.PongWait,
		ReadBufferSize:    cfg.Stream.ReadBufferSize,
		WriteBufferSize:   cfg.Stream.WriteBufferSize,
		AllowedOrigins:    cfg.Stream.AllowedOrigins,
		AllowAllOrigins:   cfg.IsDevelopment(),
	}
}

// StreamHandler serves the SSE and WebSocket subscription endpoints. The
// stream gate has authenticated the request before it gets here.
type StreamHandler struct {
	registry     *stream.Registry
	cfg          StreamConfig
	clock        clockwork.Clock
	upgrader     websocket.Upgrader
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(
	registry *stream.Registry,
	cfg StreamConfig,
	clock clockwork.Clock,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *StreamHandler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = stream.DefaultQueueSize
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 25 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}

	h := &StreamHandler{
		registry:     registry,
		cfg:          cfg,
		clock:        clock,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "stream"),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.makeOriginChecker(),
	}

	return h
}

// RegisterRoutes sets up the subscription endpoints.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/events", h.HandleEvents)
	r.Get("/projects/{projectID}/ws", h.HandleWebSocket)
}

// HandleEvents handles GET /stream/projects/{projectID}/events
func (h *StreamHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	identity, projectID, ok := h.subscriber(w, r)
	if !ok {
		return
	}
	ctx := logging.WithProjectID(r.Context(), projectID.String())

	sink := stream.NewSSESink(w, h.cfg.WriteTimeout)
	if err := sink.Open(); err != nil {
		h.logger.WarnContext(ctx, "failed to open event stream", "error", err)
		return
	}

	sub := stream.NewSubscriber(identity.UserID, sink, h.cfg.QueueSize, h.logger)
	handle, err := h.registry.Subscribe(projectID, sub)
	if err != nil {
		// Headers are already out; ending the response is all that is left.
		h.logger.WarnContext(ctx, "event stream refused", "error", err)
		return
	}
	defer func() {
		handle.Unsubscribe()
		sub.Wait()
	}()
	ctx = logging.WithSubscriberID(ctx, sub.ID.String())

	h.logger.InfoContext(ctx, "event stream opened")

	heartbeat := h.clock.NewTicker(h.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.InfoContext(ctx, "event stream closed by client")
			return
		case <-handle.Done():
			h.logger.InfoContext(ctx, "event stream closed by server")
			return
		case <-heartbeat.Chan():
			if err := sink.Heartbeat(); err != nil {
				h.logger.DebugContext(ctx, "heartbeat failed", "error", err)
				return
			}
		}
	}
}

// HandleWebSocket handles GET /stream/projects/{projectID}/ws
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, projectID, ok := h.subscriber(w, r)
	if !ok {
		return
	}
	ctx := logging.WithProjectID(r.Context(), projectID.String())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	sink := stream.NewWebSocketSink(conn, h.cfg.PongWait, h.logger)
	sub := stream.NewSubscriber(identity.UserID, sink, h.cfg.QueueSize, h.logger)
	handle, err := h.registry.Subscribe(projectID, sub)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket stream refused", "error", err)
		sink.Close(websocket.CloseTryAgainLater, "server shutting down")
		return
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		sink.ReadPump()
	}()

	ctx = logging.WithSubscriberID(ctx, sub.ID.String())
	h.logger.InfoContext(ctx, "websocket stream opened")

	ping := h.clock.NewTicker(h.cfg.PongWait * 9 / 10)
	defer ping.Stop()

	closeCode := websocket.CloseNormalClosure
loop:
	for {
		select {
		case <-readDone:
			break loop
		case <-handle.Done():
			closeCode = websocket.CloseGoingAway
			break loop
		case <-ping.Chan():
			if err := sink.Ping(); err != nil {
				h.logger.DebugContext(ctx, "websocket ping failed", "error", err)
				break loop
			}
		}
	}

	handle.Unsubscribe()
	sub.Wait()
	sink.Close(closeCode, "")
	<-readDone

	h.logger.InfoContext(ctx, "websocket stream closed")
}

// subscriber extracts the authenticated identity and the target project.
func (h *StreamHandler) subscriber(w http.ResponseWriter, r *http.Request) (*domain.Identity, domain.ProjectID, bool) {
	identity, ok := mw.IdentityFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthenticated)
		return nil, "", false
	}

	projectID := domain.ProjectID(chi.URLParam(r, "projectID"))
	if projectID == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrProjectIDRequired)
		return nil, "", false
	}

	return identity, projectID, true
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *StreamHandler) makeOriginChecker() func(r *http.Request) bool {
	allowedOrigins := h.cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if h.cfg.AllowAllOrigins {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// originAllowed matches host against allowed entries. Entries may be full
// origins ("https://app.example.com"), bare hosts, or wildcard subdomains
// ("*.example.com").
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if u, err := url.Parse(entry); err == nil && u.Host != "" {
			entry = u.Host
		}

		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:]
			if strings.HasSuffix(host, suffix) || host == entry[2:] {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}
