package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/taskboard/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Maximum message size allowed from peer. Clients only send control frames.
	wsMaxMessageSize = 512
)

// WebSocketSink sends each frame as one text message on a websocket connection.
type WebSocketSink struct {
	conn     *websocket.Conn
	pongWait time.Duration

	// mu makes this the only writer on conn; gorilla connections support one
	// concurrent writer.
	mu sync.Mutex

	logger *slog.Logger
}

var _ ports.Sink = (*WebSocketSink)(nil)

// NewWebSocketSink wraps an upgraded connection. pongWait bounds how long the
// peer may stay silent before the read side gives up.
func NewWebSocketSink(conn *websocket.Conn, pongWait time.Duration, logger *slog.Logger) *WebSocketSink {
	return &WebSocketSink{
		conn:     conn,
		pongWait: pongWait,
		logger:   logger,
	}
}

// Send writes frame as a single text message.
func (s *WebSocketSink) Send(frame []byte) error {
	return s.write(websocket.TextMessage, frame)
}

// Ping writes a websocket ping control message.
func (s *WebSocketSink) Ping() error {
	return s.write(websocket.PingMessage, nil)
}

func (s *WebSocketSink) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// ReadPump consumes inbound messages until the peer goes away. Clients have
// nothing to say on this channel, so data messages are discarded; the loop
// exists to process pongs and detect closure.
func (s *WebSocketSink) ReadPump() {
	s.conn.SetReadLimit(wsMaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.pongWait)); err != nil {
		s.logger.Error("failed to set read deadline", "error", err)
		return
	}

	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.pongWait)); err != nil {
			s.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

// Close sends a close message with the given code and closes the connection.
func (s *WebSocketSink) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)); err != nil {
		s.logger.Debug("failed to send close message", "error", err)
	}
	_ = s.conn.Close()
}
