package stream

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lorrc/taskboard/internal/core/ports"
)

// SSESink writes frames to a text/event-stream HTTP response.
type SSESink struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration

	// mu serializes frames and heartbeats, which come from different goroutines.
	mu sync.Mutex
}

var _ ports.Sink = (*SSESink)(nil)

// NewSSESink wraps w. A zero writeTimeout leaves the server's deadline untouched.
func NewSSESink(w http.ResponseWriter, writeTimeout time.Duration) *SSESink {
	return &SSESink{
		w:            w,
		rc:           http.NewResponseController(w),
		writeTimeout: writeTimeout,
	}
}

// Open writes the stream headers and flushes them so the client sees the
// stream as established before the first event.
func (s *SSESink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	if err := s.extendDeadline(); err != nil {
		return err
	}
	s.w.WriteHeader(http.StatusOK)
	return s.rc.Flush()
}

// Send writes one frame and flushes it.
func (s *SSESink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(frame)
}

// Heartbeat writes an SSE comment line.
func (s *SSESink) Heartbeat() error {
	return s.Send(HeartbeatFrame)
}

func (s *SSESink) write(b []byte) error {
	if err := s.extendDeadline(); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *SSESink) extendDeadline() error {
	if s.writeTimeout <= 0 {
		return nil
	}
	err := s.rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
