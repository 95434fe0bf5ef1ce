package stream

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSink records frames. A non-nil err makes every Send fail; a non-nil
// block channel holds Send until it is closed.
type fakeSink struct {
	mu       sync.Mutex
	frames   []string
	attempts int
	err      error
	block    chan struct{}
}

func (f *fakeSink) Send(frame []byte) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, string(frame))
	return nil
}

func (f *fakeSink) Frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

func (f *fakeSink) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeSink) FrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestSubscriber(sink *fakeSink, queueSize int) *Subscriber {
	return NewSubscriber(uuid.New(), sink, queueSize, discardLogger())
}
