package stream

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// DefaultQueueSize is the per-subscriber outbound queue depth used when none is configured.
const DefaultQueueSize = 64

// State is the lifecycle state of a subscriber.
type State int

const (
	// StatePending: the connection passed the gate but is not registered yet.
	StatePending State = iota
	// StateActive: registered and eligible for delivery.
	StateActive
	// StateClosed: removed from the registry. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var errNotActive = errors.New("subscriber not active")

// Subscriber is one open connection. It is owned by the registry entry it is
// registered under and has no lifecycle outside of it.
type Subscriber struct {
	ID     uuid.UUID
	UserID uuid.UUID

	sink  ports.Sink
	queue chan []byte

	// mu guards state; enqueue and close both take it so that no frame is
	// queued once close has returned.
	mu    sync.Mutex
	state State

	done   chan struct{}
	writer sync.WaitGroup

	logger *slog.Logger
}

// NewSubscriber creates a pending subscriber writing to sink.
func NewSubscriber(userID uuid.UUID, sink ports.Sink, queueSize int, logger *slog.Logger) *Subscriber {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	id := uuid.New()
	return &Subscriber{
		ID:     id,
		UserID: userID,
		sink:   sink,
		queue:  make(chan []byte, queueSize),
		state:  StatePending,
		done:   make(chan struct{}),
		logger: logger.With("subscriber_id", id.String(), "user_id", userID.String()),
	}
}

// State returns the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the subscriber reaches StateClosed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the writer goroutine has exited. After Wait returns the
// sink is no longer used by the registry.
func (s *Subscriber) Wait() {
	s.writer.Wait()
}

// activate moves Pending to Active and reserves the writer goroutine.
func (s *Subscriber) activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return false
	}
	s.state = StateActive
	s.writer.Add(1)
	return true
}

// close moves the subscriber to Closed. It reports whether this call made the
// transition, so callers can run removal side effects exactly once.
func (s *Subscriber) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	close(s.done)
	return true
}

// enqueue queues a frame without blocking.
func (s *Subscriber) enqueue(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return errNotActive
	}

	select {
	case s.queue <- frame:
		return nil
	default:
		return apperrors.ErrQueueFull
	}
}

// run drains the queue into the sink until the subscriber closes or a write fails.
func (s *Subscriber) run(onDelivered func(), onFailure func(error)) {
	defer s.writer.Done()

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.queue:
			// Frames still queued when the subscriber closed are dropped.
			select {
			case <-s.done:
				return
			default:
			}

			if err := s.sink.Send(frame); err != nil {
				onFailure(err)
				return
			}
			onDelivered()
		}
	}
}
