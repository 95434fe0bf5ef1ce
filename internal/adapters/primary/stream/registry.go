package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/taskboard/internal/adapters/metrics"
	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// Registry maintains the open subscribers of every project and fans events out to them.
type Registry struct {
	// mu guards projects and closed. Lock order is mu, then projectSet.mu,
	// then Subscriber.mu.
	mu       sync.Mutex
	projects map[domain.ProjectID]*projectSet
	closed   bool

	metrics *metrics.StreamMetrics
	logger  *slog.Logger
}

// projectSet is the subscriber set of one project. Its mutex serializes
// subscribe, unsubscribe and broadcast for that project only.
type projectSet struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	// dropped is set once the set is removed from the registry map; a
	// dropped set is never written to again.
	dropped bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	registry   *Registry
	projectID  domain.ProjectID
	subscriber *Subscriber
}

// ProjectID returns the project this subscription is registered under.
func (s *Subscription) ProjectID() domain.ProjectID {
	return s.projectID
}

// Done is closed once the subscription has been removed, for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.subscriber.Done()
}

// Unsubscribe is shorthand for Registry.Unsubscribe(s).
func (s *Subscription) Unsubscribe() {
	s.registry.Unsubscribe(s)
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Projects    int `json:"projects"`
	Subscribers int `json:"subscribers"`
}

var (
	_ ports.EventBroadcaster = (*Registry)(nil)
	_ ports.ProjectCloser    = (*Registry)(nil)
)

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.StreamMetrics, logger *slog.Logger) *Registry {
	return &Registry{
		projects: make(map[domain.ProjectID]*projectSet),
		metrics:  m,
		logger:   logger.With("component", "broadcast_registry"),
	}
}

// Subscribe admits sub under projectID and starts its writer. From the moment
// Subscribe returns, sub receives every event broadcast to projectID.
func (r *Registry) Subscribe(projectID domain.ProjectID, sub *Subscriber) (*Subscription, error) {
	for {
		set, err := r.setFor(projectID)
		if err != nil {
			return nil, err
		}

		set.mu.Lock()
		if set.dropped {
			// Emptied and removed between lookup and lock; look up again.
			set.mu.Unlock()
			continue
		}
		if !sub.activate() {
			set.mu.Unlock()
			r.dropIfEmpty(projectID, set)
			return nil, fmt.Errorf("subscribe %s: %w", sub.ID, errNotActive)
		}
		set.subscribers[sub] = struct{}{}
		size := len(set.subscribers)
		set.mu.Unlock()

		handle := &Subscription{registry: r, projectID: projectID, subscriber: sub}
		go sub.run(r.metrics.FrameDelivered, func(err error) {
			r.release(projectID, sub, err, metrics.ReasonWriteError)
		})

		r.metrics.SubscriberAdded()
		r.logger.Debug("subscriber registered",
			"project_id", projectID,
			"subscriber_id", sub.ID,
			"user_id", sub.UserID,
			"project_subscribers", size,
		)
		return handle, nil
	}
}

// Unsubscribe removes the subscription. Calling it more than once, or after
// the registry already removed the subscriber, is a no-op.
func (r *Registry) Unsubscribe(handle *Subscription) {
	if handle == nil {
		return
	}
	if !handle.subscriber.close() {
		return
	}
	r.remove(handle.projectID, handle.subscriber)
	r.metrics.SubscriberRemoved()

	r.logger.Debug("subscriber unregistered",
		"project_id", handle.projectID,
		"subscriber_id", handle.subscriber.ID,
	)
}

// Broadcast encodes event once and queues it on every subscriber of
// projectID. Delivery failures are handled here and never returned; the only
// error is an event that cannot be encoded.
func (r *Registry) Broadcast(projectID domain.ProjectID, event any) error {
	frame, err := EncodeFrame(event)
	if err != nil {
		return fmt.Errorf("encode event for project %s: %w", projectID, err)
	}
	r.metrics.BroadcastReceived()

	set := r.lookup(projectID)
	if set == nil {
		return nil
	}

	var full []*Subscriber
	set.mu.Lock()
	for sub := range set.subscribers {
		if err := sub.enqueue(frame); errors.Is(err, apperrors.ErrQueueFull) {
			full = append(full, sub)
		}
	}
	recipients := len(set.subscribers)
	set.mu.Unlock()

	for _, sub := range full {
		r.release(projectID, sub, apperrors.ErrQueueFull, metrics.ReasonQueueFull)
	}

	r.logger.Debug("event broadcast",
		"project_id", projectID,
		"recipients", recipients,
		"dropped", len(full),
	)
	return nil
}

// CloseProject closes every subscription of projectID and returns how many were closed.
func (r *Registry) CloseProject(projectID domain.ProjectID) int {
	r.mu.Lock()
	set, ok := r.projects[projectID]
	if !ok {
		r.mu.Unlock()
		return 0
	}
	delete(r.projects, projectID)
	subs := set.drop()
	r.mu.Unlock()

	closed := r.closeAll(subs)
	if closed > 0 {
		r.logger.Info("project subscriptions closed",
			"project_id", projectID,
			"closed", closed,
		)
	}
	return closed
}

// Close removes every subscriber and rejects further subscriptions. It is
// safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true

	var subs []*Subscriber
	for _, set := range r.projects {
		subs = append(subs, set.drop()...)
	}
	r.projects = make(map[domain.ProjectID]*projectSet)
	r.mu.Unlock()

	closed := r.closeAll(subs)
	r.logger.Info("broadcast registry closed", "closed_subscribers", closed)
}

// SubscriberCount returns the number of subscribers registered under projectID.
func (r *Registry) SubscriberCount(projectID domain.ProjectID) int {
	set := r.lookup(projectID)
	if set == nil {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.subscribers)
}

// Stats returns the number of projects with subscribers and the total subscriber count.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Projects: len(r.projects)}
	for _, set := range r.projects {
		set.mu.Lock()
		stats.Subscribers += len(set.subscribers)
		set.mu.Unlock()
	}
	return stats
}

// setFor returns the set for projectID, creating it if absent.
func (r *Registry) setFor(projectID domain.ProjectID) (*projectSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, apperrors.ErrRegistryClosed
	}
	set, ok := r.projects[projectID]
	if !ok {
		set = &projectSet{subscribers: make(map[*Subscriber]struct{})}
		r.projects[projectID] = set
	}
	return set, nil
}

func (r *Registry) lookup(projectID domain.ProjectID) *projectSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[projectID]
}

// remove deletes sub from its project set and drops the set once empty.
func (r *Registry) remove(projectID domain.ProjectID, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.projects[projectID]
	if !ok {
		return
	}
	set.mu.Lock()
	delete(set.subscribers, sub)
	if len(set.subscribers) == 0 {
		set.dropped = true
		delete(r.projects, projectID)
	}
	set.mu.Unlock()
}

// dropIfEmpty removes set from the map if it is still registered and has no subscribers.
func (r *Registry) dropIfEmpty(projectID domain.ProjectID, set *projectSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.projects[projectID] != set {
		return
	}
	set.mu.Lock()
	if len(set.subscribers) == 0 {
		set.dropped = true
		delete(r.projects, projectID)
	}
	set.mu.Unlock()
}

// release is the implicit unsubscribe that follows a delivery failure.
func (r *Registry) release(projectID domain.ProjectID, sub *Subscriber, cause error, reason string) {
	if !sub.close() {
		return
	}
	r.remove(projectID, sub)
	r.metrics.SubscriberRemoved()
	r.metrics.DeliveryFailed(reason)

	sub.logger.Warn("subscriber removed after delivery failure",
		"project_id", projectID,
		"reason", reason,
		"error", fmt.Errorf("%w: %w", apperrors.ErrDeliveryFailure, cause),
	)
}

func (r *Registry) closeAll(subs []*Subscriber) int {
	closed := 0
	for _, sub := range subs {
		if sub.close() {
			r.metrics.SubscriberRemoved()
			closed++
		}
	}
	return closed
}

// drop empties the set and marks it dropped. Caller holds the registry lock.
func (s *projectSet) drop() []*Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]*Subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subscribers = make(map[*Subscriber]struct{})
	s.dropped = true
	return subs
}
