package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery failure reasons.
const (
	ReasonQueueFull  = "queue_full"
	ReasonWriteError = "write_error"
)

// StreamMetrics holds Prometheus metrics for project event streams.
// A nil *StreamMetrics is valid and records nothing.
type StreamMetrics struct {
	ActiveSubscribers prometheus.Gauge
	Broadcasts        prometheus.Counter
	FramesDelivered   prometheus.Counter
	DeliveryFailures  *prometheus.CounterVec
	RejectedConnects  prometheus.Counter
}

// NewStreamMetrics creates and registers stream metrics on the given registry.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	m := &StreamMetrics{
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "active_subscribers",
			Help:      "Number of subscribers currently registered across all projects.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "broadcasts_total",
			Help:      "Total number of events handed to the broadcast registry.",
		}),
		FramesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_delivered_total",
			Help:      "Total number of frames written to subscriber sinks.",
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "delivery_failures_total",
			Help:      "Subscribers removed because delivery failed, by reason.",
		}, []string{"reason"}),
		RejectedConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "rejected_connections_total",
			Help:      "Stream connection attempts rejected by the connection gate.",
		}),
	}

	reg.MustRegister(m.ActiveSubscribers, m.Broadcasts, m.FramesDelivered, m.DeliveryFailures, m.RejectedConnects)
	return m
}

func (m *StreamMetrics) SubscriberAdded() {
	if m != nil {
		m.ActiveSubscribers.Inc()
	}
}

func (m *StreamMetrics) SubscriberRemoved() {
	if m != nil {
		m.ActiveSubscribers.Dec()
	}
}

func (m *StreamMetrics) BroadcastReceived() {
	if m != nil {
		m.Broadcasts.Inc()
	}
}

func (m *StreamMetrics) FrameDelivered() {
	if m != nil {
		m.FramesDelivered.Inc()
	}
}

func (m *StreamMetrics) DeliveryFailed(reason string) {
	if m != nil {
		m.DeliveryFailures.WithLabelValues(reason).Inc()
	}
}

func (m *StreamMetrics) ConnectRejected() {
	if m != nil {
		m.RejectedConnects.Inc()
	}
}
