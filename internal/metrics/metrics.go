package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_messages_received_total",
			Help: "Total number of raw messages received from the hub",
		},
		[]string{"transport"},
	)

	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempest_bytes_received_total",
			Help: "Total bytes of message data received",
		},
	)

	TransportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_transport_errors_total",
			Help: "Total number of socket read or framing errors",
		},
		[]string{"transport"},
	)

	FrameResyncs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempest_frame_resyncs_total",
			Help: "TCP connections dropped due to implausible frame lengths",
		},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tempest_queue_depth",
			Help: "Current depth of the listener-to-coordinator queue",
		},
	)

	QueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempest_queue_drops_total",
			Help: "Messages dropped because the handoff queue was full",
		},
	)

	// Decode metrics
	MessagesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_messages_decoded_total",
			Help: "Total number of successfully decoded messages",
		},
		[]string{"type"},
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_decode_errors_total",
			Help: "Total number of decode failures",
		},
		[]string{"reason"},
	)

	// Throttle metrics
	ThrottleAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_throttle_admitted_total",
			Help: "Decoded records admitted for publication",
		},
		[]string{"type"},
	)

	ThrottleDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_throttle_dropped_total",
			Help: "Decoded records dropped as redundant within the publish interval",
		},
		[]string{"type"},
	)

	// Publish metrics
	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_publishes_total",
			Help: "Total number of measurement publications attempted",
		},
		[]string{"topic", "status"},
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tempest_publish_duration_seconds",
			Help:    "Duration of sink publish calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DLQ metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempest_dlq_writes_total",
			Help: "Total number of raw messages written to the dead letter queue",
		},
		[]string{"reason"},
	)
)
