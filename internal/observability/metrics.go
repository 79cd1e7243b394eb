package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded on frames_dropped_total.
const (
	DropMalformedFrame = "malformed_frame"
	DropUnknownType    = "unknown_type"
	DropStaleRequestID = "stale_request_id"
	DropUnknownChannel = "unknown_channel"
)

// Negotiation outcomes recorded on channel_outcomes_total.
const (
	OutcomeEstablished = "established"
	OutcomeRefused     = "refused"
	OutcomeClosed      = "closed"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsmux",
			Subsystem: "dispatcher",
			Name:      "frames_sent_total",
			Help:      "Frames written to the stream.",
		},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsmux",
			Subsystem: "dispatcher",
			Name:      "frames_received_total",
			Help:      "Frames read from the stream.",
		},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsmux",
			Subsystem: "dispatcher",
			Name:      "frames_dropped_total",
			Help:      "Inbound frames discarded without dispatch.",
		},
		[]string{"reason"},
	)
	channelOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsmux",
			Subsystem: "dispatcher",
			Name:      "channel_outcomes_total",
			Help:      "Channel lifecycle outcomes.",
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesSent, framesReceived, framesDropped, channelOutcomes)
	})
}

func RecordFrameSent() {
	RegisterMetrics()
	framesSent.Inc()
}

func RecordFrameReceived() {
	RegisterMetrics()
	framesReceived.Inc()
}

func RecordFrameDropped(reason string) {
	RegisterMetrics()
	framesDropped.WithLabelValues(reason).Inc()
}

func RecordChannelOutcome(outcome string) {
	RegisterMetrics()
	channelOutcomes.WithLabelValues(outcome).Inc()
}
