package consumer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeRecorded = "recorded"
	outcomeRetried  = "retried"
)

var (
	auditEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "field_activity",
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Activity events seen by the audit consumer, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})

	rejectedEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "field_activity",
		Subsystem: "audit",
		Name:      "events_rejected_total",
		Help:      "Malformed activity events committed without being recorded, labeled by reason.",
	}, []string{"reason"})

	lastRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "field_activity",
		Subsystem: "audit",
		Name:      "last_recorded_event_timestamp_seconds",
		Help:      "Kafka timestamp of the most recently recorded activity event.",
	})
)

func init() {
	prometheus.MustRegister(auditEventsCounter, rejectedEventsCounter, lastRecordedGauge)
}

func recordProcessed(msg Message) {
	auditEventsCounter.WithLabelValues(msg.EventType, outcomeRecorded).Inc()
	if !msg.Timestamp.IsZero() {
		lastRecordedGauge.Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	auditEventsCounter.WithLabelValues(msg.EventType, outcomeRetried).Inc()
}

func recordDecodeError(err error) {
	rejectedEventsCounter.WithLabelValues(rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errMissingEventType):
		return "missing_event_type"
	case errors.Is(err, errMissingActivityID):
		return "missing_activity_id"
	default:
		return "invalid_payload"
	}
}
