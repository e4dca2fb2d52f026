package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "field_activity",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write committed to Postgres.",
	})
	activityWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "field_activity",
		Subsystem: "persistence",
		Name:      "activity_writes_total",
		Help:      "Committed activity writes, labeled by operation.",
	}, []string{"op"})
	attachmentUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "field_activity",
		Subsystem: "attachments",
		Name:      "uploads_total",
		Help:      "Attachment uploads to object storage, labeled by outcome.",
	}, []string{"outcome"})
	httpRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "field_activity",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, labeled by route pattern and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, activityWrites, attachmentUploads, httpRequests)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(op string, ts time.Time) {
	activityWrites.WithLabelValues(op).Inc()
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordAttachmentUpload counts one upload attempt.
func RecordAttachmentUpload(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attachmentUploads.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, statusClass(status)).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
