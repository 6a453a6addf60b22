// Package metrics exposes Prometheus collectors for the monitor.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Match kind labels.
const (
	MatchFull    = "full"
	MatchPartial = "partial"
	MatchNone    = "none"
)

// Notification result labels.
const (
	ResultSent       = "sent"
	ResultFailed     = "failed"
	ResultSuppressed = "suppressed"
)

var (
	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "cycles_total",
			Help:      "Total number of detection cycles run.",
		},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "statuswatch",
			Name:      "cycle_duration_seconds",
			Help:      "Detection cycle latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "detections_total",
			Help:      "Detection outcomes, partitioned by status.",
		},
		[]string{"status"},
	)

	matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "matches_total",
			Help:      "Name match outcomes, partitioned by kind.",
		},
		[]string{"kind"},
	)

	ocrSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "ocr_skips_total",
			Help:      "Cycles that reused the previous match because the frame did not change.",
		},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "failures_total",
			Help:      "Cycle failures, partitioned by pipeline stage.",
		},
		[]string{"stage"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "statuswatch",
			Name:      "notifications_total",
			Help:      "Notification attempts, partitioned by status and result.",
		},
		[]string{"status", "result"},
	)

	runningSource atomic.Value // func() float64

	monitorRunning = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "statuswatch",
			Name:      "monitor_running",
			Help:      "Whether the monitor loop is running.",
		},
		func() float64 {
			if fn, ok := runningSource.Load().(func() float64); ok {
				return fn()
			}
			return 0
		},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cyclesTotal,
		cycleDurationSeconds,
		detectionsTotal,
		matchesTotal,
		ocrSkipsTotal,
		failuresTotal,
		notificationsTotal,
		monitorRunning,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// SetRunningSource wires the running gauge to the loop's state flag.
func SetRunningSource(fn func() float64) {
	runningSource.Store(fn)
}

// ObserveCycle records one completed cycle.
func ObserveCycle(duration time.Duration) {
	cyclesTotal.Inc()
	if duration < 0 {
		duration = 0
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}

// RecordDetection counts a detection outcome.
func RecordDetection(status string) {
	detectionsTotal.WithLabelValues(status).Inc()
}

// RecordMatch counts a name match outcome.
func RecordMatch(kind string) {
	matchesTotal.WithLabelValues(kind).Inc()
}

// RecordOCRSkip counts a cycle that skipped recognition.
func RecordOCRSkip() {
	ocrSkipsTotal.Inc()
}

// RecordFailure counts a cycle failure by stage.
func RecordFailure(stage string) {
	failuresTotal.WithLabelValues(stage).Inc()
}

// RecordNotification counts a notification attempt.
func RecordNotification(status, result string) {
	notificationsTotal.WithLabelValues(status, result).Inc()
}
