// Package observability exports prometheus metrics for the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flextrack",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout written to the active store.",
	})
	backendSelectedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "flextrack",
		Subsystem: "persistence",
		Name:      "backend_selected",
		Help:      "Which storage backend is active (1 for the selected backend, 0 otherwise).",
	}, []string{"backend"})
	probeFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flextrack",
		Subsystem: "persistence",
		Name:      "probe_failures_total",
		Help:      "Number of failed remote connectivity probes.",
	})
)

func init() {
	prometheus.MustRegister(workoutPersistGauge, backendSelectedGauge, probeFailureCounter)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordBackendSelected marks the active backend.
func RecordBackendSelected(backend string) {
	backendSelectedGauge.Reset()
	backendSelectedGauge.WithLabelValues(backend).Set(1)
}

// RecordProbeFailure counts one failed remote probe.
func RecordProbeFailure() {
	probeFailureCounter.Inc()
}
