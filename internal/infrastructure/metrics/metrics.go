package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeNoop    = "noop"
)

// Recorder collects per-operation counters and durations for one process run.
// A CLI process is too short-lived to be scraped, so Flush writes the registry
// to a textfile for node_exporter's textfile collector.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	contacts   prometheus.Gauge
	textfile   string
}

// New creates a recorder. An empty textfile disables Flush.
func New(textfile string) *Recorder {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_operations_total",
			Help: "Total number of contact book operations",
		},
		[]string{"operation", "outcome"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contacts_operation_duration_seconds",
			Help:    "Contact book operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	contacts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contacts_records",
		Help: "Number of records in the contact book after the last operation",
	})

	registry.MustRegister(operations, duration, contacts)

	return &Recorder{
		registry:   registry,
		operations: operations,
		duration:   duration,
		contacts:   contacts,
		textfile:   textfile,
	}
}

// Observe records one finished operation
func (r *Recorder) Observe(operation, outcome string, started time.Time) {
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// SetRecords records the current collection size
func (r *Recorder) SetRecords(n int) {
	r.contacts.Set(float64(n))
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Flush writes all metrics to the configured textfile
func (r *Recorder) Flush() error {
	if r.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
