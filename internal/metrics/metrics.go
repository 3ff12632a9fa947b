// Package metrics provides Prometheus metrics for the content repository index
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
)

// Operation outcomes used as the status label.
const (
	StatusOK       = "ok"
	StatusConflict = "conflict"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Metrics holds all Prometheus metrics of the index
type Metrics struct {
	registry prometheus.Gatherer

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DocumentsTotal    *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses a new private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lounge_index_operations_total",
			Help: "Total number of content repository index operations",
		},
		[]string{"site", "operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lounge_index_operation_duration_seconds",
			Help:    "Duration of content repository index operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"site", "operation"},
	)

	m.DocumentsTotal = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lounge_index_documents",
			Help: "Number of indexed resources and revisions",
		},
		[]string{"site", "kind"},
	)

	return m
}

// Gatherer returns the registry the metrics are registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Observe records an operation that started at start and ended with err.
// It is a no-op on a nil receiver.
func (m *Metrics) Observe(site, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(site, operation, Status(err)).Inc()
	m.OperationDuration.WithLabelValues(site, operation).Observe(time.Since(start).Seconds())
}

// SetDocuments records the resource and revision counts of a site.
func (m *Metrics) SetDocuments(site string, resources, revisions uint64) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(site, "resources").Set(float64(resources))
	m.DocumentsTotal.WithLabelValues(site, "revisions").Set(float64(revisions))
}

// Status maps an operation error to its status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, domain.ErrAlreadyExists):
		return StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument):
		return StatusInvalid
	default:
		return StatusError
	}
}
