package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the nursery resources.
// Tracks writes per resource, dangling references and operation durations.
type Metrics struct {
	ResourceWrites     *prometheus.CounterVec
	DanglingReferences *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New creates the nursery metrics registered with reg (nil to skip
// registration).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResourceWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "longtrees_resource_writes_total",
			Help: "Successful writes by resource and action",
		}, []string{"resource", "action"}),
		DanglingReferences: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "longtrees_dangling_references_total",
			Help: "Writes rejected because a reference field named a missing document",
		}, []string{"resource", "field"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "longtrees_operation_duration_seconds",
			Help:    "Duration of service operations including store round trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"resource", "operation"}),
	}
}

// IncrementWrite records a successful write.
func (m *Metrics) IncrementWrite(resource, action string) {
	m.ResourceWrites.WithLabelValues(resource, action).Inc()
}

// IncrementDangling records a rejected dangling reference.
func (m *Metrics) IncrementDangling(resource, field string) {
	m.DanglingReferences.WithLabelValues(resource, field).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(resource, operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(resource, operation).Observe(time.Since(start).Seconds())
}
