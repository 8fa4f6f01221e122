package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts event delivery outcomes.
type Metrics struct {
	Published    prometheus.Counter
	Dropped      *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

// NewMetrics registers the event metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "longtrees_events_published_total",
			Help: "Total number of change events delivered to the sink",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "longtrees_events_dropped_total",
			Help: "Total number of change events dropped, by reason",
		}, []string{"reason"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "longtrees_events_breaker_state",
			Help: "Event sink circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incPublished() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) incDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
