package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus counts operations and their duration.
type Prometheus struct {
	startedTotal  *prometheus.CounterVec
	finishedTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewPrometheus registers the collectors with reg, or the default
// registerer when reg is nil.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		startedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nativeauth",
			Name:      "operations_started_total",
			Help:      "Operations started, by api.",
		}, []string{"api"}),
		finishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nativeauth",
			Name:      "operations_finished_total",
			Help:      "Operations finished, by api and result.",
		}, []string{"api", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nativeauth",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"api"}),
	}

	for _, c := range []prometheus.Collector{p.startedTotal, p.finishedTotal, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Start(ctx context.Context, api API, correlationID string) *Event {
	event := NewEvent(api, correlationID)
	p.started(ctx, event)
	return event
}

func (p *Prometheus) started(_ context.Context, event *Event) {
	p.startedTotal.WithLabelValues(string(event.API)).Inc()
}

func (p *Prometheus) Stop(_ context.Context, event *Event, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	p.finishedTotal.WithLabelValues(string(event.API), result).Inc()
	p.duration.WithLabelValues(string(event.API)).Observe(event.Duration().Seconds())
}
