package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for aguikit_tool_executions_total.
const (
	OutcomeSuccess          = "success"
	OutcomeError            = "error"
	OutcomeInvalidArguments = "invalid_arguments"
)

// Metrics tracks local tool executions.
type Metrics struct {
	Executions *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	InFlight   prometheus.Gauge
}

// NewMetrics creates the executor metrics and registers them on reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aguikit_tool_executions_total",
			Help: "Total number of local tool handler executions by outcome",
		}, []string{"tool", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aguikit_tool_execution_seconds",
			Help:    "Local tool handler execution time in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aguikit_tool_executions_in_flight",
			Help: "Number of local tool handlers currently running",
		}),
	}
}

func (m *Metrics) started() {
	if m == nil || m.InFlight == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) finished(toolName, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if m.InFlight != nil {
		m.InFlight.Dec()
	}
	if m.Executions != nil {
		m.Executions.WithLabelValues(toolName, outcome).Inc()
	}
	if m.Duration != nil {
		m.Duration.WithLabelValues(toolName).Observe(d.Seconds())
	}
}
