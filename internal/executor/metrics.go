package executor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the dispatcher's Prometheus collectors.
type Metrics struct {
	Invocations     *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	PreCallFailures *prometheus.CounterVec
	BatchTimeouts   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipetask_invocations_total",
			Help: "Task invocations by task label and outcome",
		}, []string{"task", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipetask_invocation_duration_seconds",
			Help:    "Duration of task invocations",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"task"}),
		PreCallFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipetask_precall_failures_total",
			Help: "Pre-call hook failures by task label",
		}, []string{"task"}),
		BatchTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipetask_batch_timeouts_total",
			Help: "Invocation batches that hit their deadline",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Invocations, m.Duration, m.PreCallFailures, m.BatchTimeouts)
	}
	return m
}
