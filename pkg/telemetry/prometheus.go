// Package telemetry provides api.Observer implementations that export run
// and step lifecycle events as Prometheus metrics and OpenTelemetry spans.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/stepgraph/pkg/api"
)

const namespace = "stepgraph"

// PrometheusObserver records run and step metrics. Create it with
// NewPrometheusObserver; the zero value is not usable.
type PrometheusObserver struct {
	runsStarted  *prometheus.CounterVec
	runsFinished *prometheus.CounterVec
	runsActive   prometheus.Gauge
	stepDuration *prometheus.HistogramVec
	stepsTotal   *prometheus.CounterVec
}

var _ api.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg registers nothing, which is useful in tests that read the
// collectors directly.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of workflow runs started",
			},
			[]string{"workflow"},
		),
		runsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_finished_total",
				Help:      "Total number of workflow runs finished, by final status",
			},
			[]string{"workflow", "status"}, // status: completed, failed, paused
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of workflow runs currently executing",
			},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Histogram of step evaluation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind", "status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of step evaluations",
			},
			[]string{"workflow", "kind", "status"}, // status: success, error
		),
	}

	if reg != nil {
		for _, c := range o.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func (o *PrometheusObserver) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.runsStarted,
		o.runsFinished,
		o.runsActive,
		o.stepDuration,
		o.stepsTotal,
	}
}

func (o *PrometheusObserver) OnRunStart(ctx context.Context, run api.RunInfo) {
	o.runsStarted.WithLabelValues(run.WorkflowName).Inc()
	o.runsActive.Inc()
}

func (o *PrometheusObserver) OnRunCompleted(ctx context.Context, run api.RunInfo) {
	o.runsFinished.WithLabelValues(run.WorkflowName, string(run.Status)).Inc()
	o.runsActive.Dec()
}

func (o *PrometheusObserver) OnRunFailed(ctx context.Context, run api.RunInfo, err error) {
	o.runsFinished.WithLabelValues(run.WorkflowName, string(api.StatusFailed)).Inc()
	o.runsActive.Dec()
}

func (o *PrometheusObserver) OnStepStart(ctx context.Context, run api.RunInfo, step api.Step) {}

func (o *PrometheusObserver) OnStepCompleted(ctx context.Context, run api.RunInfo, step api.Step, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.stepDuration.WithLabelValues(string(step.Kind), status).Observe(d.Seconds())
	o.stepsTotal.WithLabelValues(run.WorkflowName, string(step.Kind), status).Inc()
}
