package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals     *prometheus.CounterVec
	executions  *prometheus.CounterVec
	profit      *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigroute_signals_total",
				Help: "Signals processed by type and routing outcome",
			},
			[]string{"type", "outcome"},
		),
		executions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigroute_executions_total",
				Help: "Strategy executions by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		profit: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigroute_profit_eth_total",
				Help: "Cumulative realized net profit per signal type",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigroute_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigroute_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigroute_router_queue_depth",
				Help: "Signals waiting in the router arrival queue",
			},
		),
	}
}

// RecordSignal records a routed/skipped/noise/failed signal.
func (r *Recorder) RecordSignal(signalType, outcome string) {
	r.signals.WithLabelValues(signalType, outcome).Inc()
}

// RecordExecution records an execution outcome per strategy.
func (r *Recorder) RecordExecution(strategy, outcome string) {
	r.executions.WithLabelValues(strategy, outcome).Inc()
}

// RecordProfit accumulates realized net profit per signal type.
// Negative nets are recorded as errors, not subtracted.
func (r *Recorder) RecordProfit(signalType string, net float64) {
	if net < 0 {
		r.errorsTotal.WithLabelValues("negative_profit").Inc()
		return
	}
	r.profit.WithLabelValues(signalType).Add(net)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordQueueDepth records the router queue depth.
func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}
