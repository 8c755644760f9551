// Package metrics exposes pipeline and HTTP activity as Prometheus series.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/teslashibe/go-voiceagent/pkg/pipeline"
)

const namespace = "voiceagent"

// Metrics holds every collector. It implements pipeline.Observer.
type Metrics struct {
	Runs           *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	StageOutcomes  *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ActiveSessions prometheus.Gauge

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by outcome",
			},
			[]string{"success", "error_type", "fallback_used"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		StageOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_outcomes_total",
				Help:      "Stage completions by result",
			},
			[]string{"stage", "success", "error_type"},
		),
		Fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Stage failures replaced by fallback content",
			},
			[]string{"stage", "error_type"},
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End to end pipeline latency",
				Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions held in memory",
			},
		),
		RequestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
			},
			[]string{"method", "route"},
		),
	}
}

// Observe records a pipeline event.
func (m *Metrics) Observe(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventStage:
		m.StageOutcomes.WithLabelValues(string(e.Stage), strconv.FormatBool(e.Success), string(e.ErrorKind)).Inc()
		if e.Duration > 0 {
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
		}
	case pipeline.EventFallback:
		m.Fallbacks.WithLabelValues(string(e.Stage), string(e.ErrorKind)).Inc()
	case pipeline.EventCompleted:
		m.Runs.WithLabelValues(strconv.FormatBool(e.Success), string(e.ErrorKind), strconv.FormatBool(e.FallbackUsed)).Inc()
		m.RunDuration.Observe(e.Duration.Seconds())
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

var _ pipeline.Observer = (*Metrics)(nil)
