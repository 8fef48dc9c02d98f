package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the analysis metrics on a private prometheus registry.
// All methods are safe on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	AnalysisDuration *prometheus.HistogramVec
	DivergenceLabels *prometheus.CounterVec
	DroppedRows      prometheus.Counter
	SkippedFrames    *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taengine_analysis_duration_seconds",
				Help:    "Duration of one analysis stage in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"stage"},
		),
		DivergenceLabels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taengine_divergence_labels_total",
				Help: "RSI divergence results by timeframe and label",
			},
			[]string{"timeframe", "label"},
		),
		DroppedRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taengine_dropped_rows_total",
				Help: "Raw kline rows dropped as malformed",
			},
		),
		SkippedFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taengine_skipped_timeframes_total",
				Help: "Timeframes excluded from cross-timeframe comparison",
			},
			[]string{"timeframe"},
		),
	}
	r.reg.MustRegister(r.AnalysisDuration, r.DivergenceLabels, r.DroppedRows, r.SkippedFrames)
	return r
}

// ObserveStage records the time elapsed since start.
func (r *Registry) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.AnalysisDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (r *Registry) CountDivergence(timeframe, label string) {
	if r == nil {
		return
	}
	r.DivergenceLabels.WithLabelValues(timeframe, label).Inc()
}

func (r *Registry) AddDropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.DroppedRows.Add(float64(n))
}

func (r *Registry) CountSkipped(timeframe string) {
	if r == nil {
		return
	}
	r.SkippedFrames.WithLabelValues(timeframe).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
