package metrics

import (
	"GlassLens/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	renders     *prometheus.CounterVec
	renderTime  *prometheus.HistogramVec
	plots       *prometheus.CounterVec
	analyses    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	apiUp       prometheus.Gauge
	historySize prometheus.Gauge
}

// New registers the recorder's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		renders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasslens_landscape_renders_total",
				Help: "Landscape frames rendered",
			},
			[]string{"format", "result"},
		),
		renderTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasslens_landscape_render_seconds",
				Help:    "Time to draw and encode one frame",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"format"},
		),
		plots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasslens_landscape_plots_total",
				Help: "Transactions plotted on the landscape",
			},
			[]string{"decision"},
		),
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasslens_analyses_total",
				Help: "Transactions analysed, by origin",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasslens_errors_total",
				Help: "Errors encountered",
			},
			[]string{"type"},
		),
		apiUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "glasslens_scoring_api_up",
			Help: "1 when the last scoring API health check succeeded",
		}),
		historySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "glasslens_dashboard_history_size",
			Help: "Entries in the dashboard history",
		}),
	}
}

func (r *Recorder) RecordRender(format string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.renders.WithLabelValues(format, result).Inc()
	r.renderTime.WithLabelValues(format).Observe(seconds)
}

func (r *Recorder) RecordPlot(decision models.Decision) {
	label := string(decision)
	if !decision.Known() {
		label = "unknown"
	}
	r.plots.WithLabelValues(label).Inc()
}

func (r *Recorder) RecordAnalysis(source models.Source) {
	r.analyses.WithLabelValues(string(source)).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) SetAPIUp(up bool) {
	if up {
		r.apiUp.Set(1)
		return
	}
	r.apiUp.Set(0)
}

func (r *Recorder) SetHistorySize(n int) {
	r.historySize.Set(float64(n))
}
