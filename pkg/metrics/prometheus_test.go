package metrics

import (
	"errors"
	"testing"

	"GlassLens/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordPlot(models.DecisionDecline)
	r.RecordPlot(models.Decision("MYSTERY"))
	r.RecordRender("png", 0.01, nil)
	r.RecordRender("png", 0.01, errors.New("encode"))
	r.RecordAnalysis(models.SourcePreset)
	r.SetAPIUp(true)
	r.SetHistorySize(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.plots.WithLabelValues("DECLINE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plots.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.renders.WithLabelValues("png", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("preset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.apiUp))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.historySize))

	r.SetAPIUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.apiUp))
}
