package landscape

import (
	"testing"

	"GlassLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPrependsAndEvicts(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Push(PlotPoint{Risk: float64(i) / 10, Decision: models.DecisionApprove})
	}

	require.Equal(t, 3, h.Len())
	pts := h.Points()
	assert.InDelta(t, 0.5, pts[0].Risk, 1e-12)
	assert.InDelta(t, 0.4, pts[1].Risk, 1e-12)
	assert.InDelta(t, 0.3, pts[2].Risk, 1e-12)

	h.Reset()
	assert.Zero(t, h.Len())
	assert.Equal(t, 3, h.Cap())
}

func TestHistoryPointsIsACopy(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, HistoryCapacity, h.Cap())

	h.Push(PlotPoint{Risk: 0.2})
	pts := h.Points()
	pts[0].Risk = 0.9
	assert.InDelta(t, 0.2, h.Points()[0].Risk, 1e-12)
}

func TestHistoryAlpha(t *testing.T) {
	assert.Equal(t, 1.0, HistoryAlpha(0, 10))
	assert.InDelta(t, 0.92, HistoryAlpha(1, 10), 1e-12)
	assert.Equal(t, 1.0, HistoryAlpha(0, 0))

	for n := 1; n <= HistoryCapacity; n++ {
		prev := 2.0
		for i := 0; i < n; i++ {
			a := HistoryAlpha(i, n)
			assert.GreaterOrEqual(t, a, 0.15)
			assert.LessOrEqual(t, a, prev, "opacity decays with age")
			prev = a
		}
	}
}
