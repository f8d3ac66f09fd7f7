package landscape

import (
	"math"
	"testing"

	"GlassLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		risk, unc float64
		want      models.Decision
	}{
		{0.1, 0.01, models.DecisionApprove},
		{0.1, 0.05, models.DecisionAbstain},
		{0.45, 0.01, models.DecisionStepUpAuth},
		{0.45, 0.05, models.DecisionStepUpAuth},
		{0.70, 0.01, models.DecisionStepUpAuth},
		{0.70, 0.05, models.DecisionEscalateInvest},
		{0.90, 0.01, models.DecisionDecline},
		{0.90, 0.05, models.DecisionEscalateInvest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.risk, tc.unc), "risk=%v unc=%v", tc.risk, tc.unc)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, models.DecisionStepUpAuth, Classify(TAuth, 0))
	assert.Equal(t, models.DecisionAbstain, Classify(0, UThreshold))
	assert.Equal(t, models.DecisionDecline, Classify(TDecline, 0))
	assert.Equal(t, models.DecisionEscalateInvest, Classify(TEscalate, UThreshold))
	assert.Equal(t, models.DecisionDecline, Classify(1, 0))
	assert.Equal(t, models.DecisionEscalateInvest, Classify(1, UncMax))
	assert.Equal(t, models.DecisionEscalateInvest, Classify(0.9, 0.5), "uncertainty above range is clamped")
}

// Every sampled point lies in exactly one region rectangle, and that region
// agrees with Classify.
func TestRegionsTileDomain(t *testing.T) {
	const steps = 200
	for i := 0; i <= steps; i++ {
		risk := RiskMin + (RiskMax-RiskMin)*float64(i)/steps
		for j := 0; j <= steps; j++ {
			unc := math.Min(UncMin+(UncMax-UncMin)*float64(j)/steps, UncMax)

			var hits []models.Decision
			for _, g := range Regions {
				for _, r := range g.Rects {
					if r.Contains(risk, unc) {
						hits = append(hits, g.Decision)
					}
				}
			}
			require.Len(t, hits, 1, "risk=%v unc=%v", risk, unc)
			require.Equal(t, Classify(risk, unc), hits[0], "risk=%v unc=%v", risk, unc)
		}
	}
}

func TestRegionAreasSumToDomain(t *testing.T) {
	var total float64
	for _, g := range Regions {
		for _, r := range g.Rects {
			total += r.Area()
		}
	}
	assert.InDelta(t, (RiskMax-RiskMin)*(UncMax-UncMin), total, 1e-12)
}

func TestStepUpLabelUsesLargerBlock(t *testing.T) {
	g, ok := RegionFor(models.DecisionStepUpAuth)
	require.True(t, ok)
	require.Len(t, g.Rects, 2)
	assert.Equal(t, Rect{TAuth, TEscalate, UncMin, UncMax}, g.LabelRect())

	_, ok = RegionFor(models.Decision("REVIEW"))
	assert.False(t, ok)
}

func TestCoordinateRoundTrip(t *testing.T) {
	area := NewPlotArea(640, 400, DefaultMargins)
	for _, risk := range []float64{0, 0.123, 0.3, 0.5, 0.8, 1} {
		assert.InDelta(t, risk, area.XToRisk(area.RiskToX(risk)), 1e-9)
	}
	for _, unc := range []float64{0, 0.005, 0.02, 0.07, 0.1} {
		assert.InDelta(t, unc, area.YToUnc(area.UncToY(unc)), 1e-9)
	}
}

func TestCoordinateMapping(t *testing.T) {
	area := NewPlotArea(640, 400, DefaultMargins)

	assert.Equal(t, area.X, area.RiskToX(0))
	assert.Equal(t, area.X+area.W, area.RiskToX(1))
	assert.Equal(t, area.Y+area.H, area.UncToY(0))
	assert.Equal(t, area.Y, area.UncToY(UncMax))
	assert.Equal(t, area.Y, area.UncToY(0.5), "clamped to the top edge")
	assert.Less(t, area.UncToY(0.05), area.UncToY(0.01), "higher uncertainty renders higher")
}

func TestPlotAreaNeverNegative(t *testing.T) {
	area := NewPlotArea(10, 10, DefaultMargins)
	assert.Zero(t, area.W)
	assert.Zero(t, area.H)
	assert.Equal(t, RiskMin, area.XToRisk(100))
	assert.Equal(t, UncMin, area.YToUnc(100))
}
