package usecase

import (
	"testing"

	"GlassLens/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGauss float64

func (g fixedGauss) Gauss() float64 { return float64(g) }

func TestRoutingRules(t *testing.T) {
	cases := []struct {
		d     models.Decision
		novel bool
		want  string
	}{
		{models.DecisionDecline, false, "Rule 1: risk(0.91) ≥ 0.80 AND uncertainty(0.0050) < 0.02 → DECLINE"},
		{models.DecisionEscalateInvest, false, "Rule 2: risk(0.91) ≥ 0.60 AND uncertainty(0.0050) ≥ 0.02 → ESCALATE_INVEST"},
		{models.DecisionEscalateInvest, true, "Rule 5: novelty_flag=true → ESCALATE_INVEST"},
		{models.DecisionStepUpAuth, false, "Rule 3: 0.30 ≤ risk(0.91) < 0.80 → STEP_UP_AUTH"},
		{models.DecisionAbstain, false, "Rule 4: risk(0.91) < 0.30 AND uncertainty(0.0050) ≥ 0.02 → ABSTAIN"},
		{models.DecisionApprove, false, "Rule 6: Default (low risk, low uncertainty, not novel) → APPROVE"},
		{models.Decision("HOLD"), false, "—"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoutingRule(0.9123, 0.005, tc.novel, tc.d), string(tc.d))
	}
}

func TestMetaForFallsBackToApprove(t *testing.T) {
	assert.Equal(t, "Declined", MetaFor(models.DecisionDecline).Label)
	assert.Equal(t, "Approved", MetaFor(models.Decision("HOLD")).Label)
}

func TestBuildAnalysisLayers(t *testing.T) {
	features := make([]float64, models.FeatureCount)
	features[0] = 3*3600 + 25*60 + 10
	features[models.FeatureCount-1] = 1234.5

	res := &models.ScoringResult{
		Decision:     models.DecisionEscalateInvest,
		RiskScore:    0.72,
		Uncertainty:  0.035,
		NoveltyFlag:  true,
		Tier:         models.TierMedium,
		Explanations: models.Explanations{AnomalyScore: -0.1},
		Costs: models.Costs{
			ExpectedLoss:     decimal.NewFromInt(720),
			ManualReviewCost: decimal.NewFromInt(20),
			NetUtility:       decimal.NewFromInt(-740),
		},
		Meta: models.ResultMeta{
			ModelVersion: "xgb_ensemble_v2",
			Timestamp:    "2026-01-02T03:04:05.123456",
		},
	}

	a := BuildAnalysis(features, res, fixedGauss(10))

	assert.Equal(t, "$1234.50", a.Summary.Amount)
	assert.Equal(t, "3h 25m", a.Summary.Time)

	assert.Equal(t, "0.720000", a.Risk.Score)
	assert.InDelta(t, 72, a.Risk.ProgressPct, 1e-9)
	assert.Equal(t, "medium risk", a.Risk.TierLabel)
	assert.Equal(t, "stepup", a.Risk.Tone)
	assert.Contains(t, a.Risk.Explanation, "suspicious signals")

	assert.True(t, a.Uncertainty.HighDisagreement)
	assert.Equal(t, "High Disagreement", a.Uncertainty.Badge)
	assert.Contains(t, a.Uncertainty.Explanation, "0.0350")
	require.Len(t, a.Uncertainty.Bars, 5)
	// 0.72 + 10*0.035 clamps to 1
	assert.Equal(t, EnsembleBar{Value: 1, HeightPct: 100, Color: "red"}, a.Uncertainty.Bars[0])

	assert.Equal(t, "Novel Pattern", a.Novelty.Badge)
	assert.InDelta(t, 50, a.Novelty.DotPct, 1e-9)
	assert.Equal(t, "-0.100000", a.Novelty.AnomalyScore)

	assert.Equal(t, "ESCALATE INVEST", a.Verdict.Title)
	assert.Equal(t, "⚑", a.Verdict.Icon)
	assert.Equal(t, "$720.00", a.Verdict.Costs.ExpectedLoss)
	assert.Equal(t, "−$740.00", a.Verdict.Costs.NetUtility)
	assert.Equal(t, "xgb_ensemble_v2", a.Verdict.Model)
	assert.Equal(t, "—", a.Verdict.Method)
	assert.Equal(t, "2026-01-02T03:04:05.123456", a.Verdict.Timestamp)

	require.Len(t, a.Reveal, 6)
	assert.Equal(t, 1300, a.Reveal[5].DelayMs)
}

func TestEnsembleBarBands(t *testing.T) {
	assert.Equal(t, EnsembleBar{Value: 0, HeightPct: 5, Color: "indigo"}, ensembleBar(-0.2))
	assert.Equal(t, "indigo", ensembleBar(0.3).Color)
	assert.Equal(t, "amber", ensembleBar(0.31).Color)
	assert.Equal(t, "amber", ensembleBar(0.6).Color)
	assert.Equal(t, "red", ensembleBar(0.61).Color)
}

func TestLowUncertaintyAndKnownPattern(t *testing.T) {
	res := &models.ScoringResult{Decision: models.DecisionApprove, RiskScore: 0.01, Uncertainty: 0.001}
	a := BuildAnalysis(nil, res, fixedGauss(0))

	assert.Equal(t, "Models Agree", a.Uncertainty.Badge)
	assert.Equal(t, "Known Pattern", a.Novelty.Badge)
	assert.Equal(t, "low risk", a.Risk.TierLabel)
	assert.Equal(t, 5.0, a.Uncertainty.Bars[0].HeightPct)
	assert.InDelta(t, 75, a.Novelty.DotPct, 1e-9)
	assert.Equal(t, "—", a.Verdict.Timestamp)
}
