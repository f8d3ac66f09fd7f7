package scoring

import (
	"fmt"
	"sort"
	"time"

	"GlassLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	demoModelVersion      = "xgb_ensemble_v2"
	demoUncertaintyMethod = "bootstrap_std"
)

var manualReviewCost = decimal.NewFromInt(20)

// span is a uniform range [Lo, Lo+Span).
type span struct{ Lo, Span float64 }

// Preset describes a canned transaction that lands in one decision region
// without calling the scoring API.
type Preset struct {
	Name     string
	Decision models.Decision
	Time     span
	Spread   float64
	Amount   span
	Risk     span
	Unc      span
	Novel    bool
	Anomaly  span
}

var presets = map[string]Preset{
	"approve": {
		Name: "approve", Decision: models.DecisionApprove,
		Time: span{36000, 10000}, Spread: 0.3, Amount: span{25, 50},
		Risk: span{0.0003, 0.005}, Unc: span{0.0001, 0.001}, Anomaly: span{0.22, 0.1},
	},
	"stepup": {
		Name: "stepup", Decision: models.DecisionStepUpAuth,
		Time: span{50000, 20000}, Spread: 1.5, Amount: span{400, 600},
		Risk: span{0.45, 0.15}, Unc: span{0.008, 0.008}, Anomaly: span{0.10, 0.08},
	},
	"abstain": {
		Name: "abstain", Decision: models.DecisionAbstain,
		Time: span{10000, 5000}, Spread: 1.2, Amount: span{50, 200},
		Risk: span{0.12, 0.10}, Unc: span{0.025, 0.02}, Anomaly: span{0.15, 0.1},
	},
	"escalate": {
		Name: "escalate", Decision: models.DecisionEscalateInvest,
		Time: span{3600, 3000}, Spread: 2.5, Amount: span{1500, 2000},
		Risk: span{0.72, 0.10}, Unc: span{0.035, 0.03}, Novel: true, Anomaly: span{-0.15, 0.05},
	},
	"decline": {
		Name: "decline", Decision: models.DecisionDecline,
		Time: span{1800, 2000}, Spread: 3, Amount: span{3000, 2000},
		Risk: span{0.88, 0.10}, Unc: span{0.005, 0.01}, Anomaly: span{0.05, 0.08},
	},
}

// PresetNames lists the available presets in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// Build draws features and a demo result for the preset.
func (p Preset) Build(s *Sampler, now time.Time) ([]float64, *models.ScoringResult) {
	features := s.Features(p.Time.Lo, p.Time.Span, p.Spread, p.Amount.Lo, p.Amount.Span)
	res := DemoResult(p.Decision,
		s.Uniform(p.Risk.Lo, p.Risk.Span),
		s.Uniform(p.Unc.Lo, p.Unc.Span),
		p.Novel,
		s.Uniform(p.Anomaly.Lo, p.Anomaly.Span),
		now,
	)
	return features, res
}

// BuildPreset is Build for a named preset.
func BuildPreset(name string, s *Sampler, now time.Time) ([]float64, *models.ScoringResult, error) {
	p, ok := LookupPreset(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	f, r := p.Build(s, now)
	return f, r, nil
}

// DemoResult assembles a scoring result the way the API would: tier from
// risk, review cost for the decisions that involve a human, and expected
// loss on a notional 1000.
func DemoResult(d models.Decision, risk, unc float64, novel bool, anomaly float64, now time.Time) *models.ScoringResult {
	review := decimal.Zero
	switch d {
	case models.DecisionStepUpAuth, models.DecisionEscalateInvest, models.DecisionAbstain:
		review = manualReviewCost
	}
	loss := decimal.NewFromFloat(risk).Mul(decimal.NewFromInt(1000))

	return &models.ScoringResult{
		Decision:    d,
		RiskScore:   risk,
		Uncertainty: unc,
		NoveltyFlag: novel,
		Tier:        TierFor(risk),
		Costs: models.Costs{
			ExpectedLoss:     loss,
			ManualReviewCost: review,
			NetUtility:       loss.Neg().Sub(review),
		},
		Explanations: models.Explanations{
			AnomalyScore: anomaly,
			TopFeatures:  []string{},
		},
		Meta: models.ResultMeta{
			ModelVersion:      demoModelVersion,
			UncertaintyMethod: demoUncertaintyMethod,
			Timestamp:         now.UTC().Format(time.RFC3339Nano),
		},
	}
}

func TierFor(risk float64) models.Tier {
	switch {
	case risk >= 0.80:
		return models.TierHigh
	case risk >= 0.30:
		return models.TierMedium
	default:
		return models.TierLow
	}
}
