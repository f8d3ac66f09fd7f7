package landscape

import "GlassLens/internal/domain/models"

// Domain of the landscape and the routing thresholds of the decision engine.
const (
	RiskMin = 0.0
	RiskMax = 1.0
	UncMin  = 0.0
	UncMax  = 0.10

	TAuth      = 0.30
	TEscalate  = 0.60
	TDecline   = 0.80
	UThreshold = 0.02
)

// Rect is an axis-aligned block in (risk, uncertainty) space. Lower bounds are
// inclusive, upper bounds exclusive except where they meet the domain maximum.
type Rect struct {
	RiskMin, RiskMax float64
	UncMin, UncMax   float64
}

// Contains reports whether (risk, unc) falls inside r.
func (r Rect) Contains(risk, unc float64) bool {
	if risk < r.RiskMin || unc < r.UncMin {
		return false
	}
	if risk > r.RiskMax || (risk == r.RiskMax && r.RiskMax < RiskMax) {
		return false
	}
	if unc > r.UncMax || (unc == r.UncMax && r.UncMax < UncMax) {
		return false
	}
	return true
}

// Area in domain units.
func (r Rect) Area() float64 {
	return (r.RiskMax - r.RiskMin) * (r.UncMax - r.UncMin)
}

// Region is one decision zone. STEP_UP_AUTH is made of two rectangles.
type Region struct {
	Decision models.Decision
	Rects    []Rect
}

// LabelRect is the block that carries the zone label: the largest one.
func (g Region) LabelRect() Rect {
	best := g.Rects[0]
	for _, r := range g.Rects[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best
}

// Regions tile [0,1]x[0,0.10] without gaps or overlaps.
var Regions = []Region{
	{
		Decision: models.DecisionApprove,
		Rects:    []Rect{{RiskMin, TAuth, UncMin, UThreshold}},
	},
	{
		Decision: models.DecisionAbstain,
		Rects:    []Rect{{RiskMin, TAuth, UThreshold, UncMax}},
	},
	{
		Decision: models.DecisionStepUpAuth,
		Rects: []Rect{
			{TAuth, TEscalate, UncMin, UncMax},
			{TEscalate, TDecline, UncMin, UThreshold},
		},
	},
	{
		Decision: models.DecisionEscalateInvest,
		Rects:    []Rect{{TEscalate, RiskMax, UThreshold, UncMax}},
	},
	{
		Decision: models.DecisionDecline,
		Rects:    []Rect{{TDecline, RiskMax, UncMin, UThreshold}},
	},
}

// Classify maps a point to the decision region containing it. Inputs outside
// the domain are clamped first, so every point has exactly one answer.
func Classify(risk, unc float64) models.Decision {
	risk = clamp(risk, RiskMin, RiskMax)
	unc = clamp(unc, UncMin, UncMax)

	switch {
	case risk < TAuth:
		if unc < UThreshold {
			return models.DecisionApprove
		}
		return models.DecisionAbstain
	case risk < TEscalate:
		return models.DecisionStepUpAuth
	case unc >= UThreshold:
		return models.DecisionEscalateInvest
	case risk < TDecline:
		return models.DecisionStepUpAuth
	default:
		return models.DecisionDecline
	}
}

// RegionFor returns the region drawn for d.
func RegionFor(d models.Decision) (Region, bool) {
	for _, g := range Regions {
		if g.Decision == d {
			return g, true
		}
	}
	return Region{}, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
