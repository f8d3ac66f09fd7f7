package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"GlassLens/internal/domain/models"
	"GlassLens/pkg/util"
)

const (
	highUncertainty   = 0.02
	riskHighExplain   = 0.8
	riskMediumExplain = 0.3
	ensembleSize      = 5
	minBarHeight      = 5.0
)

// DecisionMeta is the verdict card content for a decision.
type DecisionMeta struct {
	Icon        string `json:"icon"`
	Class       string `json:"class"`
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

var decisionMeta = map[models.Decision]DecisionMeta{
	models.DecisionApprove: {
		Icon: "✓", Class: "verdict-approve", Label: "Approved",
		Explanation: "Transaction is safe. Low risk with high model confidence.",
	},
	models.DecisionAbstain: {
		Icon: "◌", Class: "verdict-abstain", Label: "Abstain (Deferred)",
		Explanation: "Low risk but the ensemble models disagree. Decision deferred for safety.",
	},
	models.DecisionStepUpAuth: {
		Icon: "⚿", Class: "verdict-stepup", Label: "Step-Up Authentication",
		Explanation: "Medium risk detected. Additional authentication required (e.g., OTP, biometric).",
	},
	models.DecisionEscalateInvest: {
		Icon: "⚑", Class: "verdict-escalate", Label: "Escalate to Analyst",
		Explanation: "High risk with model uncertainty, or novel behavior detected. Routed to human fraud analyst.",
	},
	models.DecisionDecline: {
		Icon: "✕", Class: "verdict-decline", Label: "Declined",
		Explanation: "High risk with high model confidence. Transaction auto-blocked.",
	},
}

// MetaFor falls back to the APPROVE card for unknown decisions.
func MetaFor(d models.Decision) DecisionMeta {
	if m, ok := decisionMeta[d]; ok {
		return m
	}
	return decisionMeta[models.DecisionApprove]
}

// RoutingRule names the routing rule that produced d.
func RoutingRule(risk, unc float64, novel bool, d models.Decision) string {
	r := fmt.Sprintf("%.2f", risk)
	u := fmt.Sprintf("%.4f", unc)
	switch d {
	case models.DecisionDecline:
		return fmt.Sprintf("Rule 1: risk(%s) ≥ 0.80 AND uncertainty(%s) < 0.02 → DECLINE", r, u)
	case models.DecisionEscalateInvest:
		if novel {
			return "Rule 5: novelty_flag=true → ESCALATE_INVEST"
		}
		return fmt.Sprintf("Rule 2: risk(%s) ≥ 0.60 AND uncertainty(%s) ≥ 0.02 → ESCALATE_INVEST", r, u)
	case models.DecisionStepUpAuth:
		return fmt.Sprintf("Rule 3: 0.30 ≤ risk(%s) < 0.80 → STEP_UP_AUTH", r)
	case models.DecisionAbstain:
		return fmt.Sprintf("Rule 4: risk(%s) < 0.30 AND uncertainty(%s) ≥ 0.02 → ABSTAIN", r, u)
	case models.DecisionApprove:
		return "Rule 6: Default (low risk, low uncertainty, not novel) → APPROVE"
	}
	return util.Placeholder
}

type TransactionSummary struct {
	Amount string `json:"amount"`
	Time   string `json:"time"`
}

type RiskLayer struct {
	Score       string      `json:"score"`
	Value       float64     `json:"value"`
	ProgressPct float64     `json:"progress_pct"`
	Tone        string      `json:"tone"`
	Tier        models.Tier `json:"tier"`
	TierLabel   string      `json:"tier_label"`
	Explanation string      `json:"explanation"`
}

// EnsembleBar is one simulated ensemble member.
type EnsembleBar struct {
	Value     float64 `json:"value"`
	HeightPct float64 `json:"height_pct"`
	Color     string  `json:"color"`
}

type UncertaintyLayer struct {
	Value            string        `json:"value"`
	HighDisagreement bool          `json:"high_disagreement"`
	Badge            string        `json:"badge"`
	Bars             []EnsembleBar `json:"bars"`
	Explanation      string        `json:"explanation"`
}

type NoveltyLayer struct {
	AnomalyScore string  `json:"anomaly_score"`
	Novel        bool    `json:"novel"`
	Badge        string  `json:"badge"`
	DotPct       float64 `json:"dot_pct"`
	Explanation  string  `json:"explanation"`
}

type Costs struct {
	ExpectedLoss     string `json:"expected_loss"`
	ManualReviewCost string `json:"manual_review_cost"`
	NetUtility       string `json:"net_utility"`
}

type Verdict struct {
	DecisionMeta
	Title     string `json:"title"`
	Rule      string `json:"rule"`
	Costs     Costs  `json:"costs"`
	Model     string `json:"model"`
	Method    string `json:"method"`
	Timestamp string `json:"timestamp"`
}

// RevealStep tells the dashboard when to show a section.
type RevealStep struct {
	Section string `json:"section"`
	DelayMs int    `json:"delay_ms"`
}

var revealSchedule = []RevealStep{
	{"summary", 0},
	{"risk", 200},
	{"uncertainty", 500},
	{"novelty", 800},
	{"flow", 1100},
	{"verdict", 1300},
}

// Analysis is everything the dashboard shows for one scored transaction.
type Analysis struct {
	ID          string                `json:"id"`
	Source      models.Source         `json:"source"`
	Preset      string                `json:"preset,omitempty"`
	Attempts    int                   `json:"attempts,omitempty"`
	Decision    models.Decision       `json:"decision"`
	Features    []float64             `json:"features"`
	Result      *models.ScoringResult `json:"result"`
	Summary     TransactionSummary    `json:"summary"`
	Risk        RiskLayer             `json:"risk"`
	Uncertainty UncertaintyLayer      `json:"uncertainty"`
	Novelty     NoveltyLayer          `json:"novelty"`
	Verdict     Verdict               `json:"verdict"`
	Reveal      []RevealStep          `json:"reveal"`
	Revision    uint64                `json:"revision"`
	At          time.Time             `json:"at"`
}

// Gaussian draws standard normals for the ensemble bars.
type Gaussian interface {
	Gauss() float64
}

// BuildAnalysis derives the dashboard view of res.
func BuildAnalysis(features []float64, res *models.ScoringResult, g Gaussian) Analysis {
	risk, unc := res.RiskScore, res.Uncertainty
	return Analysis{
		Decision:    res.Decision,
		Features:    features,
		Result:      res,
		Summary:     summarize(features),
		Risk:        riskLayer(risk, res.Tier),
		Uncertainty: uncertaintyLayer(risk, unc, g),
		Novelty:     noveltyLayer(res.Explanations.AnomalyScore, res.NoveltyFlag),
		Verdict:     verdict(res),
		Reveal:      revealSchedule,
	}
}

func summarize(features []float64) TransactionSummary {
	if len(features) == 0 {
		return TransactionSummary{Amount: util.Placeholder, Time: util.Placeholder}
	}
	return TransactionSummary{
		Amount: fmt.Sprintf("$%.2f", features[len(features)-1]),
		Time:   util.FormatElapsed(features[0]),
	}
}

func riskLayer(risk float64, tier models.Tier) RiskLayer {
	if tier == "" {
		tier = models.TierLow
	}
	l := RiskLayer{
		Score:       fmt.Sprintf("%.6f", risk),
		Value:       risk,
		ProgressPct: math.Min(risk*100, 100),
		Tier:        tier,
		TierLabel:   strings.Replace(string(tier), "_", " ", 1),
	}
	switch tier {
	case models.TierHigh:
		l.Tone = "decline"
	case models.TierMedium:
		l.Tone = "stepup"
	default:
		l.Tone = "approve"
	}
	switch {
	case risk >= riskHighExplain:
		l.Explanation = "The ensemble of 5 models strongly agrees this transaction shows fraud patterns."
	case risk >= riskMediumExplain:
		l.Explanation = "The ensemble detects suspicious signals. Some fraud indicators are present."
	default:
		l.Explanation = "The 5-model ensemble finds no significant fraud indicators in this transaction."
	}
	return l
}

func uncertaintyLayer(risk, unc float64, g Gaussian) UncertaintyLayer {
	high := unc >= highUncertainty
	l := UncertaintyLayer{
		Value:            fmt.Sprintf("%.6f", unc),
		HighDisagreement: high,
		Badge:            "Models Agree",
		Bars:             make([]EnsembleBar, 0, ensembleSize),
	}
	for i := 0; i < ensembleSize; i++ {
		l.Bars = append(l.Bars, ensembleBar(risk+g.Gauss()*unc))
	}
	if high {
		l.Badge = "High Disagreement"
		l.Explanation = fmt.Sprintf("Standard deviation of %.4f across the 5 bootstrap models indicates significant disagreement. The models are not confident in their assessment.", unc)
	} else {
		l.Explanation = fmt.Sprintf("Standard deviation of %.4f shows strong consensus among all 5 models. The assessment is reliable.", unc)
	}
	return l
}

func ensembleBar(v float64) EnsembleBar {
	v = math.Max(0, math.Min(1, v))
	b := EnsembleBar{Value: v, HeightPct: math.Max(minBarHeight, v*100)}
	switch {
	case v > 0.6:
		b.Color = "red"
	case v > 0.3:
		b.Color = "amber"
	default:
		b.Color = "indigo"
	}
	return b
}

// anomalyDotPct maps scores in [-0.3, 0.1] onto the 0..100% track.
func anomalyDotPct(score float64) float64 {
	return math.Min(100, math.Max(0, (score+0.3)/0.4*100))
}

func noveltyLayer(score float64, novel bool) NoveltyLayer {
	l := NoveltyLayer{
		AnomalyScore: fmt.Sprintf("%.6f", score),
		Novel:        novel,
		Badge:        "Known Pattern",
		DotPct:       anomalyDotPct(score),
		Explanation:  "This transaction matches known legitimate behavioral patterns. No novel anomalies detected.",
	}
	if novel {
		l.Badge = "Novel Pattern"
		l.Explanation = "The Isolation Forest (trained solely on legitimate transactions) flags this transaction as having an unseen behavioral pattern."
	}
	return l
}

func verdict(res *models.ScoringResult) Verdict {
	d := res.Decision
	if d == "" {
		d = models.DecisionApprove
	}
	v := Verdict{
		DecisionMeta: MetaFor(d),
		Title:        strings.ReplaceAll(string(d), "_", " "),
		Rule:         RoutingRule(res.RiskScore, res.Uncertainty, res.NoveltyFlag, d),
		Costs: Costs{
			ExpectedLoss:     util.FormatCurrency(&res.Costs.ExpectedLoss),
			ManualReviewCost: util.FormatCurrency(&res.Costs.ManualReviewCost),
			NetUtility:       util.FormatCurrency(&res.Costs.NetUtility),
		},
		Model:     orPlaceholder(res.Meta.ModelVersion),
		Method:    orPlaceholder(res.Meta.UncertaintyMethod),
		Timestamp: orPlaceholder(res.Meta.Timestamp),
	}
	return v
}

func orPlaceholder(s string) string {
	if s == "" {
		return util.Placeholder
	}
	return s
}
