package models

import "github.com/shopspring/decimal"

// FeatureCount is the length of a scoring feature vector: elapsed time,
// 29 PCA components, then the amount.
const FeatureCount = 31

// Tier buckets a risk score.
type Tier string

const (
	TierLow    Tier = "low_risk"
	TierMedium Tier = "medium_risk"
	TierHigh   Tier = "high_risk"
)

// Costs is the decision economics returned by the scoring API.
type Costs struct {
	ExpectedLoss     decimal.Decimal `json:"expected_loss"`
	ManualReviewCost decimal.Decimal `json:"manual_review_cost"`
	NetUtility       decimal.Decimal `json:"net_utility"`
}

type Explanations struct {
	AnomalyScore float64  `json:"anomaly_score"`
	TopFeatures  []string `json:"top_features"`
}

// ResultMeta describes the model run. Timestamp is kept as the API sent it;
// it is only displayed, and the API may omit the zone offset.
type ResultMeta struct {
	ModelVersion      string `json:"model_version"`
	UncertaintyMethod string `json:"uncertainty_method"`
	Timestamp         string `json:"timestamp"`
}

// ScoringResult is the payload of POST /predict.
type ScoringResult struct {
	Decision     Decision     `json:"decision"`
	RiskScore    float64      `json:"risk_score"`
	Uncertainty  float64      `json:"uncertainty"`
	NoveltyFlag  bool         `json:"novelty_flag"`
	Tier         Tier         `json:"tier"`
	Costs        Costs        `json:"costs"`
	Explanations Explanations `json:"explanations"`
	Meta         ResultMeta   `json:"meta"`
}

// HealthStatus is the payload of GET /health on the scoring API.
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// PredictRequest is the body sent to the scoring API.
type PredictRequest struct {
	Features []float64 `json:"features"`
}
