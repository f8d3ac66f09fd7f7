package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"GlassLens/internal/domain/models"
	"GlassLens/pkg/cache"
	xhttp "GlassLens/pkg/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResult = `{"decision":"STEP_UP_AUTH","risk_score":0.45,"uncertainty":0.01,"novelty_flag":false,
"tier":"medium_risk","costs":{"expected_loss":450,"manual_review_cost":20,"net_utility":-470},
"explanations":{"anomaly_score":0.12,"top_features":["V14"]},
"meta":{"model_version":"xgb_ensemble_v2","uncertainty_method":"bootstrap_std","timestamp":"2026-01-02T03:04:05Z"}}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := xhttp.NewClient(xhttp.WithBaseURL(srv.URL), xhttp.WithBackoff(time.Millisecond))
	return NewClient(hc, 3, opts...)
}

func features() []float64 { return make([]float64, models.FeatureCount) }

func TestPredictDecodesResponseShapes(t *testing.T) {
	cases := map[string]string{
		"bare":    sampleResult,
		"wrapped": `{"result":` + sampleResult + `}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/predict", r.URL.Path)
				var req models.PredictRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Len(t, req.Features, models.FeatureCount)
				_, _ = w.Write([]byte(body))
			})

			res, err := c.Predict(context.Background(), features())
			require.NoError(t, err)
			assert.Equal(t, models.DecisionStepUpAuth, res.Decision)
			assert.Equal(t, models.TierMedium, res.Tier)
			assert.True(t, res.Costs.NetUtility.Equal(decimal.NewFromInt(-470)))
			assert.Equal(t, []string{"V14"}, res.Explanations.TopFeatures)
		})
	}
}

func TestPredictKeepsNaiveTimestamp(t *testing.T) {
	body := strings.Replace(sampleResult, `"2026-01-02T03:04:05Z"`, `"2026-01-02T03:04:05.123456"`, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	res, err := c.Predict(context.Background(), features())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05.123456", res.Meta.Timestamp)
}

func TestPredictSurfacesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	})

	_, err := c.Predict(context.Background(), features())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "model not loaded", apiErr.Message)
}

func TestPredictRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleResult))
	})

	_, err := c.Predict(context.Background(), features())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPredictRejectsWrongFeatureCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Predict(context.Background(), []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidFeatures)
}

func TestPredictCachesByFeatures(t *testing.T) {
	var calls int32
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(sampleResult))
	}, WithCache(mc, time.Minute))

	f := features()
	_, err := c.Predict(context.Background(), f)
	require.NoError(t, err)
	res, err := c.Predict(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 0.45, res.RiskScore)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	f[0] = 1
	_, err = c.Predict(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","model":"xgb_ensemble_v2"}`))
	})
	hs, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", hs.Status)
	assert.Equal(t, "xgb_ensemble_v2", hs.Model)
}

func TestPresetsLandInTheirRegions(t *testing.T) {
	s := NewSampler(42)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, name := range PresetNames() {
		p, _ := LookupPreset(name)
		for i := 0; i < 50; i++ {
			f, res := p.Build(s, now)
			require.Len(t, f, models.FeatureCount)
			assert.Equal(t, p.Decision, res.Decision)
			assert.GreaterOrEqual(t, res.RiskScore, p.Risk.Lo)
			assert.Less(t, res.RiskScore, p.Risk.Lo+p.Risk.Span)
			assert.GreaterOrEqual(t, res.Uncertainty, p.Unc.Lo)
			assert.Less(t, res.Uncertainty, p.Unc.Lo+p.Unc.Span)
			assert.GreaterOrEqual(t, f[0], p.Time.Lo)
			assert.GreaterOrEqual(t, f[models.FeatureCount-1], p.Amount.Lo)
			assert.Equal(t, p.Novel, res.NoveltyFlag)
			assert.Equal(t, "xgb_ensemble_v2", res.Meta.ModelVersion)
		}
	}
}

func TestDemoResultEconomics(t *testing.T) {
	now := time.Now()

	res := DemoResult(models.DecisionStepUpAuth, 0.5, 0.01, false, 0.1, now)
	assert.Equal(t, models.TierMedium, res.Tier)
	assert.True(t, res.Costs.ExpectedLoss.Equal(decimal.NewFromInt(500)))
	assert.True(t, res.Costs.ManualReviewCost.Equal(decimal.NewFromInt(20)))
	assert.True(t, res.Costs.NetUtility.Equal(decimal.NewFromInt(-520)))

	res = DemoResult(models.DecisionDecline, 0.9, 0.01, false, 0.1, now)
	assert.Equal(t, models.TierHigh, res.Tier)
	assert.True(t, res.Costs.ManualReviewCost.IsZero())
	assert.True(t, res.Costs.NetUtility.Equal(decimal.NewFromInt(-900)))

	assert.Equal(t, models.TierLow, TierFor(0.29))
	assert.Equal(t, models.TierMedium, TierFor(0.30))
	assert.Equal(t, models.TierHigh, TierFor(0.80))
}

func TestBuildPresetUnknown(t *testing.T) {
	_, _, err := BuildPreset("nope", NewSampler(1), time.Now())
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestRandomTransactionRanges(t *testing.T) {
	s := NewSampler(7)
	for i := 0; i < 200; i++ {
		f := s.RandomTransaction()
		require.Len(t, f, models.FeatureCount)
		assert.GreaterOrEqual(t, f[0], 0.0)
		assert.Less(t, f[0], 172800.0)
		assert.GreaterOrEqual(t, f[30], 1.0)
		assert.Less(t, f[30], 5000.0)
	}
}

type scriptedScorer struct {
	decisions []models.Decision
	calls     int
	err       error
}

func (s *scriptedScorer) Predict(context.Context, []float64) (*models.ScoringResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := s.decisions[s.calls%len(s.decisions)]
	s.calls++
	return &models.ScoringResult{Decision: d}, nil
}

func (s *scriptedScorer) Health(context.Context) (*models.HealthStatus, error) {
	return &models.HealthStatus{Status: "ok"}, nil
}

func TestGenerateForDecision(t *testing.T) {
	sc := &scriptedScorer{decisions: []models.Decision{models.DecisionApprove, models.DecisionApprove, models.DecisionDecline}}
	g, err := GenerateForDecision(context.Background(), sc, NewSampler(1), models.DecisionDecline, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Attempts)
	assert.Len(t, g.Features, models.FeatureCount)

	sc = &scriptedScorer{decisions: []models.Decision{models.DecisionApprove}}
	_, err = GenerateForDecision(context.Background(), sc, NewSampler(1), models.DecisionDecline, 5)
	assert.ErrorIs(t, err, ErrTargetNotReached)
	assert.Equal(t, 5, sc.calls)

	sc = &scriptedScorer{decisions: []models.Decision{models.DecisionApprove}}
	_, err = GenerateForDecision(context.Background(), sc, NewSampler(1), models.DecisionDecline, 10_000)
	assert.ErrorIs(t, err, ErrTargetNotReached)
	assert.Equal(t, MaxGenerateAttempts, sc.calls)

	sc = &scriptedScorer{err: errors.New("offline")}
	_, err = GenerateForDecision(context.Background(), sc, NewSampler(1), models.DecisionDecline, 5)
	assert.EqualError(t, err, "attempt 1: offline")
}
