package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GlassLens/internal/domain/models"
	svcmetrics "GlassLens/internal/service/metrics"
	"GlassLens/pkg/cache"
	"GlassLens/pkg/config"
	xhttp "GlassLens/pkg/http"
	applogger "GlassLens/pkg/logger"
)

var (
	ErrInvalidFeatures  = errors.New("scoring: feature vector must have 31 values")
	ErrUnknownPreset    = errors.New("scoring: unknown preset")
	ErrTargetNotReached = errors.New("scoring: target decision not reached")
	// ErrUpstream marks failures talking to the scoring API.
	ErrUpstream = errors.New("scoring: upstream request failed")
)

// APIError is an error reported in the body of a scoring response.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "scoring api: " + e.Message }

const predictCachePrefix = "predict"

// Client calls the remote scoring API. Predictions are cached by the exact
// feature vector.
type Client struct {
	http     *xhttp.Client
	cache    cache.Service
	cacheTTL time.Duration
	attempts int
	log      *applogger.Logger
}

type ClientOption func(*Client)

// WithCache enables prediction caching; a zero ttl disables it.
func WithCache(c cache.Service, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		if ttl > 0 {
			cl.cache = c
			cl.cacheTTL = ttl
		}
	}
}

func WithLogger(l *applogger.Logger) ClientOption {
	return func(cl *Client) { cl.log = l }
}

func NewClient(httpClient *xhttp.Client, attempts int, opts ...ClientOption) *Client {
	if attempts < 1 {
		attempts = 1
	}
	c := &Client{http: httpClient, attempts: attempts, log: applogger.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig wires the HTTP client from the scoring section.
func NewClientFromConfig(cfg *config.Config, c cache.Service, l *applogger.Logger) *Client {
	hc := xhttp.NewClient(
		xhttp.WithBaseURL(cfg.Scoring.BaseURL),
		xhttp.WithTimeout(cfg.Scoring.Timeout),
	)
	return NewClient(hc, cfg.Scoring.RetryAttempts,
		WithCache(c, cfg.Scoring.CacheTTL),
		WithLogger(l.With(applogger.String("component", "scoring-client"))),
	)
}

// Predict posts the features to /predict.
func (c *Client) Predict(ctx context.Context, features []float64) (*models.ScoringResult, error) {
	if len(features) != models.FeatureCount {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFeatures, len(features))
	}

	if c.cache == nil {
		return c.predict(ctx, features)
	}

	key := cache.GenerateKey(predictCachePrefix, cache.HashFloats(features))
	res, hit, err := cache.GetOrLoad(ctx, c.cache, key, c.cacheTTL, func(ctx context.Context) (*models.ScoringResult, error) {
		return c.predict(ctx, features)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		svcmetrics.ScoringCache.WithLabelValues("hit").Inc()
	} else {
		svcmetrics.ScoringCache.WithLabelValues("miss").Inc()
	}
	return res, nil
}

func (c *Client) predict(ctx context.Context, features []float64) (*models.ScoringResult, error) {
	start := time.Now()
	var raw json.RawMessage
	err := c.http.SendWithRetry(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		Path:   "/predict",
		Body:   models.PredictRequest{Features: features},
	}, &raw, c.attempts)
	svcmetrics.ScoringLatency.WithLabelValues("predict").Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.ScoringErrors.WithLabelValues("predict").Inc()
		return nil, fmt.Errorf("predict: %w: %w", ErrUpstream, err)
	}

	res, err := decodePrediction(raw)
	if err != nil {
		svcmetrics.ScoringErrors.WithLabelValues("predict").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	c.log.Debug("prediction received",
		applogger.String("decision", string(res.Decision)),
		applogger.Float64("risk", res.RiskScore),
		applogger.Float64("uncertainty", res.Uncertainty),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return res, nil
}

// decodePrediction accepts {"error": ...}, {"result": {...}} or the bare result.
func decodePrediction(raw json.RawMessage) (*models.ScoringResult, error) {
	var env struct {
		Error  *string         `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	if env.Error != nil && *env.Error != "" {
		return nil, &APIError{Message: *env.Error}
	}

	body := []byte(raw)
	if len(env.Result) > 0 && !bytes.Equal(env.Result, []byte("null")) {
		body = env.Result
	}
	var res models.ScoringResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &res, nil
}

// Health queries /health once; the caller bounds it with ctx.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	start := time.Now()
	var hs models.HealthStatus
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, Path: "/health"}, &hs)
	svcmetrics.ScoringLatency.WithLabelValues("health").Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.ScoringErrors.WithLabelValues("health").Inc()
		return nil, fmt.Errorf("health: %w: %w", ErrUpstream, err)
	}
	return &hs, nil
}
