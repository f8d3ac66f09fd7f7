package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"GlassLens/internal/domain/models"
	domrepo "GlassLens/internal/domain/repository"
	applogger "GlassLens/pkg/logger"
)

// Ingester plots externally scored transactions.
type Ingester interface {
	Ingest(ctx context.Context, features []float64, res *models.ScoringResult) (*Analysis, error)
}

// KafkaScoresHandler plots results consumed from the scores topic.
type KafkaScoresHandler struct {
	topic   string
	lens    Ingester
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewKafkaScoresHandler(topic string, lens Ingester, metrics domrepo.Metrics, l *applogger.Logger) *KafkaScoresHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaScoresHandler{topic: topic, lens: lens, metrics: metrics, log: l}
}

func (h *KafkaScoresHandler) Topic() string { return h.topic }

// Handle accepts a DecisionEvent or a bare scoring result.
func (h *KafkaScoresHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.DecisionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode score: %w", err)
	}
	res := &ev.Result
	if res.Decision == "" {
		var bare models.ScoringResult
		if err := json.Unmarshal(b, &bare); err != nil || bare.Decision == "" {
			h.recordError("consumer_unmarshal")
			return fmt.Errorf("decode score: missing decision")
		}
		res = &bare
	}
	if n := len(ev.Features); n != 0 && n != models.FeatureCount {
		h.log.Warn("dropping features of unexpected length", applogger.Int("len", n))
		ev.Features = nil
	}

	a, err := h.lens.Ingest(ctx, ev.Features, res)
	if err != nil {
		h.recordError("consumer_plot")
		return err
	}
	h.log.Debug("streamed score plotted",
		applogger.String("id", a.ID),
		applogger.String("decision", string(a.Decision)),
		applogger.Int64("revision", int64(a.Revision)),
	)
	return nil
}

func (h *KafkaScoresHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
