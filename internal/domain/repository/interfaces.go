package repository

import (
	"context"

	"GlassLens/internal/domain/models"
)

// Scorer is the remote fraud scoring API.
type Scorer interface {
	Predict(ctx context.Context, features []float64) (*models.ScoringResult, error)
	Health(ctx context.Context) (*models.HealthStatus, error)
}

type DecisionPublisher interface {
	PublishDecision(ctx context.Context, ev *models.DecisionEvent) error
	Close() error
}

// Notifier fans landscape events out to connected dashboards. Notify must
// not block.
type Notifier interface {
	Notify(ev models.LandscapeEvent)
}

type Metrics interface {
	RecordRender(format string, seconds float64, err error)
	RecordPlot(decision models.Decision)
	RecordAnalysis(source models.Source)
	RecordError(kind string)
	SetAPIUp(up bool)
	SetHistorySize(n int)
}
