package scoring

import (
	"context"
	"fmt"

	"GlassLens/internal/domain/models"
	"GlassLens/internal/domain/repository"
)

// MaxGenerateAttempts bounds GenerateForDecision.
const MaxGenerateAttempts = 500

// Generated is the outcome of a successful GenerateForDecision.
type Generated struct {
	Features []float64
	Result   *models.ScoringResult
	Attempts int
}

// GenerateForDecision scores random transactions until the API returns
// target. Attempts are capped at MaxGenerateAttempts; a failed call aborts
// the search.
func GenerateForDecision(ctx context.Context, scorer repository.Scorer, s *Sampler, target models.Decision, maxAttempts int) (*Generated, error) {
	if maxAttempts <= 0 || maxAttempts > MaxGenerateAttempts {
		maxAttempts = MaxGenerateAttempts
	}

	for i := 1; i <= maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		features := s.RandomTransaction()
		res, err := scorer.Predict(ctx, features)
		if err != nil {
			return nil, fmt.Errorf("attempt %d: %w", i, err)
		}
		if res.Decision == target {
			return &Generated{Features: features, Result: res, Attempts: i}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrTargetNotReached, target, maxAttempts)
}
