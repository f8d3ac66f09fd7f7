package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"GlassLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	mu      sync.Mutex
	down    bool
	got     []string
	batches int
	closed  bool
}

func (f *flakyPublisher) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyPublisher) PublishDecision(ctx context.Context, ev *models.DecisionEvent) error {
	return f.PublishBatch(ctx, []*models.DecisionEvent{ev})
}

func (f *flakyPublisher) PublishBatch(_ context.Context, evs []*models.DecisionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errors.New("broker unavailable")
	}
	f.batches++
	for _, ev := range evs {
		f.got = append(f.got, ev.ID)
	}
	return nil
}

func (f *flakyPublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *flakyPublisher) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

type errorCounter struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (c *errorCounter) RecordRender(string, float64, error) {}
func (c *errorCounter) RecordPlot(models.Decision)         {}
func (c *errorCounter) RecordAnalysis(models.Source)       {}
func (c *errorCounter) SetAPIUp(bool)                      {}
func (c *errorCounter) SetHistorySize(int)                 {}
func (c *errorCounter) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kinds == nil {
		c.kinds = map[string]int{}
	}
	c.kinds[kind]++
}

func (c *errorCounter) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kinds[kind]
}

func event(id string) *models.DecisionEvent {
	return &models.DecisionEvent{ID: id, Source: models.SourceAPI, Result: models.ScoringResult{Decision: models.DecisionApprove}}
}

// blockingPublisher never returns until release is closed.
type blockingPublisher struct {
	release chan struct{}
	calls   chan string
}

func (b *blockingPublisher) PublishDecision(ctx context.Context, ev *models.DecisionEvent) error {
	b.calls <- ev.ID
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingPublisher) Close() error { return nil }

func TestPipelineForwardsWhenHealthy(t *testing.T) {
	next := &flakyPublisher{}
	p := NewDecisionPipeline(next, nil)
	p.Start()
	defer p.Close()

	require.NoError(t, p.PublishDecision(context.Background(), event("a")))
	require.Eventually(t, func() bool { return len(next.delivered()) == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, []string{"a"}, next.delivered())
	assert.Zero(t, p.Buffered())
}

func TestPipelinePublishDoesNotWaitOnDownstream(t *testing.T) {
	next := &blockingPublisher{release: make(chan struct{}), calls: make(chan string, 8)}
	p := NewDecisionPipeline(next, nil, WithBatchSize(1))
	p.Start()

	start := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.PublishDecision(context.Background(), event(id)))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case id := <-next.calls:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("delivery loop never called downstream")
	}
	close(next.release)
	require.NoError(t, p.Close())
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	m := &errorCounter{}
	p := NewDecisionPipeline(&flakyPublisher{}, m)

	assert.Error(t, p.PublishDecision(context.Background(), nil))
	assert.Error(t, p.PublishDecision(context.Background(), &models.DecisionEvent{}))
	assert.Error(t, p.PublishDecision(context.Background(), &models.DecisionEvent{ID: "x"}))
	assert.Equal(t, 3, m.count("pipeline_validate"))
}

func TestPipelineKeepsOrderAcrossOutage(t *testing.T) {
	next := &flakyPublisher{down: true}
	m := &errorCounter{}
	p := NewDecisionPipeline(next, m, WithBackoff(time.Millisecond, 5*time.Millisecond), WithBatchSize(2))
	p.Start()
	ctx := context.Background()

	require.NoError(t, p.PublishDecision(ctx, event("a")))
	require.NoError(t, p.PublishDecision(ctx, event("b")))
	require.Eventually(t, func() bool { return m.count("pipeline_flush") >= 2 }, time.Second, time.Millisecond)

	// published while the first batch is being retried
	require.NoError(t, p.PublishDecision(ctx, event("c")))
	require.NoError(t, p.PublishDecision(ctx, event("d")))
	require.NoError(t, p.PublishDecision(ctx, event("e")))

	next.setDown(false)
	require.Eventually(t, func() bool { return len(next.delivered()) == 5 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, next.delivered())

	require.NoError(t, p.Close())
	assert.True(t, next.closed)
}

func TestPipelineBufferFull(t *testing.T) {
	m := &errorCounter{}
	p := NewDecisionPipeline(&flakyPublisher{}, m, WithBufferSize(1))

	require.NoError(t, p.PublishDecision(context.Background(), event("a")))
	err := p.PublishDecision(context.Background(), event("b"))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1, m.count("pipeline_buffer_full"))
}

func TestPipelineCloseFlushesRemainder(t *testing.T) {
	next := &flakyPublisher{}
	p := NewDecisionPipeline(next, nil)
	require.NoError(t, p.PublishDecision(context.Background(), event("a")))
	assert.Empty(t, next.delivered(), "nothing is sent before Start")

	require.NoError(t, p.Close())
	assert.Equal(t, []string{"a"}, next.delivered())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.PublishDecision(context.Background(), event("b")), ErrPipelineClosed)
}
