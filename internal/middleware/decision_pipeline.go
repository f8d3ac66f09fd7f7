package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"GlassLens/internal/domain/models"
	domrepo "GlassLens/internal/domain/repository"
	applogger "GlassLens/pkg/logger"
)

var (
	ErrBufferFull     = errors.New("decision buffer full")
	ErrPipelineClosed = errors.New("decision pipeline closed")
)

// BatchPublisher is implemented by publishers that can send several events
// in one request.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []*models.DecisionEvent) error
}

// DecisionPipeline sits between the lens and the decision publisher. It
// validates and enqueues events without touching downstream; a single
// background loop delivers them in batches, retrying a failed batch before
// taking newer events, so delivery keeps publish order.
type DecisionPipeline struct {
	next       domrepo.DecisionPublisher
	metrics    domrepo.Metrics
	log        *applogger.Logger
	bufCh      chan *models.DecisionEvent
	batchSize  int
	backoffMin time.Duration
	backoffMax time.Duration
	stopCh     chan struct{}
	done       chan struct{}
	// owned by flushLoop until done is closed
	pending    []*models.DecisionEvent
	mu         sync.Mutex
	started    bool
	closed     bool
}

type PipelineOption func(*DecisionPipeline)

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *DecisionPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.DecisionEvent, n)
		}
	}
}

func WithBatchSize(n int) PipelineOption {
	return func(p *DecisionPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithBackoff(min, max time.Duration) PipelineOption {
	return func(p *DecisionPipeline) {
		if min > 0 && max >= min {
			p.backoffMin, p.backoffMax = min, max
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *DecisionPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewDecisionPipeline(next domrepo.DecisionPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *DecisionPipeline {
	p := &DecisionPipeline{
		next:       next,
		metrics:    metrics,
		log:        applogger.NewNop(),
		bufCh:      make(chan *models.DecisionEvent, 1000),
		batchSize:  50,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(applogger.String("component", "decision-pipeline"))
	return p
}

// Start launches the delivery loop. Events published before Start wait in
// the buffer.
func (p *DecisionPipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go p.flushLoop()
}

// PublishDecision enqueues ev for delivery and returns without waiting on
// downstream. A full buffer drops the event and reports ErrBufferFull.
func (p *DecisionPipeline) PublishDecision(_ context.Context, ev *models.DecisionEvent) error {
	if err := validateEvent(ev); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: dropped %s", ErrPipelineClosed, ev.ID)
	}

	select {
	case p.bufCh <- ev:
		return nil
	default:
		p.recordError("pipeline_buffer_full")
		p.log.Warn("decision buffer full, dropping", applogger.String("id", ev.ID))
		return fmt.Errorf("%w: dropped %s", ErrBufferFull, ev.ID)
	}
}

// Buffered is the number of events waiting in the buffer. A batch the loop
// is currently sending or retrying is not counted.
func (p *DecisionPipeline) Buffered() int {
	return len(p.bufCh)
}

// Close stops the flush loop, makes one last attempt to deliver the retried
// batch and the buffer, then closes downstream.
func (p *DecisionPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if started {
		<-p.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	batch := append(p.pending, p.drain(len(p.bufCh))...)
	p.pending = nil
	if len(batch) > 0 {
		if err := p.send(ctx, batch); err != nil {
			p.recordError("pipeline_buffer_drop")
			p.log.Error("dropping buffered decisions", applogger.Int("count", len(batch)), applogger.Error(err))
		}
	}
	return p.next.Close()
}

func (p *DecisionPipeline) flushLoop() {
	defer close(p.done)
	backoff := p.backoffMin
	for {
		if len(p.pending) == 0 {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				p.pending = append([]*models.DecisionEvent{ev}, p.drain(p.batchSize-1)...)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.send(ctx, p.pending)
		cancel()
		if err == nil {
			p.pending = nil
			backoff = p.backoffMin
			continue
		}

		p.recordError("pipeline_flush")
		p.log.Warn("decision delivery failed, retrying",
			applogger.Int("count", len(p.pending)), applogger.Duration("backoff", backoff), applogger.Error(err))
		select {
		case <-time.After(backoff):
		case <-p.stopCh:
			return
		}
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}

func (p *DecisionPipeline) drain(max int) []*models.DecisionEvent {
	var out []*models.DecisionEvent
	for len(out) < max {
		select {
		case ev := <-p.bufCh:
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}

func (p *DecisionPipeline) send(ctx context.Context, batch []*models.DecisionEvent) error {
	if bp, ok := p.next.(BatchPublisher); ok {
		return bp.PublishBatch(ctx, batch)
	}
	for _, ev := range batch {
		if err := p.next.PublishDecision(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *DecisionPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateEvent(ev *models.DecisionEvent) error {
	if ev == nil {
		return fmt.Errorf("decision event nil")
	}
	if ev.ID == "" {
		return fmt.Errorf("decision event id empty")
	}
	if ev.Result.Decision == "" {
		return fmt.Errorf("decision event %s: decision empty", ev.ID)
	}
	return nil
}
