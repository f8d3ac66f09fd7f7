package usecase

import (
	"context"
	"time"

	domrepo "GlassLens/internal/domain/repository"
	applogger "GlassLens/pkg/logger"
)

// StatusSink receives health check outcomes.
type StatusSink interface {
	SetAPIStatus(online bool, model string)
}

// HealthMonitor polls the scoring API health endpoint.
type HealthMonitor struct {
	scorer   domrepo.Scorer
	sink     StatusSink
	interval time.Duration
	timeout  time.Duration
	log      *applogger.Logger
}

func NewHealthMonitor(scorer domrepo.Scorer, sink StatusSink, interval, timeout time.Duration, l *applogger.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &HealthMonitor{
		scorer:   scorer,
		sink:     sink,
		interval: interval,
		timeout:  timeout,
		log:      l.With(applogger.String("component", "health-monitor")),
	}
}

// Run checks once immediately, then every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check performs one bounded health request and reports whether the API is up.
func (m *HealthMonitor) Check(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	hs, err := m.scorer.Health(cctx)
	if err != nil {
		m.log.Debug("scoring api unreachable", applogger.Error(err))
		m.sink.SetAPIStatus(false, "")
		return false
	}
	m.sink.SetAPIStatus(true, hs.Model)
	return true
}
