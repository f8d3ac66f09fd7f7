package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"GlassLens/internal/handler/ws"
	svccache "GlassLens/internal/service/cache"
	"GlassLens/internal/service/ratelimit"
	"GlassLens/internal/usecase"
	"GlassLens/pkg/config"
	xhttp "GlassLens/pkg/http"
	pkgkafka "GlassLens/pkg/kafka"
	applogger "GlassLens/pkg/logger"
)

const (
	sweepInterval = time.Minute
	limiterIdle   = 10 * time.Minute
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	lens       *usecase.Lens
	httpServer *xhttp.Server
	monitor    *usecase.HealthMonitor
	consumer   *pkgkafka.Consumer
	hub        *ws.Hub
	limiter    *ratelimit.Limiter
	frames     *svccache.TTLCache
	wg         sync.WaitGroup
}

type Option func(*App)

func WithHealthMonitor(m *usecase.HealthMonitor) Option {
	return func(a *App) { a.monitor = m }
}

// WithConsumer starts c with the app; nil leaves the scores topic unread.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

func WithHub(h *ws.Hub) Option {
	return func(a *App) { a.hub = h }
}

// WithLimiter prunes idle client buckets periodically.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

// WithFrameCache sweeps expired frames periodically.
func WithFrameCache(c *svccache.TTLCache) Option {
	return func(a *App) { a.frames = c }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, lens *usecase.Lens, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &App{cfg: cfg, log: l, lens: lens, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts every component and blocks until ctx is done, then shuts
// them down.
func (a *App) Serve(ctx context.Context) error {
	if err := a.lens.Init(ctx); err != nil {
		return err
	}

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.monitor != nil {
		a.goRun(func() { a.monitor.Run(bg) })
	}
	if a.limiter != nil || a.frames != nil {
		a.goRun(func() { a.sweep(bg) })
	}

	if err := a.start(); err != nil {
		cancel()
		return errors.Join(err, a.shutdown())
	}
	a.log.Info("glass lens started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("scoring_api", a.cfg.Scoring.BaseURL),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// start launches the consumer and the HTTP listener. On error the caller
// still owns shutdown of whatever already runs.
func (a *App) start() error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if a.limiter != nil {
				a.limiter.Prune(limiterIdle)
			}
			if a.frames != nil {
				if n := a.frames.Sweep(); n > 0 {
					a.log.Debug("frames expired", applogger.Int("count", n))
				}
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	var errs []error
	if a.hub != nil {
		a.hub.Close()
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.wg.Wait()

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
