package di

import (
	"context"
	"fmt"
	"time"

	"GlassLens/internal/domain/models"
	"GlassLens/internal/domain/repository"
	"GlassLens/internal/handler/api"
	"GlassLens/internal/handler/ws"
	"GlassLens/internal/landscape"
	mid "GlassLens/internal/middleware"
	internalrepo "GlassLens/internal/repository"
	svccache "GlassLens/internal/service/cache"
	svcmetrics "GlassLens/internal/service/metrics"
	"GlassLens/internal/service/ratelimit"
	"GlassLens/internal/service/scoring"
	"GlassLens/internal/usecase"
	pkgcache "GlassLens/pkg/cache"
	"GlassLens/pkg/config"
	xhttp "GlassLens/pkg/http"
	pkgkafka "GlassLens/pkg/kafka"
	applogger "GlassLens/pkg/logger"
	"GlassLens/pkg/metrics"
	"GlassLens/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "glasslens",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svcmetrics.Register(reg)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache returns the shared cache: memory only, or memory in front of
// Redis when Redis is enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := pkgcache.NewRedisCache(context.Background(),
		pkgcache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := pkgcache.NewLayeredCache(rc, cfg.Cache.MemoryMaxSize, time.Minute)
	l.Info("redis cache enabled",
		applogger.String("host", cfg.Cache.Redis.Host),
		applogger.Int("port", cfg.Cache.Redis.Port),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideLocalFrames is the in-process frame cache swept by the app.
func ProvideLocalFrames(cfg *config.Config) *svccache.TTLCache {
	return svccache.NewTTLCache(cfg.Cache.MemoryMaxSize)
}

// ProvideFrameCache shares rendered snapshots through Redis when it is
// enabled, keeping the local cache in front.
func ProvideFrameCache(cfg *config.Config, local *svccache.TTLCache, shared pkgcache.Service) svccache.BytesCache {
	if !cfg.Cache.Redis.Enabled {
		return local
	}
	return svccache.NewTiered(local, svccache.NewSharedCache(shared, "frame"), cfg.Cache.FrameTTL/2)
}

// ProvideScorer creates the scoring API client.
func ProvideScorer(cfg *config.Config, c pkgcache.Service, l *applogger.Logger) repository.Scorer {
	return scoring.NewClientFromConfig(cfg, c, l)
}

func ProvideSampler() *scoring.Sampler {
	return scoring.NewSampler(time.Now().UnixNano())
}

func ProvideRenderer(cfg *config.Config) *landscape.Renderer {
	return landscape.NewRenderer(landscape.WithZoneLabels(cfg.Landscape.ZoneLabels))
}

// ProvideSurface creates the live landscape surface.
func ProvideSurface(cfg *config.Config) *landscape.ImageSurface {
	return landscape.NewImageSurface(
		landscape.WithSize(cfg.Landscape.Width, cfg.Landscape.Height),
		landscape.WithPixelRatio(cfg.Landscape.PixelRatio),
		landscape.WithTheme(models.ParseTheme(cfg.Landscape.Theme)),
		landscape.WithFormat(landscape.ParseFormat(cfg.Landscape.Format)),
		landscape.WithBackground(cfg.Landscape.Background),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
// With the log collector enabled, aggregated errors go to its topic.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerMetrics(reg),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if c := cfg.Logging.Collector; c.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   c.FlushInterval,
			CountThreshold: c.CountThreshold,
			Topic:          c.Topic,
			Publisher:      producer,
		})
	}
	cleanup := func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("close kafka producer", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideDecisionPublisher buffers decisions in front of Kafka; it is nil
// when Kafka is off.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config, m repository.Metrics, l *applogger.Logger) (repository.DecisionPublisher, func()) {
	if producer == nil {
		return nil, func() {}
	}
	pipe := mid.NewDecisionPipeline(
		internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic),
		m,
		mid.WithBufferSize(cfg.Kafka.Producer.BufferSize),
		mid.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		mid.WithPipelineLogger(l),
	)
	pipe.Start()
	return pipe, func() {
		if err := pipe.Close(); err != nil {
			l.Warn("close decision publisher", applogger.Error(err))
		}
	}
}

func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(cfg.Server.AllowedOrigins, l)
}

// ProvideLens assembles the landscape service.
func ProvideLens(
	cfg *config.Config,
	renderer *landscape.Renderer,
	surface *landscape.ImageSurface,
	scorer repository.Scorer,
	sampler *scoring.Sampler,
	frames svccache.BytesCache,
	prefs pkgcache.Service,
	hub *ws.Hub,
	publisher repository.DecisionPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Lens {
	lens := usecase.NewLens(renderer, surface, scorer, sampler,
		usecase.LensConfig{
			HistoryLimit:        cfg.Dashboard.HistoryLimit,
			GenerateMaxAttempts: cfg.Scoring.GenerateMaxAttempts,
			FrameTTL:            cfg.Cache.FrameTTL,
			Background:          cfg.Landscape.Background,
		},
		usecase.WithFrameCache(frames),
		usecase.WithPreferences(prefs),
		usecase.WithNotifier(hub),
		usecase.WithPublisher(publisher),
		usecase.WithMetrics(m),
		usecase.WithLensLogger(l),
	)
	hub.OnConnect(func() interface{} { return lens.Status() })
	return lens
}

func ProvideHealthMonitor(cfg *config.Config, scorer repository.Scorer, lens *usecase.Lens, l *applogger.Logger) *usecase.HealthMonitor {
	return usecase.NewHealthMonitor(scorer, lens, cfg.Scoring.HealthInterval, cfg.Scoring.HealthTimeout, l)
}

// ProvideKafkaConsumer reads the scores topic, or is nil when no topic is set.
func ProvideKafkaConsumer(cfg *config.Config, lens *usecase.Lens, m repository.Metrics, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ScoresTopic == "" {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers, c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerMetrics(reg),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaScoresHandler(cfg.Kafka.ScoresTopic, lens, m, l))
	return consumer, nil
}

func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandlers lists every route group served by the HTTP server.
func ProvideHandlers(cfg *config.Config, lens *usecase.Lens, limiter *ratelimit.Limiter, hub *ws.Hub, l *applogger.Logger) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewLensEchoHandler(l, lens, limiter, api.RateConfig{
			PerSecond:      cfg.Dashboard.RateLimit,
			Burst:          cfg.Dashboard.RateBurst,
			FramePerSecond: cfg.Dashboard.FrameRate,
			FrameBurst:     cfg.Dashboard.FrameBurst,
		}),
		hub,
	}
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		xhttp.WithMetrics(metricsPath, reg),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	lens *usecase.Lens,
	monitor *usecase.HealthMonitor,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	frames *svccache.TTLCache,
) *server.App {
	return server.New(cfg, l, lens, httpServer,
		server.WithHealthMonitor(monitor),
		server.WithConsumer(consumer),
		server.WithHub(hub),
		server.WithLimiter(limiter),
		server.WithFrameCache(frames),
	)
}
