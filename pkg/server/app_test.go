package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"GlassLens/internal/domain/models"
	"GlassLens/internal/handler/ws"
	"GlassLens/internal/landscape"
	svccache "GlassLens/internal/service/cache"
	"GlassLens/internal/service/ratelimit"
	"GlassLens/internal/service/scoring"
	"GlassLens/internal/usecase"
	"GlassLens/pkg/config"
	xhttp "GlassLens/pkg/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offlineScorer struct{}

func (offlineScorer) Predict(context.Context, []float64) (*models.ScoringResult, error) {
	return nil, scoring.ErrUpstream
}

func (offlineScorer) Health(context.Context) (*models.HealthStatus, error) {
	return nil, scoring.ErrUpstream
}

// countingScorer counts health checks so a test can tell whether the
// monitor goroutine is still running.
type countingScorer struct {
	offlineScorer
	checks atomic.Int64
}

func (c *countingScorer) Health(ctx context.Context) (*models.HealthStatus, error) {
	c.checks.Add(1)
	return c.offlineScorer.Health(ctx)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServeStartsAndShutsDown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = freePort(t)

	surface := landscape.NewImageSurface(
		landscape.WithSize(320, 200),
		landscape.WithFormat(landscape.FormatSVG),
	)
	hub := ws.NewHub(nil, nil)
	frames := svccache.NewTTLCache(8)
	lens := usecase.NewLens(landscape.NewRenderer(), surface, offlineScorer{}, scoring.NewSampler(1),
		usecase.LensConfig{}, usecase.WithNotifier(hub), usecase.WithFrameCache(frames))
	monitor := usecase.NewHealthMonitor(offlineScorer{}, lens, time.Hour, time.Second, nil)

	srv := xhttp.NewServer([]xhttp.Handler{hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(time.Second, time.Second, 2*time.Second),
		xhttp.WithMetrics("/metrics", prometheus.NewRegistry()),
	)
	app := New(cfg, nil, lens, srv,
		WithHealthMonitor(monitor),
		WithHub(hub),
		WithLimiter(ratelimit.New()),
		WithFrameCache(frames),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	url := "http://127.0.0.1:" + strconv.Itoa(cfg.Server.Port) + "/metrics"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return lens.Status().API == usecase.APIOffline
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotZero(t, lens.Status().Revision)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeStopsBackgroundWorkWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := config.Default()
	cfg.Server.Port = taken.Addr().(*net.TCPAddr).Port

	scorer := &countingScorer{}
	surface := landscape.NewImageSurface(landscape.WithSize(320, 200), landscape.WithFormat(landscape.FormatSVG))
	lens := usecase.NewLens(landscape.NewRenderer(), surface, scorer, scoring.NewSampler(1), usecase.LensConfig{})
	monitor := usecase.NewHealthMonitor(scorer, lens, 5*time.Millisecond, time.Second, nil)

	srv := xhttp.NewServer(nil, xhttp.WithPort(cfg.Server.Port), xhttp.WithTimeouts(time.Second, time.Second, time.Second))
	app := New(cfg, nil, lens, srv, WithHealthMonitor(monitor), WithLimiter(ratelimit.New()))

	done := make(chan error, 1)
	go func() { done <- app.Serve(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listen")
	case <-time.After(3 * time.Second):
		t.Fatal("Serve kept running after the listener failed")
	}

	// Serve waited for the monitor, so no health check can start afterwards.
	after := scorer.checks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, scorer.checks.Load())
}
