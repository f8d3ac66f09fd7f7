package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"GlassLens/internal/domain/models"
	domrepo "GlassLens/internal/domain/repository"
	"GlassLens/internal/landscape"
	svccache "GlassLens/internal/service/cache"
	"GlassLens/internal/service/scoring"
	pkgcache "GlassLens/pkg/cache"
	applogger "GlassLens/pkg/logger"

	"github.com/google/uuid"
)

// ThemePreferenceKey is where the selected theme is persisted.
const ThemePreferenceKey = "glass-lens-theme"

var ErrHistoryIndex = errors.New("lens: history index out of range")

// APIStatus is the last known reachability of the scoring API.
type APIStatus string

const (
	APIUnknown APIStatus = "unknown"
	APIOnline  APIStatus = "online"
	APIOffline APIStatus = "offline"
)

func (s APIStatus) Text() string {
	switch s {
	case APIOnline:
		return "API Connected"
	case APIOffline:
		return "API Offline"
	}
	return "Checking API"
}

// LensConfig holds the dashboard limits.
type LensConfig struct {
	HistoryLimit        int
	GenerateMaxAttempts int
	FrameTTL            time.Duration
	Background          bool
}

// Status is the dashboard header state.
type Status struct {
	API         APIStatus    `json:"api_status"`
	APIText     string       `json:"api_text"`
	Model       string       `json:"model,omitempty"`
	CheckedAt   time.Time    `json:"checked_at,omitempty"`
	Theme       models.Theme `json:"theme"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	PixelRatio  float64      `json:"pixel_ratio"`
	Format      string       `json:"format"`
	Revision    uint64       `json:"revision"`
	Plotted     int          `json:"plotted"`
	HistorySize int          `json:"history_size"`
}

// HistoryItem is one row of the dashboard history list, most recent first.
type HistoryItem struct {
	Index    int             `json:"index"`
	ID       string          `json:"id"`
	Source   models.Source   `json:"source"`
	Decision models.Decision `json:"decision"`
	Title    string          `json:"title"`
	Risk     string          `json:"risk"`
	Amount   string          `json:"amount"`
	At       time.Time       `json:"at"`
}

// Frame is an encoded landscape image.
type Frame struct {
	Body        []byte
	ContentType string
	ETag        string
}

// Lens drives the landscape renderer from scoring results. The renderer is
// not safe for concurrent use, so every access goes through mu.
type Lens struct {
	mu       sync.Mutex
	renderer *landscape.Renderer
	surface  *landscape.ImageSurface
	history  []*Analysis

	apiMu     sync.RWMutex
	api       APIStatus
	model     string
	checkedAt time.Time

	scorer    domrepo.Scorer
	sampler   *scoring.Sampler
	cfg       LensConfig
	frames    svccache.BytesCache
	prefs     pkgcache.Service
	notifier  domrepo.Notifier
	publisher domrepo.DecisionPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

type LensOption func(*Lens)

func WithFrameCache(c svccache.BytesCache) LensOption {
	return func(l *Lens) { l.frames = c }
}

// WithPreferences persists the theme in c.
func WithPreferences(c pkgcache.Service) LensOption {
	return func(l *Lens) { l.prefs = c }
}

func WithNotifier(n domrepo.Notifier) LensOption {
	return func(l *Lens) { l.notifier = n }
}

func WithPublisher(p domrepo.DecisionPublisher) LensOption {
	return func(l *Lens) { l.publisher = p }
}

func WithMetrics(m domrepo.Metrics) LensOption {
	return func(l *Lens) { l.metrics = m }
}

func WithLensLogger(log *applogger.Logger) LensOption {
	return func(l *Lens) { l.log = log }
}

func WithClock(now func() time.Time) LensOption {
	return func(l *Lens) { l.now = now }
}

func NewLens(renderer *landscape.Renderer, surface *landscape.ImageSurface, scorer domrepo.Scorer, sampler *scoring.Sampler, cfg LensConfig, opts ...LensOption) *Lens {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.GenerateMaxAttempts <= 0 {
		cfg.GenerateMaxAttempts = scoring.MaxGenerateAttempts
	}
	l := &Lens{
		renderer: renderer,
		surface:  surface,
		scorer:   scorer,
		sampler:  sampler,
		cfg:      cfg,
		api:      APIUnknown,
		notifier: nopNotifier{},
		log:      applogger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(applogger.String("component", "lens"))
	return l
}

// Init restores the saved theme and binds the renderer to the live surface.
func (l *Lens) Init(ctx context.Context) error {
	if l.prefs != nil {
		var saved string
		if err := l.prefs.Get(ctx, ThemePreferenceKey, &saved); err == nil && saved != "" {
			l.surface.SetTheme(models.ParseTheme(saved))
		} else if err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
			l.log.Warn("restore theme", applogger.Error(err))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rebindLocked(); err != nil {
		return fmt.Errorf("init landscape: %w", err)
	}
	l.log.Info("landscape initialized",
		applogger.String("theme", string(l.surface.Theme())),
		applogger.String("format", string(l.surface.Format())),
	)
	return nil
}

// Analyze scores features with the API; nil features draw a random transaction.
func (l *Lens) Analyze(ctx context.Context, features []float64) (*Analysis, error) {
	if len(features) == 0 {
		features = l.sampler.RandomTransaction()
	}
	res, err := l.scorer.Predict(ctx, features)
	if err != nil {
		l.recordError("predict")
		return nil, err
	}
	return l.record(ctx, models.SourceAPI, "", features, res, 0)
}

// AnalyzePreset builds a demo payload for name without calling the API.
func (l *Lens) AnalyzePreset(ctx context.Context, name string) (*Analysis, error) {
	features, res, err := scoring.BuildPreset(name, l.sampler, l.now())
	if err != nil {
		return nil, err
	}
	return l.record(ctx, models.SourcePreset, name, features, res, 0)
}

// GenerateForDecision resamples random transactions until the API returns target.
func (l *Lens) GenerateForDecision(ctx context.Context, target models.Decision, maxAttempts int) (*Analysis, error) {
	if maxAttempts <= 0 || maxAttempts > l.cfg.GenerateMaxAttempts {
		maxAttempts = l.cfg.GenerateMaxAttempts
	}
	g, err := scoring.GenerateForDecision(ctx, l.scorer, l.sampler, target, maxAttempts)
	if err != nil {
		if !errors.Is(err, scoring.ErrTargetNotReached) {
			l.recordError("generate")
		}
		return nil, err
	}
	return l.record(ctx, models.SourceGenerate, "", g.Features, g.Result, g.Attempts)
}

// Ingest plots a result scored elsewhere, e.g. read from the scores topic.
func (l *Lens) Ingest(ctx context.Context, features []float64, res *models.ScoringResult) (*Analysis, error) {
	if res == nil {
		return nil, errors.New("lens: nil scoring result")
	}
	return l.record(ctx, models.SourceStream, "", features, res, 0)
}

// Replay shows history item index again and plots it on the landscape.
func (l *Lens) Replay(ctx context.Context, index int) (*Analysis, error) {
	l.mu.Lock()
	if index < 0 || index >= len(l.history) {
		n := len(l.history)
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %d (have %d)", ErrHistoryIndex, index, n)
	}
	prev := l.history[index]
	a := BuildAnalysis(prev.Features, prev.Result, l.sampler)
	a.ID, a.Source, a.Preset, a.Attempts, a.At = prev.ID, models.SourceReplay, prev.Preset, prev.Attempts, l.now().UTC()
	err := l.plotLocked(&a)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	l.afterPlot(ctx, &a, false)
	return &a, nil
}

func (l *Lens) record(ctx context.Context, source models.Source, preset string, features []float64, res *models.ScoringResult, attempts int) (*Analysis, error) {
	a := BuildAnalysis(features, res, l.sampler)
	a.ID = uuid.NewString()
	a.Source, a.Preset, a.Attempts, a.At = source, preset, attempts, l.now().UTC()

	l.mu.Lock()
	err := l.plotLocked(&a)
	if err == nil {
		l.history = append([]*Analysis{&a}, l.history...)
		if len(l.history) > l.cfg.HistoryLimit {
			l.history = l.history[:l.cfg.HistoryLimit]
		}
	}
	size := len(l.history)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.RecordAnalysis(source)
		l.metrics.SetHistorySize(size)
	}
	l.afterPlot(ctx, &a, true)
	return &a, nil
}

func (l *Lens) plotLocked(a *Analysis) error {
	start := time.Now()
	err := l.renderer.PlotTransaction(a.Result.RiskScore, a.Result.Uncertainty, a.Decision)
	l.observeRender(string(l.surface.Format()), start, err)
	if err != nil {
		return fmt.Errorf("plot transaction: %w", err)
	}
	a.Revision = l.renderer.Revision()
	return nil
}

func (l *Lens) afterPlot(ctx context.Context, a *Analysis, publish bool) {
	if l.metrics != nil {
		l.metrics.RecordPlot(a.Decision)
	}
	l.notifier.Notify(models.LandscapeEvent{
		Type:        models.EventPlot,
		Revision:    a.Revision,
		Risk:        a.Result.RiskScore,
		Uncertainty: a.Result.Uncertainty,
		Decision:    a.Decision,
		At:          a.At,
	})
	if !publish || l.publisher == nil || a.Source == models.SourceStream {
		return
	}
	err := l.publisher.PublishDecision(ctx, &models.DecisionEvent{
		ID:       a.ID,
		Source:   a.Source,
		Preset:   a.Preset,
		Features: a.Features,
		Result:   *a.Result,
		At:       a.At,
	})
	if err != nil {
		l.recordError("publish")
		l.log.Warn("publish decision", applogger.String("id", a.ID), applogger.Error(err))
	}
}

// History lists the dashboard history, most recent first.
func (l *Lens) History() []HistoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]HistoryItem, 0, len(l.history))
	for i, a := range l.history {
		items = append(items, HistoryItem{
			Index:    i,
			ID:       a.ID,
			Source:   a.Source,
			Decision: a.Decision,
			Title:    a.Verdict.Title,
			Risk:     fmt.Sprintf("%.4f", a.Result.RiskScore),
			Amount:   a.Summary.Amount,
			At:       a.At,
		})
	}
	return items
}

// ClearLandscape removes every plotted point. The dashboard history is kept
// so items can still be replayed.
func (l *Lens) ClearLandscape(_ context.Context) (uint64, error) {
	l.mu.Lock()
	start := time.Now()
	err := l.renderer.ClearHistory()
	l.observeRender(string(l.surface.Format()), start, err)
	rev := l.renderer.Revision()
	l.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("clear landscape: %w", err)
	}
	l.notifier.Notify(models.LandscapeEvent{Type: models.EventClear, Revision: rev, At: l.now().UTC()})
	return rev, nil
}

// SetTheme persists theme and redraws the landscape with it.
func (l *Lens) SetTheme(ctx context.Context, theme models.Theme) (models.Theme, error) {
	theme = models.ParseTheme(string(theme))
	l.mu.Lock()
	l.surface.SetTheme(theme)
	err := l.rebindLocked()
	rev := l.renderer.Revision()
	l.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("apply theme: %w", err)
	}

	if l.prefs != nil {
		if err := l.prefs.Set(ctx, ThemePreferenceKey, string(theme), 0); err != nil {
			l.log.Warn("save theme", applogger.Error(err))
		}
	}
	l.notifier.Notify(models.LandscapeEvent{Type: models.EventTheme, Revision: rev, Theme: theme, At: l.now().UTC()})
	return theme, nil
}

func (l *Lens) ToggleTheme(ctx context.Context) (models.Theme, error) {
	return l.SetTheme(ctx, l.surface.Theme().Toggle())
}

// SetViewport resizes the live surface and redraws it.
func (l *Lens) SetViewport(_ context.Context, width, height, ratio float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %vx%v", landscape.ErrEmptySurface, width, height)
	}
	if ratio <= 0 {
		ratio = l.surface.PixelRatio()
	}
	if err := landscape.CheckFrameSize(width, height, ratio); err != nil {
		return err
	}
	l.mu.Lock()
	l.surface.SetViewport(width, height, ratio)
	err := l.rebindLocked()
	rev := l.renderer.Revision()
	ratio = l.surface.PixelRatio()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("apply viewport: %w", err)
	}
	l.notifier.Notify(models.LandscapeEvent{
		Type:       models.EventViewport,
		Revision:   rev,
		Width:      width,
		Height:     height,
		PixelRatio: ratio,
		At:         l.now().UTC(),
	})
	return nil
}

func (l *Lens) rebindLocked() error {
	start := time.Now()
	err := l.renderer.Initialize(l.surface)
	l.observeRender(string(l.surface.Format()), start, err)
	return err
}

// Frame returns the live frame, or renders a snapshot when q asks for a
// different format, theme or size. Snapshots are cached per revision.
func (l *Lens) Frame(ctx context.Context, q models.SnapshotQuery) (*Frame, error) {
	format := l.surface.Format()
	if q.Format != "" {
		format = landscape.ParseFormat(q.Format)
	}
	theme := l.surface.Theme()
	if q.Theme != "" {
		theme = models.ParseTheme(q.Theme)
	}
	width, height := l.surface.Size()
	if q.Width > 0 {
		width = q.Width
	}
	if q.Height > 0 {
		height = q.Height
	}
	ratio := l.surface.PixelRatio()
	if q.PixelRatio > 0 {
		ratio = q.PixelRatio
	}

	lw, lh := l.surface.Size()
	live := format == l.surface.Format() && theme == l.surface.Theme() &&
		width == lw && height == lh && ratio == l.surface.PixelRatio()

	if live {
		body, n := l.surface.Frame()
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: nothing rendered yet", landscape.ErrEmptySurface)
		}
		return &Frame{Body: body, ContentType: format.ContentType(), ETag: fmt.Sprintf(`"live-%d"`, n)}, nil
	}
	// checked before taking the renderer lock
	if err := landscape.CheckFrameSize(width, height, ratio); err != nil {
		return nil, err
	}
	return l.snapshot(ctx, format, theme, width, height, ratio)
}

func (l *Lens) snapshot(ctx context.Context, format landscape.Format, theme models.Theme, width, height, ratio float64) (*Frame, error) {
	frameKey := func(rev uint64) string {
		return pkgcache.HashKey(fmt.Sprintf("%d|%s|%s|%g|%g|%g", rev, format, theme, width, height, ratio))
	}
	etag := func(rev uint64, key string) string { return fmt.Sprintf(`"%d-%s"`, rev, key[:12]) }

	l.mu.Lock()
	rev := l.renderer.Revision()
	l.mu.Unlock()

	if l.frames != nil {
		key := frameKey(rev)
		b, ok, err := l.frames.GetBytes(ctx, key)
		if err != nil {
			l.log.Warn("frame cache get", applogger.Error(err))
		}
		if ok {
			return &Frame{Body: b, ContentType: format.ContentType(), ETag: etag(rev, key)}, nil
		}
	}

	snap := landscape.NewImageSurface(
		landscape.WithSize(width, height),
		landscape.WithPixelRatio(ratio),
		landscape.WithTheme(theme),
		landscape.WithFormat(format),
		landscape.WithBackground(l.cfg.Background),
	)
	l.mu.Lock()
	start := time.Now()
	err := l.renderer.RenderTo(snap)
	l.observeRender(string(format), start, err)
	rev = l.renderer.Revision()
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}

	body, _ := snap.Frame()
	key := frameKey(rev)
	if l.frames != nil {
		if err := l.frames.SetBytes(ctx, key, body, l.cfg.FrameTTL); err != nil {
			l.log.Warn("frame cache set", applogger.Error(err))
		}
	}
	return &Frame{Body: body, ContentType: format.ContentType(), ETag: etag(rev, key)}, nil
}

// SetAPIStatus records a health check outcome and notifies on change.
func (l *Lens) SetAPIStatus(online bool, model string) {
	status := APIOffline
	if online {
		status = APIOnline
	}
	l.apiMu.Lock()
	changed := l.api != status
	l.api, l.model, l.checkedAt = status, model, l.now().UTC()
	l.apiMu.Unlock()

	if l.metrics != nil {
		l.metrics.SetAPIUp(online)
	}
	if changed {
		l.log.Info("scoring api status changed", applogger.String("status", string(status)))
		l.notifier.Notify(models.LandscapeEvent{Type: models.EventStatus, APIStatus: string(status), At: l.now().UTC()})
	}
}

func (l *Lens) Status() Status {
	l.apiMu.RLock()
	api, model, checked := l.api, l.model, l.checkedAt
	l.apiMu.RUnlock()

	w, h := l.surface.Size()
	l.mu.Lock()
	rev := l.renderer.Revision()
	plotted := len(l.renderer.History())
	if _, ok := l.renderer.Current(); ok {
		plotted++
	}
	size := len(l.history)
	l.mu.Unlock()

	return Status{
		API:         api,
		APIText:     api.Text(),
		Model:       model,
		CheckedAt:   checked,
		Theme:       l.surface.Theme(),
		Width:       w,
		Height:      h,
		PixelRatio:  l.surface.PixelRatio(),
		Format:      string(l.surface.Format()),
		Revision:    rev,
		Plotted:     plotted,
		HistorySize: size,
	}
}

func (l *Lens) observeRender(format string, start time.Time, err error) {
	if l.metrics != nil {
		l.metrics.RecordRender(format, time.Since(start).Seconds(), err)
	}
	if err != nil {
		l.log.Error("render failed", applogger.String("format", format), applogger.Error(err))
	}
}

func (l *Lens) recordError(kind string) {
	if l.metrics != nil {
		l.metrics.RecordError(kind)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.LandscapeEvent) {}
