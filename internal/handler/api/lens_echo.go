package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"GlassLens/internal/domain/models"
	"GlassLens/internal/landscape"
	"GlassLens/internal/service/ratelimit"
	"GlassLens/internal/service/scoring"
	"GlassLens/internal/usecase"
	xhttp "GlassLens/pkg/http"
	xlogger "GlassLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateConfig limits routes per client IP. The scoring routes share one
// bucket; landscape frames have their own.
type RateConfig struct {
	PerSecond      float64
	Burst          float64
	FramePerSecond float64
	FrameBurst     float64
}

// LensEchoHandler exposes the Lens service over HTTP.
type LensEchoHandler struct {
	logger  *xlogger.Logger
	lens    *usecase.Lens
	limiter *ratelimit.Limiter
	rate    RateConfig
}

var registerDecisionTag sync.Once

func NewLensEchoHandler(logger *xlogger.Logger, lens *usecase.Lens, limiter *ratelimit.Limiter, rate RateConfig) *LensEchoHandler {
	registerDecisionTag.Do(func() {
		err := xhttp.RegisterStringValidation("decision",
			"must be one of: APPROVE, ABSTAIN, STEP_UP_AUTH, ESCALATE_INVEST, DECLINE",
			func(s string) bool { return models.ParseDecision(s).Known() })
		if err != nil {
			logger.Error("register decision validation", xlogger.Error(err))
		}
	})
	return &LensEchoHandler{logger: logger, lens: lens, limiter: limiter, rate: rate}
}

func (h *LensEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/status", h.Status)

	var limited []echo.MiddlewareFunc
	if h.limiter != nil && h.rate.Burst > 0 {
		limited = append(limited, h.limiter.Middleware(h.rate.PerSecond, h.rate.Burst))
	}
	g.POST("/analyze", h.Analyze, limited...)
	g.POST("/presets/:name", h.Preset, limited...)
	g.POST("/generate", h.Generate, limited...)

	g.GET("/presets", h.Presets)
	g.GET("/history", h.History)
	g.POST("/history/:index/replay", h.Replay)

	var frames []echo.MiddlewareFunc
	if h.limiter != nil && h.rate.FrameBurst > 0 {
		frames = append(frames, h.limiter.ScopedMiddleware("frames", h.rate.FramePerSecond, h.rate.FrameBurst))
	}
	g.GET("/landscape", h.Landscape, frames...)
	g.POST("/landscape/clear", h.Clear)
	g.PUT("/landscape/viewport", h.Viewport)
	g.PUT("/theme", h.SetTheme)
	g.POST("/theme/toggle", h.ToggleTheme)
}

func (h *LensEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok", "service": "glasslens"})
}

func (h *LensEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.lens.Status())
}

func (h *LensEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.lens.Analyze(c.Request().Context(), req.Features)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *LensEchoHandler) Presets(c echo.Context) error {
	return xhttp.SuccessResponse(c, scoring.PresetNames())
}

func (h *LensEchoHandler) Preset(c echo.Context) error {
	req := &models.PresetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.lens.AnalyzePreset(c.Request().Context(), req.Name)
	if err != nil {
		return h.fail(c, "preset", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *LensEchoHandler) Generate(c echo.Context) error {
	req := &models.GenerateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.lens.GenerateForDecision(c.Request().Context(), models.ParseDecision(req.Decision), req.MaxAttempts)
	if err != nil {
		return h.fail(c, "generate", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *LensEchoHandler) History(c echo.Context) error {
	items := h.lens.History()
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *LensEchoHandler) Replay(c echo.Context) error {
	req := &models.ReplayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.lens.Replay(c.Request().Context(), req.Index)
	if err != nil {
		return h.fail(c, "replay", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *LensEchoHandler) Landscape(c echo.Context) error {
	req := &models.SnapshotQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f, err := h.lens.Frame(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "landscape", err)
	}
	return xhttp.BlobResponse(c, f.ContentType, f.ETag, f.Body)
}

func (h *LensEchoHandler) Clear(c echo.Context) error {
	rev, err := h.lens.ClearLandscape(c.Request().Context())
	if err != nil {
		return h.fail(c, "clear", err)
	}
	return xhttp.SuccessResponse(c, map[string]uint64{"revision": rev})
}

func (h *LensEchoHandler) Viewport(c echo.Context) error {
	req := &models.ViewportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.lens.SetViewport(c.Request().Context(), req.Width, req.Height, req.PixelRatio); err != nil {
		return h.fail(c, "viewport", err)
	}
	return xhttp.SuccessResponse(c, h.lens.Status())
}

func (h *LensEchoHandler) SetTheme(c echo.Context) error {
	req := &models.ThemeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	theme, err := h.lens.SetTheme(c.Request().Context(), models.Theme(req.Theme))
	if err != nil {
		return h.fail(c, "theme", err)
	}
	return xhttp.SuccessResponse(c, map[string]models.Theme{"theme": theme})
}

func (h *LensEchoHandler) ToggleTheme(c echo.Context) error {
	theme, err := h.lens.ToggleTheme(c.Request().Context())
	if err != nil {
		return h.fail(c, "theme", err)
	}
	return xhttp.SuccessResponse(c, map[string]models.Theme{"theme": theme})
}

func (h *LensEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, scoring.ErrInvalidFeatures), errors.Is(err, landscape.ErrFrameTooLarge):
		return xhttp.BadRequestErrorf("%s", err.Error()).WithError(err)
	case errors.Is(err, scoring.ErrUnknownPreset), errors.Is(err, usecase.ErrHistoryIndex):
		return xhttp.NotFoundErrorf("%s", err.Error()).WithError(err)
	case errors.Is(err, scoring.ErrTargetNotReached), errors.Is(err, landscape.ErrEmptySurface):
		return xhttp.UnprocessableErrorf("%s", err.Error()).WithError(err)
	case errors.Is(err, scoring.ErrUpstream), errors.Is(err, context.DeadlineExceeded):
		return xhttp.UpstreamError(err)
	}
	return xhttp.InternalErrorf("unexpected error").WithError(err)
}
