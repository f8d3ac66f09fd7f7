package landscape

import (
	"bytes"
	"fmt"
	"sync"

	"GlassLens/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// SurfaceOption configures ImageSurface.
type SurfaceOption func(*ImageSurface)

// WithSize sets the logical size in CSS pixels.
func WithSize(width, height float64) SurfaceOption {
	return func(s *ImageSurface) {
		s.width = width
		s.height = height
	}
}

// WithPixelRatio sets the device pixel ratio.
func WithPixelRatio(ratio float64) SurfaceOption {
	return func(s *ImageSurface) {
		if ratio > 0 {
			s.ratio = ratio
		}
	}
}

func WithTheme(theme models.Theme) SurfaceOption {
	return func(s *ImageSurface) {
		s.theme = models.ParseTheme(string(theme))
	}
}

func WithFormat(format Format) SurfaceOption {
	return func(s *ImageSurface) {
		s.format = format
	}
}

// WithBackground paints the theme page color instead of leaving the frame transparent.
func WithBackground(enabled bool) SurfaceOption {
	return func(s *ImageSurface) {
		s.background = enabled
	}
}

// ImageSurface renders into PNG or SVG bytes and keeps the last committed frame.
type ImageSurface struct {
	mu         sync.RWMutex
	width      float64
	height     float64
	ratio      float64
	theme      models.Theme
	format     Format
	background bool

	frame  []byte
	frames uint64
}

func NewImageSurface(opts ...SurfaceOption) *ImageSurface {
	s := &ImageSurface{
		width:  640,
		height: 400,
		ratio:  1,
		theme:  models.ThemeDark,
		format: FormatPNG,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ImageSurface) Size() (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *ImageSurface) PixelRatio() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratio
}

func (s *ImageSurface) Theme() models.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *ImageSurface) Format() Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}

// SetViewport changes size and ratio. The next render picks them up.
func (s *ImageSurface) SetViewport(width, height, ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	if ratio > 0 {
		s.ratio = ratio
	}
}

func (s *ImageSurface) SetTheme(theme models.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = models.ParseTheme(string(theme))
}

func (s *ImageSurface) Begin(width, height, ratio float64) (Canvas, error) {
	s.mu.RLock()
	format, theme, bg := s.format, s.theme, s.background
	s.mu.RUnlock()

	fill := drawing.ColorTransparent
	if bg {
		fill = InkFor(theme).Page
	}
	return newChartCanvas(format, width, height, ratio, fill)
}

func (s *ImageSurface) Commit(c Canvas) error {
	var buf bytes.Buffer
	if err := c.Save(&buf); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.mu.Lock()
	s.frame = buf.Bytes()
	s.frames++
	s.mu.Unlock()
	return nil
}

// Frame returns the last committed frame and how many frames were committed.
func (s *ImageSurface) Frame() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.frames
}
