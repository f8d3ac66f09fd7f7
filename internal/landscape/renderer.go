package landscape

import (
	"fmt"
	"math"

	"GlassLens/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	historyDotRadius  = 4.0
	currentDotRadius  = 5.0
	currentRingRadius = 8.0
	currentDotBorder  = 1.5
	outerGlowRadius   = 18.0
	innerGlowRadius   = 12.0

	tickFontSize  = 10.0
	titleFontSize = 10.0
	noteFontSize  = 8.0
	zoneFontSize  = 9.0
	zoneOpacity   = 0.55
)

var thresholdDash = []float64{4, 4}

// Option configures Renderer.
type Option func(*Renderer)

// WithMargins overrides DefaultMargins.
func WithMargins(m Margins) Option {
	return func(r *Renderer) { r.margins = m }
}

// WithHistoryCapacity overrides HistoryCapacity.
func WithHistoryCapacity(n int) Option {
	return func(r *Renderer) { r.history = NewHistory(n) }
}

// WithZoneLabels toggles the decision names drawn inside each zone.
func WithZoneLabels(enabled bool) Option {
	return func(r *Renderer) { r.zoneLabels = enabled }
}

// Renderer owns the plotted points and redraws the whole landscape on every
// change. It is not safe for concurrent use.
type Renderer struct {
	surface    Surface
	history    *History
	current    *PlotPoint
	margins    Margins
	zoneLabels bool
	revision   uint64
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		history:    NewHistory(HistoryCapacity),
		margins:    DefaultMargins,
		zoneLabels: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize binds s and draws the current state on it. Calling it again
// rebinds, which is how theme or viewport changes are applied.
func (r *Renderer) Initialize(s Surface) error {
	r.surface = s
	r.revision++
	return r.render(s)
}

// PlotTransaction demotes the current point into history and draws the new
// one. If the frame cannot be drawn the previous state is restored.
func (r *Renderer) PlotTransaction(risk, unc float64, decision models.Decision) error {
	prev, points, rev := r.current, r.history.Points(), r.revision
	if r.current != nil {
		r.history.Push(*r.current)
	}
	r.current = &PlotPoint{Risk: risk, Uncertainty: unc, Decision: decision}
	r.revision++
	if err := r.render(r.surface); err != nil {
		r.current, r.revision = prev, rev
		r.history.restore(points)
		return err
	}
	return nil
}

// ClearHistory drops every point, the current one included.
func (r *Renderer) ClearHistory() error {
	r.history.Reset()
	r.current = nil
	r.revision++
	return r.render(r.surface)
}

// RenderTo draws the current state on s without binding it.
func (r *Renderer) RenderTo(s Surface) error {
	return r.render(s)
}

// Current returns the highlighted point, if any.
func (r *Renderer) Current() (PlotPoint, bool) {
	if r.current == nil {
		return PlotPoint{}, false
	}
	return *r.current, true
}

// History returns the demoted points, most recent first.
func (r *Renderer) History() []PlotPoint { return r.history.Points() }

// Revision increments on every state change or rebind.
func (r *Renderer) Revision() uint64 { return r.revision }

func (r *Renderer) Bound() bool { return r.surface != nil }

func (r *Renderer) render(s Surface) error {
	if s == nil {
		return nil
	}
	width, height := s.Size()
	ratio := s.PixelRatio()
	if ratio <= 0 {
		ratio = 1
	}

	c, err := s.Begin(width, height, ratio)
	if err != nil {
		return fmt.Errorf("begin frame %.0fx%.0f@%.2f: %w", width, height, ratio, err)
	}

	theme := models.ParseTheme(string(s.Theme()))
	area := NewPlotArea(width, height, r.margins)
	ink := InkFor(theme)

	c.Clear()
	r.drawRegions(c, area, theme)
	r.drawAxes(c, area, ink)
	r.drawThresholds(c, area, ink)
	if r.zoneLabels {
		r.drawZoneLabels(c, area)
	}
	r.drawPoints(c, area)

	if err := s.Commit(c); err != nil {
		return fmt.Errorf("commit frame: %w", err)
	}
	return nil
}

func (r *Renderer) drawRegions(c Canvas, area PlotArea, theme models.Theme) {
	for _, g := range Regions {
		style := RegionColors(theme, g.Decision)
		for _, rect := range g.Rects {
			c.FillPolygon(area.RectPoints(rect), style.Fill, style.Border, 1)
		}
	}
}

func (r *Renderer) drawAxes(c Canvas, area PlotArea, ink Ink) {
	tick := TextStyle{Color: ink.Text, Size: tickFontSize, Align: AlignCenter, Valign: AlignTop}
	for i := 0; i <= 5; i++ {
		risk := float64(i) * 0.2
		x := area.RiskToX(risk)
		c.Line(Point{x, area.Y}, Point{x, area.Y + area.H}, ink.Grid, 1, nil)
		c.Text(fmt.Sprintf("%.1f", risk), Point{x, area.Y + area.H + 6}, tick)
	}

	tick.Align, tick.Valign = AlignRight, AlignMiddle
	for i := 0; i <= 5; i++ {
		unc := float64(i) * 0.02
		y := area.UncToY(unc)
		c.Line(Point{area.X, y}, Point{area.X + area.W, y}, ink.Grid, 1, nil)
		c.Text(fmt.Sprintf("%.2f", unc), Point{area.X - 6, y}, tick)
	}

	c.Text("Risk Score", Point{area.X + area.W/2, area.Y + area.H + 22}, TextStyle{
		Color: ink.Text, Size: titleFontSize, Align: AlignCenter, Valign: AlignTop,
	})
	c.Text("Uncertainty", Point{12, area.Y + area.H/2}, TextStyle{
		Color: ink.Text, Size: titleFontSize, Align: AlignCenter, Valign: AlignMiddle, Rotation: -math.Pi / 2,
	})
}

func (r *Renderer) drawThresholds(c Canvas, area PlotArea, ink Ink) {
	note := TextStyle{Color: ink.Text, Size: noteFontSize, Align: AlignCenter}
	for _, t := range []float64{TAuth, TEscalate, TDecline} {
		x := area.RiskToX(t)
		c.Line(Point{x, area.Y}, Point{x, area.Y + area.H}, ink.Threshold, 1, thresholdDash)
		c.Text(fmt.Sprintf("%.2f", t), Point{x, area.Y - 4}, note)
	}

	y := area.UncToY(UThreshold)
	c.Line(Point{area.X, y}, Point{area.X + area.W, y}, ink.Threshold, 1, thresholdDash)
	note.Align = AlignRight
	c.Text(fmt.Sprintf("u=%.2f", UThreshold), Point{area.X + area.W - 4, y - 3}, note)
}

func (r *Renderer) drawZoneLabels(c Canvas, area PlotArea) {
	for _, g := range Regions {
		rect := g.LabelRect()
		center := Point{
			X: area.RiskToX((rect.RiskMin + rect.RiskMax) / 2),
			Y: area.UncToY((rect.UncMin + rect.UncMax) / 2),
		}
		c.Text(g.Decision.ShortLabel(), center, TextStyle{
			Color:  WithOpacity(DotColor(g.Decision), zoneOpacity),
			Size:   zoneFontSize,
			Align:  AlignCenter,
			Valign: AlignMiddle,
		})
	}
}

func (r *Renderer) drawPoints(c Canvas, area PlotArea) {
	points := r.history.Points()
	for i, p := range points {
		color := WithOpacity(DotColor(p.Decision), HistoryAlpha(i, len(points)))
		c.Circle(pointAt(area, p), historyDotRadius, color, drawing.ColorTransparent, 0)
	}

	if r.current == nil {
		return
	}
	p := *r.current
	at := pointAt(area, p)
	color := DotColor(p.Decision)

	drawGlow(c, at, color, outerGlowRadius, innerGlowRadius, 0.05)
	drawGlow(c, at, color, innerGlowRadius, 2, 0.12)
	c.Circle(at, currentRingRadius, drawing.ColorTransparent, WithOpacity(color, 0.6), 1)
	c.Circle(at, currentDotRadius, color, DotBorder, currentDotBorder)
}

// drawGlow approximates a radial gradient with stacked translucent discs so the
// center accumulates the most color.
func drawGlow(c Canvas, at Point, color drawing.Color, outer, inner, step float64) {
	const rings = 5
	for i := 0; i < rings; i++ {
		radius := outer - (outer-inner)*float64(i)/rings
		c.Circle(at, radius, WithOpacity(color, step), drawing.ColorTransparent, 0)
	}
}

func pointAt(area PlotArea, p PlotPoint) Point {
	return Point{X: area.RiskToX(p.Risk), Y: area.UncToY(p.Uncertainty)}
}
