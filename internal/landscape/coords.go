package landscape

// Margins reserve room around the plot for axis labels and titles.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins leave space for the rotated y title and threshold annotations.
var DefaultMargins = Margins{Top: 16, Right: 16, Bottom: 38, Left: 50}

// PlotArea is the drawable rectangle in logical pixels.
type PlotArea struct {
	X, Y, W, H float64
}

// NewPlotArea subtracts m from a width x height surface.
func NewPlotArea(width, height float64, m Margins) PlotArea {
	w := width - m.Left - m.Right
	h := height - m.Top - m.Bottom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return PlotArea{X: m.Left, Y: m.Top, W: w, H: h}
}

// RiskToX maps risk linearly onto [X, X+W].
func (p PlotArea) RiskToX(risk float64) float64 {
	risk = clamp(risk, RiskMin, RiskMax)
	return p.X + (risk-RiskMin)/(RiskMax-RiskMin)*p.W
}

// UncToY maps uncertainty onto [Y+H, Y]; higher values render nearer the top.
// Values above UncMax are clamped rather than extrapolated.
func (p PlotArea) UncToY(unc float64) float64 {
	unc = ClampUncertainty(unc)
	return p.Y + p.H - (unc-UncMin)/(UncMax-UncMin)*p.H
}

// XToRisk inverts RiskToX.
func (p PlotArea) XToRisk(x float64) float64 {
	if p.W == 0 {
		return RiskMin
	}
	return RiskMin + (x-p.X)/p.W*(RiskMax-RiskMin)
}

// YToUnc inverts UncToY.
func (p PlotArea) YToUnc(y float64) float64 {
	if p.H == 0 {
		return UncMin
	}
	return UncMin + (p.Y+p.H-y)/p.H*(UncMax-UncMin)
}

// RectPoints returns the corners of r in pixel space, clockwise from the
// bottom-left corner.
func (p PlotArea) RectPoints(r Rect) []Point {
	x0, x1 := p.RiskToX(r.RiskMin), p.RiskToX(r.RiskMax)
	y0, y1 := p.UncToY(r.UncMin), p.UncToY(r.UncMax)
	return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// ClampUncertainty pins u into the displayable range.
func ClampUncertainty(u float64) float64 {
	return clamp(u, UncMin, UncMax)
}
