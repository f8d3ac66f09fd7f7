package landscape

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is the encoding of a committed frame.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat defaults to PNG.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatSVG)) {
		return FormatSVG
	}
	return FormatPNG
}

// ContentType is the MIME type of frames in f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var (
	ErrEmptySurface  = errors.New("landscape: surface has no drawable pixels")
	ErrFrameTooLarge = errors.New("landscape: frame exceeds the pixel budget")
)

// MaxFramePixels bounds the backing store of one frame, width·height·ratio².
// At 4 bytes per pixel a frame stays under 32 MiB.
const MaxFramePixels = 8 << 20

// CheckFrameSize rejects logical sizes whose backing store would be empty
// or exceed MaxFramePixels.
func CheckFrameSize(width, height, ratio float64) error {
	if ratio <= 0 {
		ratio = 1
	}
	pw, ph := math.Round(width*ratio), math.Round(height*ratio)
	if pw <= 0 || ph <= 0 {
		return ErrEmptySurface
	}
	if pw*ph > MaxFramePixels {
		return fmt.Errorf("%w: %.0fx%.0f backing pixels", ErrFrameTooLarge, pw, ph)
	}
	return nil
}

// chartCanvas draws through a go-chart renderer. Every call multiplies logical
// coordinates by scale, so a new canvas always starts from an identity transform.
type chartCanvas struct {
	r      chart.Renderer
	scale  float64
	width  int
	height int
	bg     drawing.Color
}

func newChartCanvas(format Format, width, height, ratio float64, bg drawing.Color) (*chartCanvas, error) {
	if ratio <= 0 {
		ratio = 1
	}
	if err := CheckFrameSize(width, height, ratio); err != nil {
		return nil, err
	}
	pw := int(math.Round(width * ratio))
	ph := int(math.Round(height * ratio))

	provider := chart.PNG
	if format == FormatSVG {
		provider = chart.SVG
	}
	r, err := provider(pw, ph)
	if err != nil {
		return nil, fmt.Errorf("allocate %s renderer: %w", format, err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	// 72 dpi makes one point one pixel.
	r.SetDPI(72)
	r.SetFont(font)

	return &chartCanvas{r: r, scale: ratio, width: pw, height: ph, bg: bg}, nil
}

func (c *chartCanvas) px(v float64) int { return int(math.Round(v * c.scale)) }

func (c *chartCanvas) Clear() {
	if c.bg.A == 0 {
		return
	}
	w, h := float64(c.width)/c.scale, float64(c.height)/c.scale
	c.FillPolygon([]Point{{0, 0}, {w, 0}, {w, h}, {0, h}}, c.bg, drawing.ColorTransparent, 0)
}

func (c *chartCanvas) FillPolygon(pts []Point, fill, border drawing.Color, width float64) {
	if len(pts) < 3 {
		return
	}
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(border)
	c.r.SetStrokeWidth(width * c.scale)

	c.r.MoveTo(c.px(pts[0].X), c.px(pts[0].Y))
	for _, p := range pts[1:] {
		c.r.LineTo(c.px(p.X), c.px(p.Y))
	}
	c.r.Close()

	if border.A == 0 || width <= 0 {
		c.r.Fill()
		return
	}
	c.r.FillStroke()
}

func (c *chartCanvas) Line(from, to Point, color drawing.Color, width float64, dash []float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(width * c.scale)
	if len(dash) > 0 {
		scaled := make([]float64, len(dash))
		for i, d := range dash {
			scaled[i] = d * c.scale
		}
		c.r.SetStrokeDashArray(scaled)
	}
	c.r.MoveTo(c.px(from.X), c.px(from.Y))
	c.r.LineTo(c.px(to.X), c.px(to.Y))
	c.r.Stroke()
}

func (c *chartCanvas) Circle(center Point, radius float64, fill, border drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	if width <= 0 {
		border = drawing.ColorTransparent
	}
	c.r.SetStrokeColor(border)
	c.r.SetStrokeWidth(width * c.scale)
	c.r.Circle(radius*c.scale, c.px(center.X), c.px(center.Y))

	switch {
	case fill.A > 0 && border.A > 0:
		c.r.FillStroke()
	case fill.A > 0:
		c.r.Fill()
	default:
		c.r.Stroke()
	}
}

func (c *chartCanvas) Text(body string, at Point, style TextStyle) {
	if body == "" {
		return
	}
	c.r.ResetStyle()
	c.r.SetFontColor(style.Color)
	c.r.SetFontSize(style.Size * c.scale)

	box := c.r.MeasureText(body)
	w, h := float64(box.Width()), float64(box.Height())

	// offset of the baseline start relative to the anchor, in text space
	var ox, oy float64
	switch style.Align {
	case AlignCenter:
		ox = -w / 2
	case AlignRight:
		ox = -w
	}
	switch style.Valign {
	case AlignTop:
		oy = h
	case AlignMiddle:
		oy = h / 2
	}

	sin, cos := math.Sincos(style.Rotation)
	x := at.X*c.scale + ox*cos - oy*sin
	y := at.Y*c.scale + ox*sin + oy*cos

	if style.Rotation != 0 {
		c.r.SetTextRotation(style.Rotation)
		defer c.r.ClearTextRotation()
	}
	c.r.Text(body, int(math.Round(x)), int(math.Round(y)))
}

func (c *chartCanvas) Save(w io.Writer) error {
	if err := c.r.Save(w); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}
