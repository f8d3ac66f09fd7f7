package landscape

import (
	"io"

	"GlassLens/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Point is a position in logical pixels.
type Point struct {
	X, Y float64
}

type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

type VAlign int

const (
	AlignBaseline VAlign = iota
	AlignTop
	AlignMiddle
)

// TextStyle describes one label. Rotation is in radians, anchored at the text position.
type TextStyle struct {
	Color    drawing.Color
	Size     float64
	Align    HAlign
	Valign   VAlign
	Rotation float64
}

// Canvas is a fresh backing store in logical coordinates. Implementations scale
// by the pixel ratio they were created with.
type Canvas interface {
	Clear()
	FillPolygon(pts []Point, fill, border drawing.Color, width float64)
	Line(from, to Point, color drawing.Color, width float64, dash []float64)
	Circle(center Point, radius float64, fill, border drawing.Color, width float64)
	Text(body string, at Point, style TextStyle)
	Save(w io.Writer) error
}

// Surface is where the landscape is drawn. Size, ratio and theme are read at
// the start of every render.
type Surface interface {
	Size() (width, height float64)
	PixelRatio() float64
	Theme() models.Theme
	Begin(width, height, ratio float64) (Canvas, error)
	Commit(c Canvas) error
}
