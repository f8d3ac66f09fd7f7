package landscape

import (
	"math"

	"GlassLens/internal/domain/models"
)

// HistoryCapacity bounds the number of faded points kept on the landscape.
const HistoryCapacity = 30

// PlotPoint is one plotted scoring result.
type PlotPoint struct {
	Risk        float64         `json:"risk"`
	Uncertainty float64         `json:"uncertainty"`
	Decision    models.Decision `json:"decision"`
}

// History keeps points most-recent-first and drops the oldest on overflow.
type History struct {
	points   []PlotPoint
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{points: make([]PlotPoint, 0, capacity), capacity: capacity}
}

// Push prepends p, evicting the oldest entry when full.
func (h *History) Push(p PlotPoint) {
	if len(h.points) < h.capacity {
		h.points = append(h.points, PlotPoint{})
	}
	copy(h.points[1:], h.points[:len(h.points)-1])
	h.points[0] = p
}

func (h *History) Len() int { return len(h.points) }

func (h *History) Cap() int { return h.capacity }

// Points returns a copy, index 0 most recent.
func (h *History) Points() []PlotPoint {
	out := make([]PlotPoint, len(h.points))
	copy(out, h.points)
	return out
}

func (h *History) Reset() { h.points = h.points[:0] }

func (h *History) restore(points []PlotPoint) {
	h.points = append(h.points[:0], points...)
}

// HistoryAlpha is the opacity of history point i out of n.
func HistoryAlpha(i, n int) float64 {
	if n <= 0 {
		return 1
	}
	return math.Max(0.15, 1-(float64(i)/float64(n))*0.8)
}
