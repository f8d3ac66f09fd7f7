package landscape

import (
	"math"

	"GlassLens/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RegionStyle is the fill/border pair of a decision zone.
type RegionStyle struct {
	Fill   drawing.Color
	Border drawing.Color
}

// Ink holds the theme dependent colors of the non-data layers.
type Ink struct {
	Text      drawing.Color
	Grid      drawing.Color
	Threshold drawing.Color
	Page      drawing.Color
}

var (
	accentApprove  = drawing.ColorFromHex("34d399")
	accentAbstain  = drawing.ColorFromHex("a78bfa")
	accentStepUp   = drawing.ColorFromHex("fbbf24")
	accentEscalate = drawing.ColorFromHex("fb923c")
	accentDecline  = drawing.ColorFromHex("f87171")

	// NeutralColor marks points with an unrecognized decision.
	NeutralColor = drawing.ColorFromHex("818cf8")

	// DotBorder outlines the current point.
	DotBorder = drawing.ColorWhite
)

var accents = map[models.Decision]drawing.Color{
	models.DecisionApprove:        accentApprove,
	models.DecisionAbstain:        accentAbstain,
	models.DecisionStepUpAuth:     accentStepUp,
	models.DecisionEscalateInvest: accentEscalate,
	models.DecisionDecline:        accentDecline,
}

var regionPalette = map[models.Theme]map[models.Decision]RegionStyle{
	models.ThemeDark:  themedRegions(0.18, 0.4),
	models.ThemeLight: themedRegions(0.15, 0.5),
}

var inks = map[models.Theme]Ink{
	models.ThemeDark: {
		Text:      WithOpacity(drawing.ColorWhite, 0.4),
		Grid:      WithOpacity(drawing.ColorWhite, 0.08),
		Threshold: WithOpacity(drawing.ColorWhite, 0.15),
		Page:      drawing.ColorFromHex("0f172a"),
	},
	models.ThemeLight: {
		Text:      WithOpacity(drawing.ColorBlack, 0.4),
		Grid:      WithOpacity(drawing.ColorBlack, 0.08),
		Threshold: WithOpacity(drawing.ColorBlack, 0.15),
		Page:      drawing.ColorFromHex("f8fafc"),
	},
}

func themedRegions(fill, border float64) map[models.Decision]RegionStyle {
	m := make(map[models.Decision]RegionStyle, len(accents))
	for d, c := range accents {
		m[d] = RegionStyle{Fill: WithOpacity(c, fill), Border: WithOpacity(c, border)}
	}
	return m
}

// DotColor is the accent of d, or NeutralColor for unknown labels.
func DotColor(d models.Decision) drawing.Color {
	if c, ok := accents[d]; ok {
		return c
	}
	return NeutralColor
}

// RegionColors looks up the zone style for theme and decision.
func RegionColors(theme models.Theme, d models.Decision) RegionStyle {
	if styles, ok := regionPalette[theme]; ok {
		if s, ok := styles[d]; ok {
			return s
		}
	}
	return RegionStyle{Fill: WithOpacity(NeutralColor, 0.15), Border: WithOpacity(NeutralColor, 0.4)}
}

// InkFor returns the axis and guide colors of theme. Unknown themes use dark.
func InkFor(theme models.Theme) Ink {
	if ink, ok := inks[theme]; ok {
		return ink
	}
	return inks[models.ThemeDark]
}

// WithOpacity replaces the alpha channel of c with a in [0,1].
func WithOpacity(c drawing.Color, a float64) drawing.Color {
	a = clamp(a, 0, 1)
	c.A = uint8(math.Round(a * 255))
	return c
}
