package models

import "time"

// EventType names a landscape change pushed to subscribers.
type EventType string

const (
	EventPlot     EventType = "plot"
	EventClear    EventType = "clear"
	EventTheme    EventType = "theme"
	EventViewport EventType = "viewport"
	EventStatus   EventType = "status"
)

// LandscapeEvent is broadcast after every landscape mutation. Revision is
// the renderer revision after the change, so clients can refetch frames.
type LandscapeEvent struct {
	Type        EventType `json:"type"`
	Revision    uint64    `json:"revision"`
	Risk        float64   `json:"risk,omitempty"`
	Uncertainty float64   `json:"uncertainty,omitempty"`
	Decision    Decision  `json:"decision,omitempty"`
	Theme       Theme     `json:"theme,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	PixelRatio  float64   `json:"pixel_ratio,omitempty"`
	APIStatus   string    `json:"api_status,omitempty"`
	At          time.Time `json:"at"`
}

// Source tells where a scoring result came from.
type Source string

const (
	SourceAPI      Source = "api"
	SourcePreset   Source = "preset"
	SourceGenerate Source = "generate"
	SourceReplay   Source = "replay"
	SourceStream   Source = "stream"
)

// DecisionEvent is published to Kafka for every analysed transaction.
type DecisionEvent struct {
	ID       string        `json:"id"`
	Source   Source        `json:"source"`
	Preset   string        `json:"preset,omitempty"`
	Features []float64     `json:"features,omitempty"`
	Result   ScoringResult `json:"result"`
	At       time.Time     `json:"at"`
}
