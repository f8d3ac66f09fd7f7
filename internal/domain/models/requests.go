package models

// AnalyzeRequest scores features, or a random transaction when empty.
type AnalyzeRequest struct {
	Features []float64 `json:"features" validate:"omitempty,len=31"`
}

type PresetRequest struct {
	Name string `param:"name" validate:"required,oneof=approve stepup abstain escalate decline"`
}

type GenerateRequest struct {
	Decision    string `json:"decision" validate:"required,decision"`
	MaxAttempts int    `json:"max_attempts" default:"500" validate:"gte=1,lte=500"`
}

type ReplayRequest struct {
	Index int `param:"index" validate:"gte=0"`
}

type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=dark light"`
}

type ViewportRequest struct {
	Width      float64 `json:"width" validate:"gt=0,lte=4096"`
	Height     float64 `json:"height" validate:"gt=0,lte=4096"`
	PixelRatio float64 `json:"pixel_ratio" default:"1" validate:"gt=0,lte=4"`
}

// SnapshotQuery selects an on-demand rendering; zero values fall back to
// the live surface's settings.
type SnapshotQuery struct {
	Format     string  `query:"format" validate:"omitempty,oneof=png svg"`
	Theme      string  `query:"theme" validate:"omitempty,oneof=dark light"`
	Width      float64 `query:"width" validate:"gte=0,lte=4096"`
	Height     float64 `query:"height" validate:"gte=0,lte=4096"`
	PixelRatio float64 `query:"dpr" validate:"gte=0,lte=4"`
}
