package config

import "fmt"

// Zoom bounds for the drawing pane. A zoom of 1.0 is the best fit of the
// drawing into the pane; we only allow zooming in from there.
const (
	MinZoom = 1.0
	MaxZoom = 8.0
)

// Pen size bounds, as a fraction of the width of the drawing.
const (
	MinPenSize = 0.001
	MaxPenSize = 0.02
)

// Common pen sizes.
const (
	PenSizeSmall  = 0.002
	PenSizeMedium = 0.004
	PenSizeBig    = 0.012
)

// DenoiseSetting selects how recorded audio is cleaned up after capture.
type DenoiseSetting string

const (
	// DenoiseOff stores captured audio untouched.
	DenoiseOff DenoiseSetting = "off"
	// DenoiseLight removes background noise while keeping quiet speech.
	DenoiseLight DenoiseSetting = "light"
	// DenoiseAggressive clamps everything below the speech threshold.
	DenoiseAggressive DenoiseSetting = "aggressive"
)

// Valid reports whether s is one of the known settings.
func (s DenoiseSetting) Valid() bool {
	switch s {
	case DenoiseOff, DenoiseLight, DenoiseAggressive:
		return true
	}
	return false
}

// RecordingSpeed is the rate at which the timeline clock advances while
// drawing, as a multiple of wall-clock time. Captured audio is always
// speed-neutral; the speed is applied as a sample remap at playback, so it
// can be changed after the fact without re-recording.
type RecordingSpeed float64

// The speeds exposed in the UI.
const (
	SpeedPaused RecordingSpeed = 0
	SpeedSlower RecordingSpeed = 1.0 / 8.0
	SpeedSlow   RecordingSpeed = 1.0 / 3.0
	SpeedNormal RecordingSpeed = 1.0
)

// Factor returns the clock multiplier, clamped to [0, 1].
func (s RecordingSpeed) Factor() float64 {
	f := float64(s)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Settings holds the per-session recording configuration. A Settings value is
// fixed for the lifetime of one open document and passed explicitly to every
// component that needs it; nothing reads it from ambient state.
type Settings struct {
	// PenSize is the pen diameter as a fraction of the drawing width.
	PenSize float64 `toml:"pen_size" json:"pen_size" yaml:"pen_size"`

	// PenColor is the stroke color as "#rrggbb".
	PenColor string `toml:"pen_color" json:"pen_color" yaml:"pen_color"`

	// RecordingSpeed is the timeline rate while drawing.
	RecordingSpeed RecordingSpeed `toml:"recording_speed" json:"recording_speed" yaml:"recording_speed"`

	// Denoise selects the post-capture cleanup applied to audio snippets.
	Denoise DenoiseSetting `toml:"denoise" json:"denoise" yaml:"denoise"`
}

// DefaultSettings returns the settings a fresh document starts with.
func DefaultSettings() Settings {
	return Settings{
		PenSize:        PenSizeSmall,
		PenColor:       "#ffffff",
		RecordingSpeed: SpeedSlow,
		Denoise:        DenoiseLight,
	}
}

// Clamped returns a copy of s with numeric fields forced into their bounds
// and empty fields replaced with defaults.
func (s Settings) Clamped() Settings {
	out := s
	if out.PenSize < MinPenSize {
		out.PenSize = MinPenSize
	}
	if out.PenSize > MaxPenSize {
		out.PenSize = MaxPenSize
	}
	out.RecordingSpeed = RecordingSpeed(out.RecordingSpeed.Factor())
	if !out.Denoise.Valid() {
		out.Denoise = DenoiseOff
	}
	if out.PenColor == "" {
		out.PenColor = DefaultSettings().PenColor
	}
	return out
}

// Validate checks s without modifying it.
func (s Settings) Validate() error {
	if s.PenSize < MinPenSize || s.PenSize > MaxPenSize {
		return fmt.Errorf("pen size %v outside [%v, %v]", s.PenSize, MinPenSize, MaxPenSize)
	}
	if f := float64(s.RecordingSpeed); f < 0 || f > 1 {
		return fmt.Errorf("recording speed %v outside [0, 1]", f)
	}
	if !s.Denoise.Valid() {
		return fmt.Errorf("unknown denoise setting %q", s.Denoise)
	}
	return nil
}

// ClampZoom forces a requested zoom level into [MinZoom, MaxZoom].
// Out-of-range requests are clamped, not rejected.
func ClampZoom(level float64) float64 {
	if level < MinZoom {
		return MinZoom
	}
	if level > MaxZoom {
		return MaxZoom
	}
	return level
}

// ZoomStep is the multiplier applied by one zoom-in or zoom-out step.
const ZoomStep = 1.25

// ZoomIn returns the next zoom level up from level.
func ZoomIn(level float64) float64 { return ClampZoom(level * ZoomStep) }

// ZoomOut returns the next zoom level down from level.
func ZoomOut(level float64) float64 { return ClampZoom(level / ZoomStep) }
