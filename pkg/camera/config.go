// Package camera provides the capture device used by the recognizer and its
// runtime-configurable settings.
package camera

import "time"

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width  int `json:"width"`  // Frame width in pixels
	Height int `json:"height"` // Frame height in pixels

	// PreviewQuality is the JPEG quality (1-100) of live preview frames.
	PreviewQuality int `json:"preview_quality"`

	// PreviewInterval is the delay between preview frames while focused.
	PreviewInterval time.Duration `json:"preview_interval"`

	// === Device selection ===
	// BackIndex and FrontIndex are OpenCV device indices per facing.
	// When both are equal the device is reused and only mirroring changes.
	BackIndex  int `json:"back_index"`
	FrontIndex int `json:"front_index"`

	// MirrorFront flips front-facing frames horizontally.
	MirrorFront bool `json:"mirror_front"`

	// === Exposure ===
	// Brightness is passed through to the driver (0 leaves the driver default).
	Brightness float64 `json:"brightness"`

	// Exposure is passed through to the driver (0 = auto).
	Exposure float64 `json:"exposure"`

	// CacheDir receives captured stills. Empty keeps stills in memory only.
	CacheDir string `json:"cache_dir"`
}

// Limits for validation.
const (
	MinWidth  = 160
	MaxWidth  = 3840
	MinHeight = 120
	MaxHeight = 2160
)

// DefaultConfig returns the recommended configuration for gesture capture.
// 640x480 keeps uploads small; recognition models resize anyway.
func DefaultConfig() Config {
	return Config{
		Width:           640,
		Height:          480,
		PreviewQuality:  70,
		PreviewInterval: 200 * time.Millisecond,
		BackIndex:       0,
		FrontIndex:      0,
		MirrorFront:     true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		errors = append(errors, "preview_quality must be between 1 and 100")
	}
	if c.PreviewInterval < 10*time.Millisecond {
		errors = append(errors, "preview_interval must be at least 10ms")
	}
	if c.BackIndex < 0 || c.FrontIndex < 0 {
		errors = append(errors, "device indices must not be negative")
	}
	if c.Exposure < 0 {
		errors = append(errors, "exposure must be 0 (auto) or positive")
	}

	return errors
}

// IndexFor returns the device index used for the given facing.
func (c *Config) IndexFor(f Facing) int {
	if f == FacingFront {
		return c.FrontIndex
	}
	return c.BackIndex
}

// JPEGQuality converts a 0-1 capture quality into a JPEG quality.
// Out-of-range values are clamped; 0 maps to the lowest quality.
func JPEGQuality(q float64) int {
	switch {
	case q <= 0:
		return 1
	case q >= 1:
		return 100
	}
	v := int(q*100 + 0.5)
	if v < 1 {
		v = 1
	}
	return v
}
