// Package app wires the capture loop, recognizer, session store, web panel
// and event sink into one running service.
package app

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-signspeak/internal/config"
	"github.com/teslashibe/go-signspeak/internal/httpc"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/capture"
	"github.com/teslashibe/go-signspeak/pkg/recognition"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

// Device backends.
const (
	DeviceGoCV = "gocv"
	DeviceMock = "mock"
)

// Config holds all configuration for the service.
// Flag parsing is done in cmd/signspeak/main.go; this struct is data only.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Recognition endpoint.
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"api_key"`
	Fallback      string        `yaml:"fallback"` // "query-get", "base64-post", "none"
	Format        string        `yaml:"format"`   // "json", "roboflow", "text"
	MinConfidence float64       `yaml:"min_confidence"`
	Timeout       time.Duration `yaml:"timeout"` // 0 leaves requests unbounded

	// Capture.
	Interval       time.Duration `yaml:"interval"`
	Quality        float64       `yaml:"quality"`
	Ordering       string        `yaml:"ordering"` // "latest", "serial", "none"
	Facing         string        `yaml:"facing"`
	StartRecording bool          `yaml:"start_recording"`

	// Camera device.
	Device       string `yaml:"device"` // "gocv" or "mock"
	CameraPreset string `yaml:"camera_preset"`
	BackIndex    int    `yaml:"back_index"`
	FrontIndex   int    `yaml:"front_index"`
	CacheDir     string `yaml:"cache_dir"`

	// Web panel.
	Port      string `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	NoWeb     bool   `yaml:"no_web"`

	// Redis event sink. Disabled when RedisAddr is empty.
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
	InstanceID   string `yaml:"instance_id"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		Endpoint:     recognition.DefaultBaseURL,
		Fallback:     recognition.FallbackQueryGet,
		Format:       string(recognition.FormatJSON),
		Timeout:      httpc.DefaultTimeout,
		Interval:     capture.DefaultInterval,
		Quality:      capture.DefaultQuality,
		Ordering:     string(session.OrderLatest),
		Facing:       string(camera.FacingBack),
		Device:       DeviceGoCV,
		CameraPreset: camera.PresetDefault,
		Port:         "8080",
		StaticDir:    "./web",
	}
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are errors.
func (c *Config) LoadFile(path string) error {
	return config.LoadYAML(path, c)
}

// LoadEnvConfig applies environment overrides.
// Call this after flag parsing.
func (c *Config) LoadEnvConfig() {
	c.Endpoint = config.Env("SIGNSPEAK_ENDPOINT", c.Endpoint)
	c.APIKey = config.Env("SIGNSPEAK_API_KEY", c.APIKey)
	c.Port = config.Env("SIGNSPEAK_PORT", c.Port)
	c.RedisAddr = config.Env("SIGNSPEAK_REDIS_ADDR", c.RedisAddr)
	c.Fallback = config.Env("SIGNSPEAK_FALLBACK", c.Fallback)
	c.Format = config.Env("SIGNSPEAK_FORMAT", c.Format)
	c.Ordering = config.Env("SIGNSPEAK_ORDERING", c.Ordering)
	c.Interval = config.EnvDuration("SIGNSPEAK_INTERVAL", c.Interval)
	c.MinConfidence = config.EnvFloat("SIGNSPEAK_MIN_CONFIDENCE", c.MinConfidence)
	c.LogLevel = config.Env("LOG_LEVEL", c.LogLevel)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "recognition endpoint is required (SIGNSPEAK_ENDPOINT)"}
	}
	if _, err := recognition.ParseFormat(c.Format); err != nil {
		return &ConfigError{Field: "Format", Message: fmt.Sprintf("unknown response format %q", c.Format)}
	}
	switch c.Fallback {
	case recognition.FallbackQueryGet, recognition.FallbackBase64Post, recognition.FallbackNone, "":
	default:
		return &ConfigError{Field: "Fallback", Message: fmt.Sprintf("unknown fallback %q", c.Fallback)}
	}
	if _, ok := session.ParseOrdering(c.Ordering); !ok {
		return &ConfigError{Field: "Ordering", Message: fmt.Sprintf("unknown ordering %q", c.Ordering)}
	}
	if _, err := camera.ParseFacing(c.Facing); err != nil {
		return &ConfigError{Field: "Facing", Message: fmt.Sprintf("unknown facing %q", c.Facing)}
	}
	if c.Interval <= 0 {
		return &ConfigError{Field: "Interval", Message: "capture interval must be positive"}
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return &ConfigError{Field: "Quality", Message: "capture quality must be in (0, 1]"}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &ConfigError{Field: "MinConfidence", Message: "min confidence must be in [0, 1]"}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Message: "timeout must not be negative"}
	}
	switch c.Device {
	case DeviceGoCV, DeviceMock:
	default:
		return &ConfigError{Field: "Device", Message: fmt.Sprintf("unknown device %q", c.Device)}
	}
	if c.CameraPreset != "" && camera.GetPreset(c.CameraPreset) == nil {
		return &ConfigError{Field: "CameraPreset", Message: fmt.Sprintf("unknown camera preset %q", c.CameraPreset)}
	}
	if !c.NoWeb && c.Port == "" {
		return &ConfigError{Field: "Port", Message: "web port is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// cameraConfig builds the device config from the preset and overrides.
func (c *Config) cameraConfig() camera.Config {
	cfg := camera.DefaultConfig()
	if p := camera.GetPreset(c.CameraPreset); p != nil {
		cfg = *p
	}
	cfg.BackIndex = c.BackIndex
	cfg.FrontIndex = c.FrontIndex
	cfg.CacheDir = c.CacheDir
	return cfg
}

// recognitionOptions translates the config into recognizer options.
func (c *Config) recognitionOptions() []recognition.Option {
	format, _ := recognition.ParseFormat(c.Format)
	return []recognition.Option{
		recognition.WithBaseURL(c.Endpoint),
		recognition.WithAPIKey(c.APIKey),
		recognition.WithFallback(c.Fallback),
		recognition.WithFormat(format),
		recognition.WithMinConfidence(c.MinConfidence),
		recognition.WithTimeout(c.Timeout),
	}
}
