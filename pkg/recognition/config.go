package recognition

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-signspeak/internal/httpc"
)

// DefaultBaseURL is the hosted ASL model the app was built against.
const DefaultBaseURL = "https://detect.roboflow.com/asl-new/3"

// Config holds endpoint and decoding configuration.
type Config struct {
	// Connection
	BaseURL string // Endpoint base URL
	Path    string // Path appended to BaseURL
	APIKey  string // Sent as the api_key query parameter when set

	// Upload naming
	FieldName  string // Multipart field name
	QueryParam string // Query parameter used by the GET fallback
	Fallback   string // Fallback strategy name

	// Decoding
	Format        Format  // Response schema
	MinConfidence float64 // Reject results below this score (0 disables)

	// Transport
	Timeout    time.Duration
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the submitter.
type Option func(*Config)

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithPath sets the path appended to the base URL.
func WithPath(path string) Option {
	return func(c *Config) { c.Path = path }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithFieldName sets the multipart field name.
func WithFieldName(name string) Option {
	return func(c *Config) { c.FieldName = name }
}

// WithQueryParam sets the query parameter used by the GET fallback.
func WithQueryParam(name string) Option {
	return func(c *Config) { c.QueryParam = name }
}

// WithFallback selects the fallback strategy by name.
func WithFallback(name string) Option {
	return func(c *Config) { c.Fallback = name }
}

// WithFormat sets the response schema.
func WithFormat(f Format) Option {
	return func(c *Config) { c.Format = f }
}

// WithMinConfidence rejects results scored below min.
func WithMinConfidence(min float64) Option {
	return func(c *Config) { c.MinConfidence = min }
}

// WithTimeout sets the request timeout. Zero disables the overall timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient overrides the HTTP client; the timeout option is then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults used by the app.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Path:       "/predict",
		FieldName:  DefaultFieldName,
		QueryParam: DefaultFieldName,
		Fallback:   FallbackQueryGet,
		Format:     FormatJSON,
		Timeout:    httpc.DefaultTimeout,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	switch c.Fallback {
	case FallbackQueryGet, FallbackBase64Post, FallbackNone, "":
	default:
		return ErrUnknownFallback
	}
	return nil
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	if c.Timeout == httpc.DefaultTimeout {
		return httpc.Client
	}
	return httpc.NewClient(c.Timeout)
}
