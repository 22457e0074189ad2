package recognition

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrNoStrategies is returned when a chain has nothing to try.
	ErrNoStrategies = errors.New("recognition: no strategies configured")

	// ErrNoBaseURL is returned when the endpoint is not configured.
	ErrNoBaseURL = errors.New("recognition: base URL required")

	// ErrEmptyImage is returned when a request carries no image bytes.
	ErrEmptyImage = errors.New("recognition: empty image")

	// ErrInvalidResponse is returned when the body does not match the schema.
	ErrInvalidResponse = errors.New("recognition: invalid response")

	// ErrNoPrediction is returned when the model recognized nothing.
	ErrNoPrediction = errors.New("recognition: no prediction")

	// ErrLowConfidence is returned when the best prediction is below threshold.
	ErrLowConfidence = errors.New("recognition: confidence below threshold")

	// ErrUnknownFallback is returned for an unrecognized fallback name.
	ErrUnknownFallback = errors.New("recognition: unknown fallback strategy")

	// ErrUnknownFormat is returned for an unrecognized response format.
	ErrUnknownFormat = errors.New("recognition: unknown response format")
)

// APIError represents a non-2xx response from the recognition endpoint.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the (truncated) response body or error message.
	Message string

	// Strategy identifies which strategy received the error.
	Strategy string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("recognition [%s]: API error %d: %s",
		e.Strategy, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true for HTTP 401 and 403.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// StrategyError wraps an error with strategy context.
type StrategyError struct {
	Strategy string
	Err      error
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	return fmt.Sprintf("recognition [%s]: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying error.
func (e *StrategyError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with strategy context.
func WrapError(strategy string, err error) error {
	if err == nil {
		return nil
	}
	return &StrategyError{Strategy: strategy, Err: err}
}

// ChainError aggregates errors from every strategy in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "recognition chain: no errors recorded"
	case 1:
		return fmt.Sprintf("recognition chain: %v", e.Errors[0])
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("recognition chain: all %d strategies failed: %s",
		len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every strategy error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
