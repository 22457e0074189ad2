package recognition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// endpoint holds what every HTTP strategy shares.
type endpoint struct {
	name   string
	cfg    *Config
	http   *http.Client
	target *url.URL
}

func newEndpoint(name string, cfg *Config) (*endpoint, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("recognition: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("recognition: unsupported scheme %q", u.Scheme)
	}

	return &endpoint{
		name:   name,
		cfg:    cfg,
		http:   cfg.client(),
		target: u,
	}, nil
}

// url returns the target URL with the API key and extra query values.
func (e *endpoint) url(extra url.Values) string {
	u := *e.target
	q := u.Query()
	if e.cfg.APIKey != "" {
		q.Set("api_key", e.cfg.APIKey)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// do sends req and decodes a successful response.
func (e *endpoint) do(ctx context.Context, req *http.Request) (*Result, error) {
	start := time.Now()

	resp, err := e.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, WrapError(e.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, WrapError(e.name, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, e.apiError(resp.StatusCode, body)
	}

	res, err := Decode(e.cfg.Format, body, e.cfg.MinConfidence)
	if err != nil {
		return nil, WrapError(e.name, err)
	}
	res.Strategy = e.name
	res.LatencyMs = time.Since(start).Milliseconds()
	return res, nil
}

func (e *endpoint) apiError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if len(message) > 256 {
		message = message[:256] + "..."
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{
		StatusCode: status,
		Message:    message,
		Strategy:   e.name,
	}
}
