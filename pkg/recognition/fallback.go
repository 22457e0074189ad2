package recognition

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

// Fallback strategy names.
const (
	// FallbackQueryGet sends the base64 frame in a GET query parameter.
	// Most servers reject this; it exists for endpoints that accept it.
	FallbackQueryGet = "query-get"

	// FallbackBase64Post POSTs the base64 frame as a form-urlencoded body,
	// the shape Roboflow's hosted inference accepts.
	FallbackBase64Post = "base64-post"

	// FallbackNone disables the fallback.
	FallbackNone = "none"
)

// QueryGet sends the frame base64-encoded in a query parameter.
type QueryGet struct {
	*endpoint
}

// NewQueryGet creates the GET fallback strategy.
func NewQueryGet(cfg *Config) (*QueryGet, error) {
	ep, err := newEndpoint(FallbackQueryGet, cfg)
	if err != nil {
		return nil, err
	}
	return &QueryGet{endpoint: ep}, nil
}

// Name returns "query-get".
func (q *QueryGet) Name() string { return FallbackQueryGet }

// Submit GETs the endpoint with the frame in the query string.
func (q *QueryGet) Submit(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, WrapError(q.name, ErrEmptyImage)
	}

	param := q.cfg.QueryParam
	if param == "" {
		param = DefaultFieldName
	}
	extra := url.Values{param: {base64.StdEncoding.EncodeToString(req.Image)}}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url(extra), nil)
	if err != nil {
		return nil, WrapError(q.name, err)
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	return q.do(ctx, httpReq)
}

// Base64Post POSTs the frame as a base64 form-urlencoded body.
type Base64Post struct {
	*endpoint
}

// NewBase64Post creates the base64 POST fallback strategy.
func NewBase64Post(cfg *Config) (*Base64Post, error) {
	ep, err := newEndpoint(FallbackBase64Post, cfg)
	if err != nil {
		return nil, err
	}
	return &Base64Post{endpoint: ep}, nil
}

// Name returns "base64-post".
func (b *Base64Post) Name() string { return FallbackBase64Post }

// Submit POSTs the encoded frame.
func (b *Base64Post) Submit(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, WrapError(b.name, ErrEmptyImage)
	}

	body := strings.NewReader(base64.StdEncoding.EncodeToString(req.Image))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url(nil), body)
	if err != nil {
		return nil, WrapError(b.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	return b.do(ctx, httpReq)
}

// NewFallback builds the named fallback strategy. FallbackNone and the empty
// name return a nil Strategy and no error.
func NewFallback(name string, cfg *Config) (Strategy, error) {
	switch name {
	case FallbackNone, "":
		return nil, nil
	case FallbackQueryGet:
		s, err := NewQueryGet(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FallbackBase64Post:
		s, err := NewBase64Post(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, ErrUnknownFallback
}

// Verify fallbacks implement Strategy at compile time.
var (
	_ Strategy = (*QueryGet)(nil)
	_ Strategy = (*Base64Post)(nil)
)
