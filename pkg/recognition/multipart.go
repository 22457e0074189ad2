package recognition

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// StrategyMultipart is the name of the primary strategy.
const StrategyMultipart = "multipart"

// Multipart uploads the frame as a multipart/form-data file part.
type Multipart struct {
	*endpoint
}

// NewMultipart creates the multipart upload strategy.
func NewMultipart(cfg *Config) (*Multipart, error) {
	ep, err := newEndpoint(StrategyMultipart, cfg)
	if err != nil {
		return nil, err
	}
	return &Multipart{endpoint: ep}, nil
}

// Name returns "multipart".
func (m *Multipart) Name() string { return StrategyMultipart }

// Submit POSTs the frame to the endpoint.
func (m *Multipart) Submit(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, WrapError(m.name, ErrEmptyImage)
	}

	body, contentType, err := encodeMultipart(m.cfg.FieldName, req)
	if err != nil {
		return nil, WrapError(m.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url(nil), body)
	if err != nil {
		return nil, WrapError(m.name, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	return m.do(ctx, httpReq)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds the form body. The part header is written by hand
// because CreateFormFile always labels parts application/octet-stream.
func encodeMultipart(field string, req *Request) (*bytes.Buffer, string, error) {
	if field == "" {
		field = DefaultFieldName
	}
	filename := req.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	partType := req.ContentType
	if partType == "" {
		partType = DefaultContentType
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", partType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("write part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Verify Multipart implements Strategy at compile time.
var _ Strategy = (*Multipart)(nil)
