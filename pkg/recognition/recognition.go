// Package recognition submits captured frames to a gesture-recognition HTTP
// endpoint and decodes the recognized word.
//
// A submission goes through a Chain of strategies: the primary strategy
// uploads the frame as multipart form data, and a configurable fallback is
// tried only when the primary fails.
//
// Example usage:
//
//	chain, _ := recognition.New(
//	    recognition.WithBaseURL("https://detect.roboflow.com/asl-new/3"),
//	    recognition.WithAPIKey(os.Getenv("SIGNSPEAK_API_KEY")),
//	    recognition.WithFallback(recognition.FallbackQueryGet),
//	)
//
//	res, err := chain.Submit(ctx, recognition.NewRequest(jpegBytes))
//	if err == nil {
//	    fmt.Println(res.Token)
//	}
package recognition

import (
	"context"
)

// Upload defaults matching what recognition servers expect from the app.
const (
	DefaultFieldName   = "file"
	DefaultFilename    = "gesture.jpg"
	DefaultContentType = "image/jpg"
)

// Strategy is one way of delivering a frame to the endpoint.
type Strategy interface {
	// Name identifies the strategy in logs and errors.
	Name() string

	// Submit delivers the frame and decodes the recognized token.
	Submit(ctx context.Context, req *Request) (*Result, error)
}

// Request is one frame to recognize.
type Request struct {
	// Image is the encoded frame.
	Image []byte

	// Filename is the multipart filename.
	Filename string

	// ContentType is the MIME type of the image part.
	ContentType string
}

// NewRequest wraps a JPEG frame with the default upload naming.
func NewRequest(image []byte) *Request {
	return &Request{
		Image:       image,
		Filename:    DefaultFilename,
		ContentType: DefaultContentType,
	}
}

// Result is a recognized token.
type Result struct {
	// Token is the recognized word.
	Token string

	// Confidence is the model's score, when the response carried one.
	Confidence    float64
	HasConfidence bool

	// Strategy is the name of the strategy that succeeded.
	Strategy string

	// LatencyMs is the request time in milliseconds.
	LatencyMs int64
}
