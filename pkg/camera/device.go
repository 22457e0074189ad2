package camera

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"time"
)

// Facing selects the physical camera.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Toggle returns the opposite facing.
func (f Facing) Toggle() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Valid reports whether f is a known facing.
func (f Facing) Valid() bool {
	return f == FacingBack || f == FacingFront
}

// ParseFacing parses "back" or "front" (case-insensitive).
func ParseFacing(s string) (Facing, error) {
	f := Facing(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", ErrUnknownFacing
	}
	return f, nil
}

// Permission is the outcome of a device access request.
type Permission string

const (
	PermissionPending Permission = "pending"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// DeniedMessage is shown in place of the camera when access is denied.
const DeniedMessage = "No access to camera"

// Sentinel errors for device operations.
var (
	ErrUnknownFacing = errors.New("camera: unknown facing")
	ErrNotOpen       = errors.New("camera: device not open")
	ErrEmptyFrame    = errors.New("camera: empty frame")
	ErrClosed        = errors.New("camera: device closed")
	ErrDenied        = errors.New("camera: permission denied")
)

// Photo is one captured still.
type Photo struct {
	// ID uniquely identifies the capture.
	ID string

	// URI locates the encoded image ("file://..." when cached on disk,
	// "memory://photo/<id>" otherwise). Empty means the capture produced no
	// usable resource.
	URI string

	// Data is the JPEG-encoded image.
	Data []byte

	// Facing is the camera the frame was taken with.
	Facing Facing

	// CapturedAt is the capture time.
	CapturedAt time.Time
}

// Release removes the cached file backing the photo, if any.
func (p *Photo) Release() error {
	if p == nil || !strings.HasPrefix(p.URI, "file://") {
		return nil
	}
	u, err := url.Parse(p.URI)
	if err != nil {
		return err
	}
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Device is a still-capture camera.
type Device interface {
	// RequestPermission opens the device. It reports whether access was granted.
	RequestPermission(ctx context.Context) (bool, error)

	// Capture takes one still at the given quality (0-1).
	Capture(ctx context.Context, quality float64) (*Photo, error)

	// Preview returns one JPEG frame for live preview.
	Preview(ctx context.Context) ([]byte, error)

	// SetFacing switches between back and front cameras.
	SetFacing(f Facing) error

	// Close releases the device.
	Close() error
}
