package camera

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// GoCV is a Device backed by an OpenCV VideoCapture.
type GoCV struct {
	mu     sync.Mutex
	cfg    Config
	facing Facing
	cap    *gocv.VideoCapture
	index  int
	closed bool
	logger *slog.Logger
}

// NewGoCV creates an unopened OpenCV device. Call RequestPermission to open it.
func NewGoCV(cfg Config, facing Facing, logger *slog.Logger) *GoCV {
	if logger == nil {
		logger = slog.Default()
	}
	if !facing.Valid() {
		facing = FacingBack
	}
	return &GoCV{
		cfg:    cfg,
		facing: facing,
		index:  -1,
		logger: logger.With("component", "camera.gocv"),
	}
}

// RequestPermission opens the device for the current facing. OpenCV cannot
// tell a missing device from a denied one, so any open failure is a denial.
func (d *GoCV) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, ErrClosed
	}
	if err := d.openLocked(d.cfg.IndexFor(d.facing)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDenied, err)
	}
	return true, nil
}

// Capture reads one frame and encodes it at the given quality.
func (d *GoCV) Capture(ctx context.Context, quality float64) (*Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.readJPEGLocked(JPEGQuality(quality))
	if err != nil {
		return nil, err
	}

	photo := &Photo{
		ID:         uuid.NewString(),
		Data:       data,
		Facing:     d.facing,
		CapturedAt: time.Now(),
	}

	if d.cfg.CacheDir == "" {
		photo.URI = "memory://photo/" + photo.ID
		return photo, nil
	}

	path := filepath.Join(d.cfg.CacheDir, photo.ID+".jpg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		// The frame is still usable in memory, but it has no locator.
		d.logger.Warn("cache write failed", "path", path, "error", err)
		return photo, nil
	}
	photo.URI = "file://" + filepath.ToSlash(path)
	return photo, nil
}

// Preview reads one frame at the preview quality.
func (d *GoCV) Preview(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.readJPEGLocked(d.cfg.PreviewQuality)
}

// SetFacing switches cameras, reopening the device when the index differs.
func (d *GoCV) SetFacing(f Facing) error {
	if !f.Valid() {
		return ErrUnknownFacing
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.facing = f
	if d.cap == nil {
		return nil
	}
	idx := d.cfg.IndexFor(f)
	if idx == d.index {
		return nil
	}
	return d.openLocked(idx)
}

// ApplyConfig updates the device configuration. Changing a device index for
// the active facing reopens the device.
func (d *GoCV) ApplyConfig(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	if d.cap == nil {
		return nil
	}
	if idx := cfg.IndexFor(d.facing); idx != d.index {
		return d.openLocked(idx)
	}
	d.applyPropsLocked()
	return nil
}

// Close releases the underlying capture.
func (d *GoCV) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.cap == nil {
		return nil
	}
	err := d.cap.Close()
	d.cap = nil
	d.index = -1
	return err
}

func (d *GoCV) openLocked(index int) error {
	if d.cap != nil {
		d.cap.Close()
		d.cap = nil
		d.index = -1
	}

	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return fmt.Errorf("open device %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open device %d: not available", index)
	}

	d.cap = vc
	d.index = index
	d.applyPropsLocked()
	d.logger.Info("device opened", "index", index, "facing", d.facing)
	return nil
}

func (d *GoCV) applyPropsLocked() {
	d.cap.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
	d.cap.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	if d.cfg.Brightness != 0 {
		d.cap.Set(gocv.VideoCaptureBrightness, d.cfg.Brightness)
	}
	if d.cfg.Exposure != 0 {
		d.cap.Set(gocv.VideoCaptureExposure, d.cfg.Exposure)
	}
}

func (d *GoCV) readJPEGLocked(quality int) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.cap == nil {
		return nil, ErrNotOpen
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := d.cap.Read(&img); !ok || img.Empty() {
		return nil, ErrEmptyFrame
	}

	src := img
	if d.facing == FacingFront && d.cfg.MirrorFront {
		mirrored := gocv.NewMat()
		defer mirrored.Close()
		gocv.Flip(img, &mirrored, 1)
		src = mirrored
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory that Close frees.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Verify GoCV implements Device at compile time.
var _ Device = (*GoCV)(nil)
