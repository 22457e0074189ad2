package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-signspeak/pkg/camera"
)

// DefaultPreviewInterval is the preview frame period.
const DefaultPreviewInterval = 200 * time.Millisecond

// FrameSink receives preview frames.
type FrameSink interface {
	BroadcastBinary(data []byte)
}

// DeviceProvider supplies the current capture device.
type DeviceProvider interface {
	Device() camera.Device
}

// Preview pushes live frames to viewers. It only touches the camera while
// at least one viewer is attached; the capture loop is unaffected by focus.
type Preview struct {
	devices DeviceProvider
	sink    FrameSink
	logger  *slog.Logger

	mu       sync.Mutex
	viewers  int
	interval time.Duration
	wake     chan struct{}
	frames   int64
}

// NewPreview creates a preview pump.
func NewPreview(devices DeviceProvider, sink FrameSink, interval time.Duration, logger *slog.Logger) *Preview {
	if interval <= 0 {
		interval = DefaultPreviewInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preview{
		devices:  devices,
		sink:     sink,
		logger:   logger.With("component", "preview"),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// SetViewers records the number of attached viewers.
func (p *Preview) SetViewers(n int) {
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	was := p.viewers > 0
	p.viewers = n
	p.mu.Unlock()

	if focused := n > 0; focused != was {
		p.logger.Debug("focus changed", "focused", focused, "viewers", n)
		p.signal()
	}
}

// Focused reports whether any viewer is attached.
func (p *Preview) Focused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewers > 0
}

// Viewers returns the number of attached viewers.
func (p *Preview) Viewers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewers
}

// SetInterval changes the frame period.
func (p *Preview) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
	p.signal()
}

// Frames returns the number of frames pushed so far.
func (p *Preview) Frames() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *Preview) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *Preview) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run pumps frames until ctx is cancelled.
func (p *Preview) Run(ctx context.Context) {
	interval := p.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !p.Focused() {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			if d := p.currentInterval(); d != interval {
				interval = d
				ticker.Reset(interval)
			}
		case <-ticker.C:
			p.Push(ctx)
		}
	}
}

// Push captures one preview frame and hands it to the sink.
func (p *Preview) Push(ctx context.Context) bool {
	dev := p.devices.Device()
	if dev == nil {
		return false
	}
	frame, err := dev.Preview(ctx)
	if err != nil {
		p.logger.Debug("preview frame failed", "error", err)
		return false
	}
	p.sink.BroadcastBinary(frame)

	p.mu.Lock()
	p.frames++
	p.mu.Unlock()
	return true
}
