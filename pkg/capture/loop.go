// Package capture drives the periodic capture-and-submit cycle.
//
// On every tick, while recording is active and a device is attached, the
// loop captures one still frame, submits it to the recognizer and dispatches
// the recognized token to the session store. Submissions are not awaited by
// the ticker, so a slow cycle and the next tick may overlap; the store's
// ordering policy decides what happens to late results.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/recognition"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

const (
	// DefaultInterval is the capture period.
	DefaultInterval = 5 * time.Second

	// DefaultQuality is the still quality passed to the device (0-1).
	DefaultQuality = 0.5
)

var (
	// ErrNoLocator is recorded when a capture produced no resource locator.
	ErrNoLocator = errors.New("capture: photo has no resource locator")

	// ErrAlreadyRunning is returned by Run when the loop is already running.
	ErrAlreadyRunning = errors.New("capture: loop already running")
)

// Config holds loop settings.
type Config struct {
	Interval time.Duration
	Quality  float64
}

// DefaultConfig returns the default loop settings.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Quality:  DefaultQuality,
	}
}

// Loop is the capture scheduler.
type Loop struct {
	cfg       Config
	store     *session.Store
	submitter recognition.Strategy
	logger    *slog.Logger

	mu     sync.RWMutex
	device camera.Device

	inflight atomic.Bool
	running  atomic.Bool
	wg       sync.WaitGroup

	metrics metrics
}

// New creates a capture loop. The device may be attached later with
// SetDevice; until then every tick is a no-op.
func New(cfg Config, store *session.Store, submitter recognition.Strategy, logger *slog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Quality <= 0 || cfg.Quality > 1 {
		cfg.Quality = DefaultQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:       cfg,
		store:     store,
		submitter: submitter,
		logger:    logger.With("component", "capture"),
	}
}

// SetDevice attaches (or with nil, detaches) the capture device.
func (l *Loop) SetDevice(d camera.Device) {
	l.mu.Lock()
	l.device = d
	l.mu.Unlock()
}

// Device returns the attached device, or nil.
func (l *Loop) Device() camera.Device {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.device
}

// Config returns the loop settings.
func (l *Loop) Config() Config {
	return l.cfg
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run ticks until ctx is cancelled. The ticker restarts whenever recording
// is switched on or off. Submissions still in flight when Run returns are
// left to finish; use Wait to drain them.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	states, cancel := l.store.Subscribe()
	defer cancel()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	active := l.store.State().Active
	l.logger.Info("capture loop started",
		"interval", l.cfg.Interval,
		"quality", l.cfg.Quality,
		"ordering", l.store.Ordering(),
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("capture loop stopped", "ticks", l.metrics.ticks.Load())
			return nil

		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			if st.Active != active {
				active = st.Active
				ticker.Reset(l.cfg.Interval)
				l.logger.Debug("recording changed, ticker reset", "active", active)
			}

		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one cycle: capture synchronously, then submit in the
// background. It reports whether a submission was started.
func (l *Loop) Tick(ctx context.Context) bool {
	l.metrics.ticks.Add(1)

	dev := l.Device()
	if dev == nil || !l.store.State().Active {
		l.metrics.skipped.Add(1)
		return false
	}

	serial := l.store.Ordering() == session.OrderSerial
	if serial && !l.inflight.CompareAndSwap(false, true) {
		l.metrics.skipped.Add(1)
		l.logger.Debug("cycle in flight, tick skipped")
		return false
	}
	release := func() {
		if serial {
			l.inflight.Store(false)
		}
	}

	l.metrics.captures.Add(1)
	photo, err := dev.Capture(ctx, l.cfg.Quality)
	if err != nil {
		release()
		l.metrics.captureFailures.Add(1)
		l.metrics.setError(err)
		l.logger.Warn("capture failed", "error", err)
		return false
	}
	if photo == nil || photo.URI == "" {
		release()
		l.metrics.captureFailures.Add(1)
		l.metrics.setError(ErrNoLocator)
		l.logger.Warn("capture aborted", "error", ErrNoLocator)
		return false
	}

	seq := l.store.NextCycle()
	submitCtx := context.WithoutCancel(ctx)

	l.wg.Add(1)
	l.metrics.pending.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.metrics.pending.Add(-1)
		defer release()
		l.submit(submitCtx, seq, photo)
	}()
	return true
}

// Wait blocks until every started submission has finished.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) submit(ctx context.Context, seq uint64, photo *camera.Photo) {
	defer func() {
		if err := photo.Release(); err != nil {
			l.logger.Debug("release photo", "id", photo.ID, "error", err)
		}
	}()

	l.metrics.submissions.Add(1)
	start := time.Now()
	res, err := l.submitter.Submit(ctx, recognition.NewRequest(photo.Data))
	l.metrics.setLatency(time.Since(start))
	if err != nil {
		// The recognizer already logged each attempt.
		l.metrics.submitFailures.Add(1)
		l.metrics.setError(err)
		l.logger.Debug("cycle dropped", "seq", seq, "photo", photo.ID)
		return
	}

	effect := l.store.Dispatch(session.AppendToken{Token: res.Token, Seq: seq})
	switch effect {
	case session.EffectChanged:
		l.metrics.appended.Add(1)
		l.logger.Info("token appended",
			"token", res.Token,
			"seq", seq,
			"strategy", res.Strategy,
			"latency_ms", res.LatencyMs,
		)
	case session.EffectDeduped:
		l.metrics.deduped.Add(1)
		l.logger.Debug("token repeated", "token", res.Token, "seq", seq)
	case session.EffectStale:
		l.metrics.stale.Add(1)
		l.logger.Info("stale result discarded", "token", res.Token, "seq", seq)
	}
}
