package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/capture"
	"github.com/teslashibe/go-signspeak/pkg/publish"
	"github.com/teslashibe/go-signspeak/pkg/recognition"
	"github.com/teslashibe/go-signspeak/pkg/session"
	"github.com/teslashibe/go-signspeak/pkg/web"
)

// Option configures an App.
type Option func(*App)

// WithDevice uses d instead of building a device from the config.
func WithDevice(d camera.Device) Option {
	return func(a *App) { a.device = d }
}

// WithPublisher uses c as the Redis client for the event sink.
func WithPublisher(c publish.Client) Option {
	return func(a *App) { a.publisher = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// Status is the /api/status payload.
type Status struct {
	Permission camera.Permission `json:"permission"`
	Message    string            `json:"message,omitempty"`
	Focused    bool              `json:"focused"`
	Viewers    int               `json:"viewers"`
	View       session.View      `json:"view"`
	Capture    capture.Metrics   `json:"capture"`
	Endpoint   string            `json:"endpoint"`
	Strategies []string          `json:"strategies"`
	Ordering   session.Ordering  `json:"ordering"`
	Publishing bool              `json:"publishing"`
	Uptime     string            `json:"uptime"`
}

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	store      *session.Store
	recognizer *recognition.Chain
	device     camera.Device
	cameras    *camera.Manager
	loop       *capture.Loop
	preview    *capture.Preview
	webServer  *web.Server

	publisher publish.Client
	sink      *publish.Redis
	rdb       *redis.Client

	mu         sync.RWMutex
	permission camera.Permission
	started    time.Time
}

// New creates an application with the given configuration.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:     cfg,
		logger:     slog.Default(),
		permission: camera.PermissionPending,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init builds every component and requests camera access.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	facing, _ := camera.ParseFacing(a.config.Facing)
	order, _ := session.ParseOrdering(a.config.Ordering)
	a.store = session.NewStore(facing, order)

	opts := append(a.config.recognitionOptions(), recognition.WithLogger(a.logger))
	chain, err := recognition.New(opts...)
	if err != nil {
		return fmt.Errorf("recognizer: %w", err)
	}
	a.recognizer = chain

	camCfg := a.config.cameraConfig()
	a.cameras = camera.NewManager(camCfg)
	if a.device == nil {
		a.device = a.newDevice(camCfg, facing)
	}

	a.loop = capture.New(capture.Config{
		Interval: a.config.Interval,
		Quality:  a.config.Quality,
	}, a.store, a.recognizer, a.logger)

	if !a.config.NoWeb {
		a.webServer = web.NewServer(web.Config{
			Port:      a.config.Port,
			StaticDir: a.config.StaticDir,
		}, a.store, a.cameras,
			web.WithLogger(a.logger),
			web.WithPermission(a.Permission),
			web.WithStatus(func() any { return a.Status() }),
			web.WithViewerHook(a.setViewers),
		)
		a.preview = capture.NewPreview(a.loop, a.webServer.CameraHub(), camCfg.PreviewInterval, a.logger)
	}

	a.cameras.OnConfigChange = a.applyCameraConfig

	if err := a.initPublisher(ctx); err != nil {
		a.logger.Warn("event sink disabled", "error", err)
	}

	a.requestPermission(ctx)
	return nil
}

func (a *App) newDevice(cfg camera.Config, facing camera.Facing) camera.Device {
	if a.config.Device == DeviceMock {
		return camera.NewMock()
	}
	return camera.NewGoCV(cfg, facing, a.logger)
}

func (a *App) initPublisher(ctx context.Context) error {
	if a.publisher == nil {
		if a.config.RedisAddr == "" {
			return nil
		}
		rdb, err := publish.NewClient(ctx, a.config.RedisAddr)
		if err != nil {
			return err
		}
		a.rdb = rdb
		a.publisher = rdb
	}
	a.sink = publish.NewRedis(a.publisher, a.config.RedisChannel, a.config.InstanceID, a.logger)
	return nil
}

// requestPermission opens the device. A denial is terminal: the loop never
// receives the device and the panel shows the denial message.
func (a *App) requestPermission(ctx context.Context) {
	granted, err := a.device.RequestPermission(ctx)
	if err != nil || !granted {
		a.setPermission(camera.PermissionDenied)
		a.logger.Error(camera.DeniedMessage, "error", err)
		return
	}

	a.setPermission(camera.PermissionGranted)
	a.loop.SetDevice(a.device)
	a.logger.Info("camera ready", "facing", a.store.State().Facing)

	if a.config.StartRecording {
		a.store.Dispatch(session.SetActive{Active: true})
	}
}

func (a *App) setPermission(p camera.Permission) {
	a.mu.Lock()
	a.permission = p
	a.mu.Unlock()
}

// Permission returns the camera permission state.
func (a *App) Permission() camera.Permission {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.permission
}

func (a *App) setViewers(n int) {
	if a.preview != nil {
		a.preview.SetViewers(n)
	}
}

func (a *App) applyCameraConfig(cfg camera.Config) error {
	if a.preview != nil {
		a.preview.SetInterval(cfg.PreviewInterval)
	}
	if d, ok := a.device.(interface{ ApplyConfig(camera.Config) error }); ok {
		return d.ApplyConfig(cfg)
	}
	return nil
}

// Store returns the session store.
func (a *App) Store() *session.Store {
	return a.store
}

// Loop returns the capture loop.
func (a *App) Loop() *capture.Loop {
	return a.loop
}

// Status reports the service state.
func (a *App) Status() Status {
	st := Status{
		Permission: a.Permission(),
		View:       a.store.View(),
		Capture:    a.loop.Metrics(),
		Endpoint:   a.config.Endpoint,
		Strategies: a.recognizer.Names(),
		Ordering:   a.store.Ordering(),
		Publishing: a.sink != nil,
	}
	if st.Permission == camera.PermissionDenied {
		st.Message = camera.DeniedMessage
	}
	if a.preview != nil {
		st.Viewers = a.preview.Viewers()
		st.Focused = st.Viewers > 0
	}
	a.mu.RLock()
	if !a.started.IsZero() {
		st.Uptime = time.Since(a.started).Round(time.Second).String()
	}
	a.mu.RUnlock()
	return st
}

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()

	if a.Permission() == camera.PermissionGranted {
		go func() {
			if err := a.loop.Run(ctx); err != nil {
				a.logger.Error("capture loop", "error", err)
			}
		}()
		go a.followFacing(ctx)
		if a.preview != nil {
			go a.preview.Run(ctx)
		}
	}
	if a.sink != nil {
		go a.sink.Run(ctx, a.store)
	}

	if a.webServer == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.webServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// followFacing applies facing changes from the store to the device.
func (a *App) followFacing(ctx context.Context) {
	states, cancel := a.store.Subscribe()
	defer cancel()

	facing := a.store.State().Facing
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.Facing == facing {
				continue
			}
			facing = st.Facing
			if err := a.device.SetFacing(facing); err != nil {
				a.logger.Warn("switch camera failed", "facing", facing, "error", err)
				continue
			}
			a.logger.Info("camera switched", "facing", facing)
		}
	}
}

// Shutdown waits for in-flight submissions and releases resources.
func (a *App) Shutdown() {
	if a.loop != nil {
		a.loop.Wait()
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.logger.Warn("close camera", "error", err)
		}
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.logger.Info("stopped")
}
