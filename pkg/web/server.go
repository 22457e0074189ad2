// Package web serves the transcript panel: a small JSON API, a live
// transcript feed and the camera preview stream.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/hub"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

// Config holds server settings.
type Config struct {
	Port      string // Listen port
	StaticDir string // Dashboard assets, served at / when the directory exists
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Port:      "8080",
		StaticDir: "./web",
	}
}

// Option configures a Server.
type Option func(*Server)

// WithPermission sets the camera permission source. Without it the camera
// is treated as granted.
func WithPermission(fn func() camera.Permission) Option {
	return func(s *Server) { s.permission = fn }
}

// WithStatus sets the source of the /api/status payload.
func WithStatus(fn func() any) Option {
	return func(s *Server) { s.status = fn }
}

// WithViewerHook is called whenever the number of preview viewers changes.
func WithViewerHook(fn func(n int)) Option {
	return func(s *Server) { s.onViewers = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the transcript panel server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	store   *session.Store
	cameras *camera.Manager

	transcriptHub *hub.Hub
	cameraHub     *hub.Hub

	permission func() camera.Permission
	status     func() any
	onViewers  func(n int)
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config, store *session.Store, cameras *camera.Manager, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  slog.Default(),
		store:   store,
		cameras: cameras,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")

	s.transcriptHub = hub.New("transcript",
		hub.WithLogger(s.logger),
		hub.WithGreeting(s.greeting),
		hub.WithMessageHandler(s.handleCommand),
	)
	s.cameraHub = hub.New("camera",
		hub.WithLogger(s.logger),
		hub.WithCountHook(func(n int) {
			if s.onViewers != nil {
				s.onViewers(n)
			}
		}),
	)

	app := fiber.New(fiber.Config{
		AppName:               "SignSpeak",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			app.Static("/", cfg.StaticDir)
		}
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	api.Get("/transcript", s.requireCamera, s.handleTranscript)
	api.Post("/transcript/undo", s.requireCamera, s.handleUndo)
	api.Delete("/transcript", s.requireCamera, s.handleReset)
	api.Post("/recording/toggle", s.requireCamera, s.handleToggle)
	api.Post("/camera/flip", s.requireCamera, s.handleFlip)
	api.Get("/camera/config", s.requireCamera, s.handleGetCameraConfig)
	api.Patch("/camera/config", s.requireCamera, s.handleUpdateCameraConfig)
	api.Get("/camera/presets", s.requireCamera, s.handleListPresets)

	app.Use("/ws", s.requireCamera, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/transcript", websocket.New(s.handleTranscriptWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// CameraHub returns the preview hub; it receives JPEG frames.
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// Run listens on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. It starts the hubs and pushes
// the transcript view to subscribers on every change.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.transcriptHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.pumpViews(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

func (s *Server) pumpViews(ctx context.Context) {
	states, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := s.transcriptHub.BroadcastJSON(newViewMessage(session.Render(st))); err != nil {
				s.logger.Warn("encode view", "error", err)
			}
		}
	}
}

func (s *Server) currentPermission() camera.Permission {
	if s.permission == nil {
		return camera.PermissionGranted
	}
	return s.permission()
}

// requireCamera rejects requests until camera access is granted.
func (s *Server) requireCamera(c *fiber.Ctx) error {
	switch s.currentPermission() {
	case camera.PermissionGranted:
		return c.Next()
	case camera.PermissionDenied:
		return fiber.NewError(fiber.StatusForbidden, camera.DeniedMessage)
	default:
		return fiber.NewError(fiber.StatusServiceUnavailable, "Requesting camera permission")
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
