package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Device = DeviceMock
	cfg.Interval = 10 * time.Millisecond
	cfg.Timeout = time.Second
	cfg.NoWeb = true
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"no endpoint", func(c *Config) { c.Endpoint = "" }, "Endpoint"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "Format"},
		{"bad fallback", func(c *Config) { c.Fallback = "carrier-pigeon" }, "Fallback"},
		{"bad ordering", func(c *Config) { c.Ordering = "random" }, "Ordering"},
		{"bad facing", func(c *Config) { c.Facing = "sideways" }, "Facing"},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "Interval"},
		{"quality too high", func(c *Config) { c.Quality = 1.5 }, "Quality"},
		{"negative confidence", func(c *Config) { c.MinConfidence = -0.1 }, "MinConfidence"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "Timeout"},
		{"unbounded timeout", func(c *Config) { c.Timeout = 0 }, ""},
		{"bad device", func(c *Config) { c.Device = "webcam" }, "Device"},
		{"bad preset", func(c *Config) { c.CameraPreset = "ultra" }, "CameraPreset"},
		{"no port", func(c *Config) { c.Port = "" }, "Port"},
		{"no port headless", func(c *Config) { c.Port = ""; c.NoWeb = true }, ""},
		{"serial ordering", func(c *Config) { c.Ordering = "SERIAL" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cerr.Field)
			}
		})
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("SIGNSPEAK_ENDPOINT", "http://gestures.local/asl")
	t.Setenv("SIGNSPEAK_API_KEY", "secret")
	t.Setenv("SIGNSPEAK_INTERVAL", "2s")
	t.Setenv("SIGNSPEAK_ORDERING", "serial")
	t.Setenv("SIGNSPEAK_MIN_CONFIDENCE", "0.6")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	if cfg.Endpoint != "http://gestures.local/asl" || cfg.APIKey != "secret" {
		t.Errorf("Endpoint overrides not applied: %+v", cfg)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Expected 2s interval, got %v", cfg.Interval)
	}
	if cfg.Ordering != "serial" || cfg.MinConfidence != 0.6 || cfg.LogLevel != "debug" {
		t.Errorf("Unexpected overrides: %+v", cfg)
	}
	if cfg.Port != "8080" {
		t.Errorf("Unset variables should keep defaults, got port %s", cfg.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signspeak.yaml")
	data := []byte("endpoint: http://gestures.local\ninterval: 3s\nquality: 0.8\nfacing: front\nno_web: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Endpoint != "http://gestures.local" || cfg.Interval != 3*time.Second {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Quality != 0.8 || cfg.Facing != "front" || !cfg.NoWeb {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Fallback != DefaultConfig().Fallback {
		t.Error("Keys missing from the file should keep defaults")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("endpont: typo\n"), 0o644)
	if err := cfg.LoadFile(bad); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = ""
	if _, err := New(cfg); err == nil {
		t.Error("Expected error for missing endpoint")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAppRecordsTranscript(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"token":"HELLO","confidence":0.9}`)
	}))
	defer srv.Close()

	dev := camera.NewMock()
	a, err := New(testConfig(srv.URL), WithDevice(dev), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if a.Permission() != camera.PermissionGranted {
		t.Fatalf("Expected granted permission, got %s", a.Permission())
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Nothing is captured until recording is switched on.
	time.Sleep(50 * time.Millisecond)
	if n := dev.CallCount("Capture"); n != 0 {
		t.Errorf("Expected no captures while inactive, got %d", n)
	}

	a.Store().Dispatch(session.ToggleActive{})
	waitFor(t, "transcript", func() bool {
		return a.Store().View().Text == "HELLO"
	})

	// Repeated tokens are deduped.
	waitFor(t, "more submissions", func() bool { return hits.Load() >= 3 })
	if got := a.Store().State().Transcript; len(got) != 1 {
		t.Errorf("Expected a single HELLO, got %v", got)
	}

	a.Store().Dispatch(session.FlipFacing{})
	waitFor(t, "camera switch", func() bool { return dev.Facing() == camera.FacingFront })

	st := a.Status()
	if st.Permission != camera.PermissionGranted || st.Capture.Appended != 1 || st.Uptime == "" {
		t.Errorf("Unexpected status: %+v", st)
	}
	if len(st.Strategies) != 2 {
		t.Errorf("Expected multipart plus fallback, got %v", st.Strategies)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	a.Shutdown()
	if dev.CallCount("Close") != 1 {
		t.Error("Shutdown should close the camera")
	}
}

func TestAppPermissionDenied(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dev := camera.NewMock()
	dev.PermissionFunc = func(ctx context.Context) (bool, error) { return false, nil }

	cfg := testConfig(srv.URL)
	cfg.StartRecording = true
	a, err := New(cfg, WithDevice(dev), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	st := a.Status()
	if st.Permission != camera.PermissionDenied || st.Message != camera.DeniedMessage {
		t.Errorf("Expected denied status, got %+v", st)
	}
	if st.View.Active {
		t.Error("Recording should not start without camera access")
	}

	go a.Run(ctx)
	a.Store().Dispatch(session.SetActive{Active: true})
	time.Sleep(80 * time.Millisecond)

	if n := dev.CallCount("Capture"); n != 0 {
		t.Errorf("Expected no captures when denied, got %d", n)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no submissions when denied, got %d", hits.Load())
	}
}

func TestAppStartRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"token":"YES"}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.StartRecording = true
	cfg.Facing = "front"
	a, err := New(cfg, WithDevice(camera.NewMock()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if !a.Store().State().Active || a.Store().State().Facing != camera.FacingFront {
		t.Errorf("Unexpected initial state: %+v", a.Store().State())
	}
}
