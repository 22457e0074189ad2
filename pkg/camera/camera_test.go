package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("Preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 10
	cfg.PreviewQuality = 0
	cfg.BackIndex = -1

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Errorf("Expected 3 validation errors, got %d: %v", len(errs), errs)
	}
}

func TestGetPresetUnknown(t *testing.T) {
	if GetPreset("cinema") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestJPEGQuality(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 50},
		{0, 1},
		{-1, 1},
		{1, 100},
		{2, 100},
		{0.004, 1},
		{0.856, 86},
	}
	for _, tt := range tests {
		if got := JPEGQuality(tt.in); got != tt.want {
			t.Errorf("JPEGQuality(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFacing(t *testing.T) {
	if FacingBack.Toggle() != FacingFront || FacingFront.Toggle() != FacingBack {
		t.Error("Toggle should swap back and front")
	}

	f, err := ParseFacing(" Front ")
	if err != nil || f != FacingFront {
		t.Errorf("ParseFacing: got %q, %v", f, err)
	}

	if _, err := ParseFacing("side"); !errors.Is(err, ErrUnknownFacing) {
		t.Errorf("Expected ErrUnknownFacing, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.FrontIndex = 1
	if cfg.IndexFor(FacingFront) != 1 || cfg.IndexFor(FacingBack) != 0 {
		t.Error("IndexFor returned wrong device index")
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"width":           float64(1280),
		"height":          float64(720),
		"preview_quality": float64(40),
		"mirror_front":    false,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 1280 || got.Height != 720 || got.PreviewQuality != 40 || got.MirrorFront {
		t.Errorf("Unexpected config: %+v", got)
	}
	if applied != got {
		t.Error("OnConfigChange not called with new config")
	}
}

func TestManagerPresetKeepsDeviceSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrontIndex = 2
	cfg.CacheDir = "/tmp/frames"
	m := NewManager(cfg)

	if err := m.UpdateConfig(map[string]interface{}{"preset": PresetHD}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 1280 {
		t.Errorf("Expected HD width, got %d", got.Width)
	}
	if got.FrontIndex != 2 || got.CacheDir != "/tmp/frames" {
		t.Errorf("Preset should keep device selection, got %+v", got)
	}
}

func TestManagerRejects(t *testing.T) {
	m := NewManager(DefaultConfig())

	if err := m.UpdateConfig(map[string]interface{}{"preset": "cinema"}); err == nil {
		t.Error("Expected error for unknown preset")
	}
	if err := m.UpdateConfig(map[string]interface{}{"zoom": 2.0}); err == nil {
		t.Error("Expected error for unknown field")
	}
	if err := m.UpdateConfig(map[string]interface{}{"width": 5.0}); err == nil {
		t.Error("Expected validation error")
	}
	if m.GetConfig() != DefaultConfig() {
		t.Error("Rejected updates must not change config")
	}

	m.OnConfigChange = func(Config) error { return errors.New("device busy") }
	if err := m.UpdateConfig(map[string]interface{}{"width": 320.0}); err == nil {
		t.Error("Expected apply error")
	}
}

func TestGetConfigJSON(t *testing.T) {
	m := NewManager(DefaultConfig())
	j := m.GetConfigJSON()
	if j["width"] != float64(640) {
		t.Errorf("Expected width 640, got %v", j["width"])
	}
}

func TestPhotoRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	if err := os.WriteFile(path, []byte{1}, 0o600); err != nil {
		t.Fatal(err)
	}

	p := &Photo{URI: "file://" + filepath.ToSlash(path)}
	if err := p.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected cached file to be removed")
	}

	// Releasing twice and releasing memory photos are no-ops.
	if err := p.Release(); err != nil {
		t.Errorf("Second release failed: %v", err)
	}
	if err := (&Photo{URI: "memory://photo/x"}).Release(); err != nil {
		t.Errorf("Memory release failed: %v", err)
	}
	var nilPhoto *Photo
	if err := nilPhoto.Release(); err != nil {
		t.Errorf("Nil release failed: %v", err)
	}
}

func TestMockDevice(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	ok, err := m.RequestPermission(ctx)
	if !ok || err != nil {
		t.Fatalf("Expected permission, got %v %v", ok, err)
	}

	if err := m.SetFacing(FacingFront); err != nil {
		t.Fatal(err)
	}

	p, err := m.Capture(ctx, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if p.URI == "" || len(p.Data) == 0 || p.Facing != FacingFront {
		t.Errorf("Unexpected photo: %+v", p)
	}

	if m.CallCount("Capture") != 1 {
		t.Errorf("Expected 1 capture, got %d", m.CallCount("Capture"))
	}
	if err := m.SetFacing("side"); !errors.Is(err, ErrUnknownFacing) {
		t.Errorf("Expected ErrUnknownFacing, got %v", err)
	}
}
