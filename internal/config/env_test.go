package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("SIGNSPEAK_TEST_STR", "")
	if got := Env("SIGNSPEAK_TEST_STR", "def"); got != "def" {
		t.Errorf("Expected default, got %q", got)
	}

	t.Setenv("SIGNSPEAK_TEST_STR", "set")
	if got := Env("SIGNSPEAK_TEST_STR", "def"); got != "set" {
		t.Errorf("Expected set, got %q", got)
	}

	t.Setenv("SIGNSPEAK_TEST_DUR", "250ms")
	if got := EnvDuration("SIGNSPEAK_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}

	t.Setenv("SIGNSPEAK_TEST_DUR", "soon")
	if got := EnvDuration("SIGNSPEAK_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("Expected fallback 1s, got %v", got)
	}

	t.Setenv("SIGNSPEAK_TEST_BOOL", "true")
	if !EnvBool("SIGNSPEAK_TEST_BOOL", false) {
		t.Error("Expected true")
	}

	t.Setenv("SIGNSPEAK_TEST_FLOAT", "0.25")
	if got := EnvFloat("SIGNSPEAK_TEST_FLOAT", 0); got != 0.25 {
		t.Errorf("Expected 0.25, got %v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SIGNSPEAK_DOTENV_TEST=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SIGNSPEAK_DOTENV_TEST", "")
	os.Unsetenv("SIGNSPEAK_DOTENV_TEST")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("SIGNSPEAK_DOTENV_TEST"); got != "from-file" {
		t.Errorf("Expected from-file, got %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "endpoint: http://localhost:9000\ninterval: 2s\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Endpoint string `yaml:"endpoint"`
		Interval string `yaml:"interval"`
	}
	if err := LoadYAML(path, &out); err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	if out.Endpoint != "http://localhost:9000" || out.Interval != "2s" {
		t.Errorf("Unexpected decode: %+v", out)
	}
}

func TestLoadYAMLUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("bogus: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Endpoint string `yaml:"endpoint"`
	}
	if err := LoadYAML(path, &out); err == nil {
		t.Error("Expected error for unknown field")
	}
}
