// signspeak - periodic gesture capture that builds a spoken phrase
// Captures a still every few seconds, sends it to a recognition endpoint,
// and serves the transcript panel over HTTP/WebSocket.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-signspeak/internal/config"
	"github.com/teslashibe/go-signspeak/internal/log"
	"github.com/teslashibe/go-signspeak/pkg/app"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	a, err := app.New(cfg, app.WithLogger(log.L()))
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		stdlog.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// Precedence: defaults, then -config file, then environment, then flags.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	configFile := flag.String("config", "", "YAML config file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	endpoint := flag.String("endpoint", "", "Recognition endpoint base URL (overrides SIGNSPEAK_ENDPOINT)")
	fallback := flag.String("fallback", "", "Fallback strategy: query-get, base64-post, none")
	format := flag.String("format", "", "Response format: json, roboflow, text")
	interval := flag.Duration("interval", 0, "Capture interval")
	ordering := flag.String("ordering", "", "Result ordering: latest, serial, none")
	facing := flag.String("facing", "", "Initial camera: back or front")
	device := flag.String("device", "", "Camera backend: gocv or mock")
	preset := flag.String("preset", "", "Camera preset: default, fast, hd, dim")
	port := flag.String("port", "", "Web panel port")
	noWeb := flag.Bool("no-web", false, "Run headless without the web panel")
	record := flag.Bool("record", false, "Start recording immediately")
	redisAddr := flag.String("redis", "", "Publish transcript events to this Redis address")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			stdlog.Fatalf("❌ Config file: %v", err)
		}
	}
	cfg.LoadEnvConfig()

	if *debug {
		cfg.LogLevel = "debug"
	}
	setString(&cfg.Endpoint, *endpoint)
	setString(&cfg.Fallback, *fallback)
	setString(&cfg.Format, *format)
	setString(&cfg.Ordering, *ordering)
	setString(&cfg.Facing, *facing)
	setString(&cfg.Device, *device)
	setString(&cfg.CameraPreset, *preset)
	setString(&cfg.Port, *port)
	setString(&cfg.RedisAddr, *redisAddr)
	if *interval > 0 {
		cfg.Interval = *interval
	}
	cfg.NoWeb = cfg.NoWeb || *noWeb
	cfg.StartRecording = cfg.StartRecording || *record
	return cfg
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
