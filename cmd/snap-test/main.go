// Snap test - capture one still and send it to the recognition endpoint
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-signspeak/internal/config"
	"github.com/teslashibe/go-signspeak/internal/log"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/capture"
	"github.com/teslashibe/go-signspeak/pkg/recognition"
)

func main() {
	config.LoadDotEnv()

	endpoint := flag.String("endpoint", config.Env("SIGNSPEAK_ENDPOINT", recognition.DefaultBaseURL), "Recognition endpoint base URL")
	fallback := flag.String("fallback", recognition.FallbackQueryGet, "Fallback strategy: query-get, base64-post, none")
	format := flag.String("format", "json", "Response format: json, roboflow, text")
	facing := flag.String("facing", "back", "Camera: back or front")
	quality := flag.Float64("quality", capture.DefaultQuality, "JPEG quality (0-1)")
	image := flag.String("image", "", "Send this JPEG instead of capturing")
	save := flag.String("save", "snap.jpg", "Where to save the captured frame (empty to skip)")
	count := flag.Int("n", 1, "Number of captures")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fmt.Println("📸 Gesture Snap Test")
	fmt.Println("====================")
	fmt.Printf("Endpoint: %s\n\n", *endpoint)

	f, err := recognition.ParseFormat(*format)
	if err != nil {
		fail("format", err)
	}
	chain, err := recognition.New(
		recognition.WithBaseURL(*endpoint),
		recognition.WithAPIKey(config.Env("SIGNSPEAK_API_KEY", "")),
		recognition.WithFallback(*fallback),
		recognition.WithFormat(f),
		recognition.WithLogger(log.L()),
	)
	if err != nil {
		fail("recognizer", err)
	}

	ctx := context.Background()

	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			fail("read image", err)
		}
		submit(ctx, chain, data)
		return
	}

	side, err := camera.ParseFacing(*facing)
	if err != nil {
		fail("facing", err)
	}
	dev := camera.NewGoCV(camera.DefaultConfig(), side, log.L())
	if ok, err := dev.RequestPermission(ctx); !ok {
		fail(camera.DeniedMessage, err)
	}
	defer dev.Close()

	for i := 0; i < *count; i++ {
		start := time.Now()
		photo, err := dev.Capture(ctx, *quality)
		if err != nil {
			fmt.Printf("❌ Capture failed: %v\n", err)
			continue
		}
		fmt.Printf("📷 Captured %d bytes in %v (%s)\n", len(photo.Data), time.Since(start).Round(time.Millisecond), photo.URI)
		if i == 0 && *save != "" {
			if err := os.WriteFile(*save, photo.Data, 0644); err == nil {
				fmt.Printf("💾 Saved: %s\n", *save)
			}
		}
		submit(ctx, chain, photo.Data)
		photo.Release()
	}
}

func submit(ctx context.Context, chain *recognition.Chain, data []byte) {
	res, err := chain.Submit(ctx, recognition.NewRequest(data))
	if err != nil {
		fmt.Printf("❌ Recognition failed: %v\n", err)
		return
	}
	conf := "n/a"
	if res.HasConfidence {
		conf = fmt.Sprintf("%.2f", res.Confidence)
	}
	fmt.Printf("✅ %s (confidence %s, via %s, %dms)\n", res.Token, conf, res.Strategy, res.LatencyMs)
}

func fail(what string, err error) {
	fmt.Printf("❌ %s: %v\n", what, err)
	os.Exit(1)
}
