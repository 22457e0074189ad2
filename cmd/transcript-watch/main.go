// Transcript watch - follow the phrase from a running signspeak instance
// Reads the panel WebSocket by default, or Redis pub/sub with -redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-signspeak/pkg/publish"
	"github.com/teslashibe/go-signspeak/pkg/web"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "signspeak web panel address")
	redisAddr := flag.String("redis", "", "Redis address; read published events instead of the panel")
	channel := flag.String("channel", publish.DefaultChannel, "Redis channel")
	undo := flag.Bool("undo", false, "Send an undo command after connecting, then keep watching")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	if *redisAddr != "" {
		err = watchRedis(ctx, *redisAddr, *channel)
	} else {
		err = watchPanel(ctx, *addr, *undo)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func watchPanel(ctx context.Context, addr string, undo bool) error {
	url := fmt.Sprintf("ws://%s/ws/transcript", addr)
	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", url)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect: %v (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connect: %w", err)
	}
	defer ws.Close()

	go func() {
		<-ctx.Done()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	}()

	if undo {
		if err := ws.WriteJSON(web.Command{Action: "undo"}); err != nil {
			return fmt.Errorf("send undo: %w", err)
		}
	}

	for {
		var msg web.ViewMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if msg.Type != "transcript" {
			continue
		}
		rec := "⏸"
		if msg.Active {
			rec = "🔴"
		}
		fmt.Printf("%s [%s] %s\n", rec, msg.Facing, msg.Text)
	}
}

func watchRedis(ctx context.Context, addr, channel string) error {
	rdb, err := publish.NewClient(ctx, addr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if latest, err := rdb.Get(ctx, channel+":latest").Result(); err == nil {
		if ev, err := publish.Decode(latest); err == nil {
			fmt.Printf("📌 %s: %s\n", ev.Source, ev.Text)
		}
	}

	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	fmt.Printf("👀 Subscribed to %s on %s (Ctrl+C to stop)\n", channel, addr)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := publish.Decode(m.Payload)
			if err != nil {
				fmt.Printf("⚠️  %v\n", err)
				continue
			}
			fmt.Printf("%s %s [%s] %s\n", ev.At.Local().Format("15:04:05"), ev.Source, ev.Facing, ev.Text)
		}
	}
}
