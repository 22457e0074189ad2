package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn is an in-memory Conn. Inbound frames are fed through in.
type fakeConn struct {
	in chan []byte

	mu      sync.Mutex
	written []frame
	closed  bool
}

type frame struct {
	typ  int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 8)}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.in
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (f *fakeConn) WriteMessage(typ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return io.ErrClosedPipe
	}
	f.written = append(f.written, frame{typ: typ, data: data})
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) frames(typ int) []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []frame
	for _, fr := range f.written {
		if fr.typ == typ {
			out = append(out, fr)
		}
	}
	return out
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

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHubBroadcast(t *testing.T) {
	var mu sync.Mutex
	var counts []int
	h := New("test", quiet(), WithCountHook(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := newFakeConn()
	c, err := NewClient(h, conn)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()

	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]string{"text": "HELLO"}); err != nil {
		t.Fatal(err)
	}
	h.BroadcastBinary([]byte{0xFF, 0xD8})

	waitFor(t, "text frame", func() bool { return len(conn.frames(websocket.TextMessage)) == 1 })
	waitFor(t, "binary frame", func() bool { return len(conn.frames(websocket.BinaryMessage)) == 1 })

	if got := string(conn.frames(websocket.TextMessage)[0].data); got != `{"text":"HELLO"}` {
		t.Errorf("Unexpected text frame %s", got)
	}

	close(conn.in)
	waitFor(t, "client removed", func() bool { return h.ClientCount() == 0 })

	mu.Lock()
	defer mu.Unlock()
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 0 {
		t.Errorf("Expected count hook 1 then 0, got %v", counts)
	}
}

func TestHubGreetingAndMessages(t *testing.T) {
	received := make(chan string, 1)
	h := New("test", quiet(),
		WithGreeting(func() (Message, bool) { return Text([]byte(`{"hello":true}`)), true }),
		WithMessageHandler(func(c *Client, data []byte) {
			received <- string(data)
			c.Reply(Text([]byte(`{"ok":true}`)))
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := newFakeConn()
	c, _ := NewClient(h, conn)
	go c.Run()

	waitFor(t, "greeting", func() bool { return len(conn.frames(websocket.TextMessage)) >= 1 })
	if got := string(conn.frames(websocket.TextMessage)[0].data); got != `{"hello":true}` {
		t.Errorf("Expected greeting first, got %s", got)
	}

	conn.in <- []byte("undo")
	select {
	case got := <-received:
		if got != "undo" {
			t.Errorf("Unexpected message %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message handler not called")
	}
	waitFor(t, "reply", func() bool { return len(conn.frames(websocket.TextMessage)) == 2 })
}

func TestHubShutdown(t *testing.T) {
	h := New("test", quiet())
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := newFakeConn()
	c, _ := NewClient(h, conn)
	go c.Run()
	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	cancel()
	<-stopped

	if h.IsRunning() || h.ClientCount() != 0 {
		t.Error("Hub should be stopped with no clients")
	}
	waitFor(t, "close frame", func() bool { return len(conn.frames(websocket.CloseMessage)) == 1 })

	if _, err := NewClient(h, newFakeConn()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if c.Reply(Text([]byte("late"))) {
		t.Error("Reply to a dropped client should fail")
	}
	close(conn.in)
}
