package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrClosed is returned when registering with a stopped hub.
var ErrClosed = errors.New("hub: closed")

// Option configures a Hub.
type Option func(*Hub)

// WithCountHook registers fn to be called from the hub goroutine every time
// the number of clients changes.
func WithCountHook(fn func(n int)) Option {
	return func(h *Hub) { h.onCount = fn }
}

// WithGreeting queues the message returned by fn to every new client before
// any broadcast reaches it.
func WithGreeting(fn func() (Message, bool)) Option {
	return func(h *Hub) { h.greeting = fn }
}

// WithMessageHandler handles text frames received from clients.
func WithMessageHandler(fn func(c *Client, data []byte)) Option {
	return func(h *Hub) { h.onMessage = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// Hub owns the set of clients. Only the Run goroutine touches the set.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	count   atomic.Int64
	running atomic.Bool

	onCount   func(n int)
	greeting  func() (Message, bool)
	onMessage func(c *Client, data []byte)
}

// New creates a hub. Call Run to start it.
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		logger:     slog.Default(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub", "hub", name)
	return h
}

// Run delivers messages until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		h.setCount()
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.greeting != nil {
				if msg, ok := h.greeting(); ok {
					c.send <- msg
				}
			}
			n := h.setCount()
			h.logger.Info("client connected", "clients", n)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				n := h.setCount()
				h.logger.Info("client disconnected", "clients", n)
			}

		case msg := <-h.broadcast:
			dropped := 0
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.drop(c)
					dropped++
				}
			}
			if dropped > 0 {
				n := h.setCount()
				h.logger.Warn("dropped slow clients", "dropped", dropped, "clients", n)
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) setCount() int {
	n := len(h.clients)
	if int64(n) != h.count.Swap(int64(n)) && h.onCount != nil {
		h.onCount(n)
	}
	return n
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it as a text frame.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Text(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes such as a preview frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Binary(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}

func (h *Hub) add(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
