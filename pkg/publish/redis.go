// Package publish mirrors transcript changes to Redis pub/sub so other
// processes can follow the phrase as it is built.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/teslashibe/go-signspeak/pkg/camera"
	"github.com/teslashibe/go-signspeak/pkg/session"
)

const (
	// DefaultChannel is the pub/sub channel transcript events go to.
	DefaultChannel = "signspeak:transcript"

	// latestSuffix names the key holding the newest event.
	latestSuffix = ":latest"
)

// Client is the subset of *redis.Client the sink uses.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Event is one transcript change.
type Event struct {
	ID     string        `json:"id"`
	Source string        `json:"source"`
	Type   string        `json:"type"`
	Text   string        `json:"text"`
	Tokens []string      `json:"tokens"`
	Active bool          `json:"active"`
	Facing camera.Facing `json:"facing"`
	At     time.Time     `json:"at"`
}

// NewEvent builds the event for st.
func NewEvent(source string, st session.State) Event {
	tokens := append([]string{}, st.Transcript...)
	v := session.Render(st)
	text := v.Text
	if v.Placeholder {
		text = ""
	}
	return Event{
		ID:     uuid.NewString(),
		Source: source,
		Type:   "transcript",
		Text:   text,
		Tokens: tokens,
		Active: st.Active,
		Facing: st.Facing,
		At:     time.Now().UTC(),
	}
}

// Redis publishes transcript events.
type Redis struct {
	client  Client
	channel string
	source  string
	logger  *slog.Logger
}

// NewRedis creates a sink. An empty channel selects DefaultChannel; an empty
// source gets a random instance id.
func NewRedis(client Client, channel, source string, logger *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if source == "" {
		source = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:  client,
		channel: channel,
		source:  source,
		logger:  logger.With("component", "publish", "channel", channel),
	}
}

// NewClient opens a Redis client and checks the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Channel returns the pub/sub channel.
func (r *Redis) Channel() string {
	return r.channel
}

// Publish sends the event for st and stores it as the latest snapshot.
func (r *Redis) Publish(ctx context.Context, st session.State) error {
	data, err := json.Marshal(NewEvent(r.source, st))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", r.channel, err)
	}
	key := r.channel + latestSuffix
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Run publishes every state change of store until ctx is cancelled.
// Failures are logged and do not stop the sink.
func (r *Redis) Run(ctx context.Context, store *session.Store) {
	states, cancel := store.Subscribe()
	defer cancel()

	r.logger.Info("publishing transcript events")
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := r.Publish(ctx, st); err != nil {
				r.logger.Warn("publish failed", "error", err)
			}
		}
	}
}

// Decode parses a published event.
func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
