package progress

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces progress channels in Redis.
const ChannelPrefix = "progress:"

// Event is one progress message as carried over Redis.
type Event struct {
	ChannelID string    `json:"channel_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RelayOptions configures the Redis connection of a Relay.
type RelayOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// TLS configuration for secure connections.
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// Logger receives delivery diagnostics.
	Logger *slog.Logger
}

// Relay publishes progress events to Redis and forwards events published by
// any replica into a local Registry.
type Relay struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRelay connects to Redis.
func NewRelay(opts RelayOptions) (*Relay, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Relay{client: client, logger: opts.Logger}, nil
}

// Publish sends message on channelID.
func (r *Relay) Publish(ctx context.Context, channelID, message string) error {
	data, err := json.Marshal(Event{
		ChannelID: channelID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.Publish(ctx, ChannelPrefix+channelID, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channelID, err)
	}
	return nil
}

// Notify implements Notifier. Publish failures are logged and reported as false.
func (r *Relay) Notify(ctx context.Context, channelID, message string) bool {
	if err := r.Publish(ctx, channelID, message); err != nil {
		r.logger.Debug("progress publish failed", "channel", channelID, "error", err)
		return false
	}
	return true
}

// Forward subscribes to every progress channel and pushes received events
// into registry until ctx is done. Events for channels with no local endpoint
// are dropped. ready, if non-nil, is closed once the subscription is active.
func (r *Relay) Forward(ctx context.Context, registry *Registry, ready chan<- struct{}) error {
	pubsub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to progress channels: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Debug("discarding malformed progress event", "channel", msg.Channel, "error", err)
				continue
			}
			if ev.ChannelID == "" {
				ev.ChannelID = strings.TrimPrefix(msg.Channel, ChannelPrefix)
			}
			registry.Push(ev.ChannelID, ev.Message)
		}
	}
}

// Ping checks the Redis connection.
func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Relay) Close() error {
	return r.client.Close()
}
