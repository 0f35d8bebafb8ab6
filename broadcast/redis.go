package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "dimensions:invalidations"

// RedisPublisher is the subset of the go-redis client used to publish.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var _ RedisPublisher = (*redis.Client)(nil)

// Redis publishes invalidations as JSON on a Redis channel so every process
// subscribed through a RedisListener can drop its caches.
type Redis struct {
	client  RedisPublisher
	channel string
	logger  *slog.Logger
	metrics *Metrics
}

var _ Publisher = (*Redis)(nil)

// NewRedis creates a publisher for channel. An empty channel selects DefaultChannel.
func NewRedis(client RedisPublisher, channel string, logger *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, channel: channel, logger: logger}
}

// SetMetrics attaches delivery counters.
func (r *Redis) SetMetrics(m *Metrics) {
	r.metrics = m
}

// Channel returns the channel invalidations are published on.
func (r *Redis) Channel() string {
	return r.channel
}

// Publish sends inv. Failures are logged, never returned.
func (r *Redis) Publish(ctx context.Context, inv Invalidation) {
	payload, err := json.Marshal(inv)
	if err != nil {
		r.logger.Warn("failed to encode invalidation", "error", err)
		r.metrics.observe("redis", resultError)
		return
	}
	receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		r.logger.Warn("failed to publish invalidation",
			"channel", r.channel,
			"error", err,
		)
		r.metrics.observe("redis", resultError)
		return
	}
	r.logger.Debug("published invalidation",
		"channel", r.channel,
		"all", inv.All,
		"users", len(inv.UserIDs),
		"receivers", receivers,
	)
	r.metrics.observe("redis", resultOK)
}

// RedisListener replays invalidations received on a Redis channel into a
// local Publisher, typically a Bus feeding the process caches.
type RedisListener struct {
	client  *redis.Client
	channel string
	target  Publisher
	logger  *slog.Logger
}

// NewRedisListener creates a listener. An empty channel selects DefaultChannel.
func NewRedisListener(client *redis.Client, channel string, target Publisher, logger *slog.Logger) *RedisListener {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisListener{client: client, channel: channel, target: target, logger: logger}
}

// Run subscribes and forwards messages until ctx is done.
func (l *RedisListener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription to be confirmed before reporting readiness
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", l.channel, err)
	}
	l.logger.Info("listening for invalidations", "channel", l.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.dispatch(ctx, msg.Payload)
		}
	}
}

// dispatch decodes one payload and forwards it. Malformed payloads are dropped.
func (l *RedisListener) dispatch(ctx context.Context, payload string) {
	var inv Invalidation
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		l.logger.Warn("dropping malformed invalidation",
			"channel", l.channel,
			"error", err,
		)
		return
	}
	if inv.Empty() {
		return
	}
	l.target.Publish(ctx, inv)
}
