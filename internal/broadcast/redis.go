package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "briefly:likes"

// RedisRelay publishes changes on a Redis channel and delivers those
// published by other origins.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.Logger
}

// DialRedis connects to the Redis server at url and checks it responds.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, channel, origin string, log *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  origin,
		log:     logger.OrNop(log).Named("redis-relay"),
	}
}

func (r *RedisRelay) Announce(ctx context.Context, c Change) error {
	payload, err := encodeChange(c)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisRelay) Listen(ctx context.Context, deliver func(Change)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if c, ok := r.accept(msg.Payload); ok {
				deliver(c)
			}
		}
	}
}

// accept decodes a payload and drops changes this process published itself.
func (r *RedisRelay) accept(payload string) (Change, bool) {
	c, err := decodeChange(payload)
	if err != nil {
		r.log.Debug("dropping malformed change", zap.String("error", logger.SanitizeError(err)))
		return Change{}, false
	}
	if c.Origin == r.origin {
		return Change{}, false
	}
	return c, true
}

func encodeChange(c Change) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding change: %w", err)
	}
	return string(b), nil
}

func decodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decoding change: %w", err)
	}
	if c.ArticleID == "" && !c.Resync {
		return Change{}, fmt.Errorf("decoding change: no article and no resync")
	}
	return c, nil
}
