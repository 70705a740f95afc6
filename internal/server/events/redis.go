package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "todos:changed:"

// ChannelName is the Redis pub/sub channel carrying userID's events.
func ChannelName(userID string) string {
	return channelPrefix + userID
}

// RedisBus publishes events as JSON over Redis pub/sub, one channel per
// user.
type RedisBus struct {
	client *redis.Client
	buffer int
	logger logging.Logger
}

func NewRedisBus(client *redis.Client, logger logging.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		buffer: DefaultBuffer,
		logger: logger.With("module", "redis_bus"),
	}
}

// DialRedis parses a redis:// URL and verifies the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev TodosChanged) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, ChannelName(ev.UserID), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, userID string) (<-chan TodosChanged, error) {
	ps := b.client.Subscribe(ctx, ChannelName(userID))

	// wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan TodosChanged, b.buffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					b.logger.Warn(ctx, "dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
