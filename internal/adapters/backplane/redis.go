package backplane

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Redis struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedis(url, channel string, timeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisFromClient(client, channel, timeout), nil
}

func NewRedisFromClient(client *redis.Client, channel string, timeout time.Duration) *Redis {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Redis{client: client, channel: channel, timeout: timeout}
}

func (r *Redis) Publish(ctx context.Context, env core.Envelope) error {
	b, err := encode(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Subscribe delivers from a single goroutine so publish order holds.
func (r *Redis) Subscribe(ctx context.Context, handle func(core.Envelope)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decode([]byte(msg.Payload))
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.backplane").Str("driver", "redis").Msg("dropping envelope")
				continue
			}
			handle(env)
		}
	}
}

func (r *Redis) Distributed() bool { return true }

func (r *Redis) Close() error {
	return r.client.Close()
}
