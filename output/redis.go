package output

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel used when Channel is empty.
const DefaultChannel = "dirwatch:events"

// publisher is the part of *redis.Client used by Redis.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes records as JSON messages on a Redis channel.
type Redis struct {
	Client  publisher
	Channel string
}

// NewRedis returns a sink publishing to the server at addr.
func NewRedis(addr, password string, db int, channel string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Redis{Client: client, Channel: channel}
}

// Send publishes rec.
func (r *Redis) Send(ctx context.Context, rec Record) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize record to JSON failed: %w", err)
	}

	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	err = r.Client.Publish(ctx, channel, buf).Err()
	if err != nil {
		return fmt.Errorf("publish to %v failed: %w", channel, err)
	}

	return nil
}

// Close closes the connection if the client supports it.
func (r *Redis) Close() error {
	if c, ok := r.Client.(*redis.Client); ok {
		return c.Close()
	}

	return nil
}
