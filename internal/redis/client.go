package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Client wraps the Redis client shared by the stream consumer, the publisher
// and the push claims.
type Client struct {
	*redis.Client
}

// Connect parses redisURL and pings the server, so workers fail fast when the
// stream is unreachable.
// URL format: redis://[:password@]host:port[/db]
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Printf("[Redis] Connected to %s db=%d", opts.Addr, opts.DB)
	return client, nil
}

// Ping verifies the connection to Redis.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
