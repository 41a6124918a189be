package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// NotifiedPrefix is the key prefix for per-notification push claims
	NotifiedPrefix = "push:notified:"

	// NotifiedTTL outlives any realistic stream redelivery window (24h)
	NotifiedTTL = 24 * time.Hour
)

// PushClaims remembers which notifications were already pushed, so a stream
// message delivered twice does not notify the user twice.
type PushClaims interface {
	// Claim returns true for the first caller only.
	Claim(ctx context.Context, notification string) (bool, error)

	// Release drops a claim so the notification can be pushed again.
	Release(ctx context.Context, notification string) error
}

// RedisPushClaims implements PushClaims with SET NX.
type RedisPushClaims struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPushClaims(client *redis.Client) *RedisPushClaims {
	return &RedisPushClaims{client: client, ttl: NotifiedTTL}
}

func notifiedKey(notification string) string {
	return NotifiedPrefix + notification
}

func (c *RedisPushClaims) Claim(ctx context.Context, notification string) (bool, error) {
	ok, err := c.client.SetNX(ctx, notifiedKey(notification), time.Now().Unix(), c.ttl).Result()
	if err != nil {
		log.Printf("[PushClaims] Claim FAILED: notification=%s err=%v", notification, err)
		return false, fmt.Errorf("setnx claim: %w", err)
	}
	if !ok {
		log.Printf("[PushClaims] Claim: notification=%s already pushed", notification)
	}
	return ok, nil
}

func (c *RedisPushClaims) Release(ctx context.Context, notification string) error {
	if err := c.client.Del(ctx, notifiedKey(notification)).Err(); err != nil {
		return fmt.Errorf("del claim: %w", err)
	}
	return nil
}
