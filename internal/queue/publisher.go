package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"pushsvc/internal/model"
)

// Publisher adds events to a stream.
type Publisher interface {
	// Publish returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event Event) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish adds an event to the stream using XADD with an auto-generated ID.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s msgID=%s notification=%s user=%s duration=%v",
		stream, event.Type, messageID, event.Notification.Name, event.Notification.ForUser, time.Since(startTime))

	return messageID, nil
}

// PublishNotificationCreated is what the notification pipeline calls after
// inserting a notification record.
func (p *RedisPublisher) PublishNotificationCreated(ctx context.Context, n model.NotificationEvent) (string, error) {
	return p.Publish(ctx, StreamNotifications, NewNotificationCreatedEvent(n))
}
