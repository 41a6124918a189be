package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"pushsvc/internal/model"
)

// Event types for the notification stream
const (
	EventNotificationCreated = "notification_created"
)

// Stream names
const (
	StreamNotifications = "stream:notifications"
)

// Consumer group name for push workers
const (
	ConsumerGroupPush = "push_workers"
)

// Event is the envelope published to the notification stream.
type Event struct {
	Type      string `json:"type"`      // EventNotificationCreated
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	Notification model.NotificationEvent `json:"notification"`
}

// NewNotificationCreatedEvent wraps a freshly created notification record.
// Worker will push it to every active subscription of the recipient.
func NewNotificationCreatedEvent(n model.NotificationEvent) Event {
	return Event{
		Type:         EventNotificationCreated,
		Timestamp:    time.Now().Unix(),
		Notification: n,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
