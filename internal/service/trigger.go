package service

import (
	"context"
	"log"

	"pushsvc/internal/model"
)

// PushDispatcher is the part of Dispatcher the trigger depends on.
type PushDispatcher interface {
	Dispatch(ctx context.Context, userID, title, body string, data map[string]interface{}) (*model.DispatchResult, error)
}

// NotificationTrigger turns "notification created" events into pushes.
// A failed push must never fail or roll back the notification that caused it,
// so OnNotificationCreated swallows every error and panic after logging it.
type NotificationTrigger struct {
	dispatcher PushDispatcher
}

func NewNotificationTrigger(dispatcher PushDispatcher) *NotificationTrigger {
	return &NotificationTrigger{dispatcher: dispatcher}
}

// OnNotificationCreated pushes a personal notification to its recipient.
// Broadcast notifications (no recipient) and notifications without a subject are skipped.
func (t *NotificationTrigger) OnNotificationCreated(ctx context.Context, event model.NotificationEvent) {
	if !event.Personal() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[NotificationTrigger] PANIC pushing Notification Log %s: %v", event.Name, r)
		}
	}()

	result, err := t.dispatcher.Dispatch(ctx, event.ForUser, event.Subject, event.PushBody(), event.PushData())
	if err != nil {
		log.Printf("[NotificationTrigger] Push notification failed for Notification Log %s: %v", event.Name, err)
		return
	}

	log.Printf("[NotificationTrigger] Notification Log %s: user=%s sent=%d failed=%d",
		event.Name, event.ForUser, result.Success, result.Failed)
}
