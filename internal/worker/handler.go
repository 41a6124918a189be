package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"pushsvc/internal/cache"
	"pushsvc/internal/model"
	"pushsvc/internal/queue"
)

const releaseTimeout = 2 * time.Second

// NotificationHandler receives notification records as they are created.
// service.NotificationTrigger implements it.
type NotificationHandler interface {
	OnNotificationCreated(ctx context.Context, event model.NotificationEvent)
}

// Handler processes events from the notification stream.
type Handler struct {
	notifications NotificationHandler
	claims        cache.PushClaims // Can be nil, then redeliveries push again
}

func NewHandler(notifications NotificationHandler, claims cache.PushClaims) *Handler {
	return &Handler{
		notifications: notifications,
		claims:        claims,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventNotificationCreated:
		err = h.handleNotificationCreated(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

func (h *Handler) handleNotificationCreated(ctx context.Context, event queue.Event) error {
	n := event.Notification
	log.Printf("[Worker] NotificationCreated: notification=%s user=%s", n.Name, n.ForUser)

	if !n.Personal() {
		log.Printf("[Worker] NotificationCreated: notification=%s is not personal, skipping", n.Name)
		return nil
	}
	if n.Name == "" {
		return fmt.Errorf("notification without name")
	}

	held := false
	if h.claims != nil {
		claimed, err := h.claims.Claim(ctx, n.Name)
		switch {
		case err != nil:
			// A duplicate push beats a lost one.
			log.Printf("[Worker] NotificationCreated: claim unavailable, pushing anyway: %v", err)
		case !claimed:
			log.Printf("[Worker] NotificationCreated: notification=%s already pushed, skipping", n.Name)
			return nil
		default:
			held = true
		}
	}

	h.notifications.OnNotificationCreated(ctx, n)

	// Shutdown cut the push short: give the claim back so the redelivery pushes.
	if err := ctx.Err(); err != nil {
		if held {
			h.releaseClaim(ctx, n.Name)
		}
		return fmt.Errorf("push interrupted: %w", err)
	}

	log.Printf("[Worker] NotificationCreated DONE: notification=%s", n.Name)
	return nil
}

func (h *Handler) releaseClaim(ctx context.Context, notification string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := h.claims.Release(releaseCtx, notification); err != nil {
		log.Printf("[Worker] NotificationCreated: release claim FAILED: notification=%s err=%v", notification, err)
		return
	}
	log.Printf("[Worker] NotificationCreated: released claim for notification=%s", notification)
}
