package service

import (
	"context"
	"log"

	"pushsvc/internal/model"
	"pushsvc/internal/repository"
)

// SubscriptionService is the subscription registry: it validates and authorizes
// mutations before they reach the store.
type SubscriptionService struct {
	subRepo repository.SubscriptionRepository
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo}
}

// Register stores a subscription submitted by a device. The owner is always the
// caller; a "user" property in the payload is ignored.
func (s *SubscriptionService) Register(ctx context.Context, caller model.Caller, sub *model.SubscriptionRequest, userAgent string) (*model.UpsertResult, error) {
	if caller.Guest() {
		return nil, model.NewPermissionError("Login required to register for push notifications")
	}
	if sub == nil {
		return nil, model.NewValidationError("Subscription data is required")
	}
	if sub.User != "" && sub.User != caller.User {
		log.Printf("[SubscriptionService] Ignoring client supplied user=%q for caller=%q", sub.User, caller.User)
	}

	return s.Upsert(ctx, caller, model.UpsertRequest{
		UserID:    caller.User,
		Endpoint:  sub.Endpoint,
		P256dhKey: sub.Keys.P256dh,
		AuthKey:   sub.Keys.Auth,
		UserAgent: userAgent,
	})
}

// Upsert creates the subscription or refreshes the row already holding the endpoint.
// Callers without elevated write capability may only write their own subscriptions.
func (s *SubscriptionService) Upsert(ctx context.Context, caller model.Caller, req model.UpsertRequest) (*model.UpsertResult, error) {
	req.Normalize()
	if req.UserID == "" {
		req.UserID = caller.User
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !caller.CanWriteAny && req.UserID != caller.User {
		return nil, model.NewPermissionError("You can only create subscriptions for yourself")
	}

	return s.subRepo.Upsert(ctx, req)
}
