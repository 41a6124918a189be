package repository

import (
	"context"

	"pushsvc/internal/model"
)

type SubscriptionRepository interface {
	// Upsert inserts or, when the endpoint already exists, overwrites owner, keys and
	// user agent and reactivates the row. Runs SupersedeDuplicates in the same transaction.
	Upsert(ctx context.Context, req model.UpsertRequest) (*model.UpsertResult, error)
	// Deactivate marks one subscription inactive. Unknown or already inactive ids are a no-op.
	Deactivate(ctx context.Context, id string) error
	// DeactivateMany marks several subscriptions inactive in one transaction.
	DeactivateMany(ctx context.Context, ids []string) (int64, error)
	// ListActive returns the user's active subscriptions in no particular order.
	ListActive(ctx context.Context, userID string) ([]model.Subscription, error)
	// SupersedeDuplicates deactivates every row sharing endpoint except exceptID.
	SupersedeDuplicates(ctx context.Context, endpoint, exceptID string) (int64, error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	GetByEndpoint(ctx context.Context, endpoint string) (*model.Subscription, error)
}

type SettingsRepository interface {
	// GetVAPID returns the stored VAPID identity, or nil when none was saved.
	GetVAPID(ctx context.Context) (*model.VAPIDKeys, error)
	// SaveVAPID replaces the stored VAPID identity.
	SaveVAPID(ctx context.Context, keys model.VAPIDKeys) error
}
