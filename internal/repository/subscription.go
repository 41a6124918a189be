package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pushsvc/internal/model"
)

const subscriptionColumns = `id, user_id, endpoint, p256dh_key, auth_key, user_agent, is_active, created_at, updated_at`

type subscriptionRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert relies on the UNIQUE(endpoint) constraint, so two concurrent
// registrations of one endpoint always end up on the same row.
func (r *subscriptionRepository) Upsert(ctx context.Context, req model.UpsertRequest) (*model.UpsertResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert subscription: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	proposedID := uuid.New().String()

	query := tx.Rebind(`
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, user_agent, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)
		ON CONFLICT (endpoint) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			p256dh_key = EXCLUDED.p256dh_key,
			auth_key = EXCLUDED.auth_key,
			user_agent = EXCLUDED.user_agent,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + subscriptionColumns)

	var sub model.Subscription
	err = tx.GetContext(ctx, &sub, query,
		proposedID, req.UserID, req.Endpoint, req.P256dhKey, req.AuthKey, req.UserAgent, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	if _, err := supersede(ctx, tx, sub.Endpoint, sub.ID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert subscription: %w", err)
	}

	return &model.UpsertResult{
		Subscription: &sub,
		Created:      sub.ID == proposedID,
	}, nil
}

// Deactivate marks one subscription inactive.
func (r *subscriptionRepository) Deactivate(ctx context.Context, id string) error {
	query := r.db.Rebind(`
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND is_active = TRUE
	`)
	_, err := r.db.ExecContext(ctx, query, r.now(), id)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return nil
}

// DeactivateMany marks the given subscriptions inactive in a single transaction
// and returns how many rows changed state.
func (r *subscriptionRepository) DeactivateMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = ?
		WHERE is_active = TRUE AND id IN (?)
	`, r.now(), ids)
	if err != nil {
		return 0, fmt.Errorf("build deactivate query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin deactivate subscriptions: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate subscriptions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit deactivate subscriptions: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// ListActive returns all active subscriptions for a user.
func (r *subscriptionRepository) ListActive(ctx context.Context, userID string) ([]model.Subscription, error) {
	query := r.db.Rebind(`
		SELECT ` + subscriptionColumns + `
		FROM push_subscriptions
		WHERE user_id = ? AND is_active = TRUE
	`)
	var subs []model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return subs, nil
}

// SupersedeDuplicates deactivates other rows registered for the same endpoint.
func (r *subscriptionRepository) SupersedeDuplicates(ctx context.Context, endpoint, exceptID string) (int64, error) {
	return supersede(ctx, r.db, endpoint, exceptID, r.now())
}

func supersede(ctx context.Context, ext sqlx.ExtContext, endpoint, exceptID string, now time.Time) (int64, error) {
	query := ext.Rebind(`
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = ?
		WHERE endpoint = ? AND id <> ? AND is_active = TRUE
	`)
	res, err := ext.ExecContext(ctx, query, now, endpoint, exceptID)
	if err != nil {
		return 0, fmt.Errorf("supersede duplicate subscriptions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetByID returns a subscription by id.
func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByEndpoint returns the subscription registered for endpoint.
func (r *subscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*model.Subscription, error) {
	return r.getOne(ctx, `WHERE endpoint = ?`, endpoint)
}

func (r *subscriptionRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.Subscription, error) {
	query := r.db.Rebind(`SELECT ` + subscriptionColumns + ` FROM push_subscriptions ` + where)
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}
