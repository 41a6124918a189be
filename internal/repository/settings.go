package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pushsvc/internal/model"
)

// settingsRowID is the id of the single push_settings record.
const settingsRowID = 1

type settingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetVAPID returns nil, nil when the settings record has never been saved.
func (r *settingsRepository) GetVAPID(ctx context.Context) (*model.VAPIDKeys, error) {
	query := r.db.Rebind(`
		SELECT vapid_public_key, vapid_private_key, vapid_email, updated_at
		FROM push_settings
		WHERE id = ?
	`)
	var keys model.VAPIDKeys
	err := r.db.GetContext(ctx, &keys, query, settingsRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vapid settings: %w", err)
	}
	return &keys, nil
}

// SaveVAPID creates or replaces the settings record.
func (r *settingsRepository) SaveVAPID(ctx context.Context, keys model.VAPIDKeys) error {
	query := r.db.Rebind(`
		INSERT INTO push_settings (id, vapid_public_key, vapid_private_key, vapid_email, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			vapid_public_key = EXCLUDED.vapid_public_key,
			vapid_private_key = EXCLUDED.vapid_private_key,
			vapid_email = EXCLUDED.vapid_email,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		settingsRowID, keys.PublicKey, keys.PrivateKey, keys.Subscriber(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save vapid settings: %w", err)
	}
	return nil
}
