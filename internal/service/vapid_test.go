package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushsvc/internal/model"
)

func TestSettingsKeyProvider(t *testing.T) {
	fallback := model.VAPIDKeys{PublicKey: "env-pub", PrivateKey: "env-priv", Email: "env@example.com"}

	t.Run("falls back without a record", func(t *testing.T) {
		p := NewSettingsKeyProvider(&mockSettingsRepository{}, fallback)
		keys, err := p.VAPIDKeys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fallback, keys)
	})

	t.Run("record wins", func(t *testing.T) {
		stored := model.VAPIDKeys{PublicKey: "db-pub", PrivateKey: "db-priv", Email: "db@example.com"}
		p := NewSettingsKeyProvider(&mockSettingsRepository{keys: &stored}, fallback)
		keys, err := p.VAPIDKeys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "db-pub", keys.PublicKey)
	})

	t.Run("store error", func(t *testing.T) {
		p := NewSettingsKeyProvider(&mockSettingsRepository{getErr: errors.New("down")}, fallback)
		_, err := p.VAPIDKeys(context.Background())
		assert.Error(t, err)
	})
}

func TestGenerateVAPIDKeys(t *testing.T) {
	repo := &mockSettingsRepository{}

	keys, err := GenerateVAPIDKeys(context.Background(), repo, "ops@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, keys.PublicKey)
	assert.NotEmpty(t, keys.PrivateKey)
	assert.NoError(t, keys.Validate())

	require.Len(t, repo.saved, 1)
	assert.Equal(t, keys.PublicKey, repo.saved[0].PublicKey)

	_, err = GenerateVAPIDKeys(context.Background(), repo, "")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Len(t, repo.saved, 1)
}
