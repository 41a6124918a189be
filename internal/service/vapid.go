package service

import (
	"context"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"

	"pushsvc/internal/model"
	"pushsvc/internal/repository"
)

// KeyProvider supplies the VAPID identity at dispatch time.
type KeyProvider interface {
	VAPIDKeys(ctx context.Context) (model.VAPIDKeys, error)
}

// StaticKeys serves a fixed identity, typically from environment variables.
type StaticKeys model.VAPIDKeys

func (k StaticKeys) VAPIDKeys(ctx context.Context) (model.VAPIDKeys, error) {
	return model.VAPIDKeys(k), nil
}

// SettingsKeyProvider reads the push_settings record and falls back to the
// configured identity when no record was saved yet.
type SettingsKeyProvider struct {
	settingsRepo repository.SettingsRepository
	fallback     model.VAPIDKeys
}

func NewSettingsKeyProvider(settingsRepo repository.SettingsRepository, fallback model.VAPIDKeys) *SettingsKeyProvider {
	return &SettingsKeyProvider{settingsRepo: settingsRepo, fallback: fallback}
}

func (p *SettingsKeyProvider) VAPIDKeys(ctx context.Context) (model.VAPIDKeys, error) {
	keys, err := p.settingsRepo.GetVAPID(ctx)
	if err != nil {
		return model.VAPIDKeys{}, err
	}
	if keys == nil {
		return p.fallback, nil
	}
	return *keys, nil
}

// GenerateVAPIDKeys creates a new P-256 application server keypair and stores it
// together with the contact email.
func GenerateVAPIDKeys(ctx context.Context, settingsRepo repository.SettingsRepository, email string) (model.VAPIDKeys, error) {
	if email == "" {
		return model.VAPIDKeys{}, model.NewValidationError("contact email is required")
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return model.VAPIDKeys{}, fmt.Errorf("generate vapid keys: %w", err)
	}

	keys := model.VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey, Email: email}
	if err := settingsRepo.SaveVAPID(ctx, keys); err != nil {
		return model.VAPIDKeys{}, err
	}
	return keys, nil
}
