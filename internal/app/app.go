// Package app wires configuration, storage and services into the objects the
// HTTP server, the stream worker and the CLI share.
package app

import (
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pushsvc/internal/config"
	"pushsvc/internal/metrics"
	"pushsvc/internal/model"
	"pushsvc/internal/repository"
	"pushsvc/internal/service"
)

type App struct {
	Config *config.Config

	Subscriptions repository.SubscriptionRepository
	Settings      repository.SettingsRepository

	Registry   *service.SubscriptionService
	Keys       service.KeyProvider
	Dispatcher *service.Dispatcher
	Trigger    *service.NotificationTrigger

	Metrics *metrics.Push
	// Gatherer backs GET /metrics.
	Gatherer *prometheus.Registry
}

// New builds the service graph on top of an open database.
func New(cfg *config.Config, db *sqlx.DB) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPush(reg)

	subRepo := repository.NewSubscriptionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	keys := service.NewSettingsKeyProvider(settingsRepo, model.VAPIDKeys{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Email:      cfg.VAPIDEmail,
	})

	dispatcher := service.NewDispatcher(
		subRepo,
		keys,
		service.NewWebPushSender(nil, cfg.PushTTL),
		m,
		service.DispatcherConfig{
			IconURL:     cfg.AssetURL(cfg.IconPath),
			BadgeURL:    cfg.AssetURL(cfg.BadgePath),
			Concurrency: cfg.PushConcurrency,
			SendTimeout: cfg.PushSendTimeout,
			RateLimit:   cfg.PushRateLimit,
		},
	)

	return &App{
		Config:        cfg,
		Subscriptions: subRepo,
		Settings:      settingsRepo,
		Registry:      service.NewSubscriptionService(subRepo),
		Keys:          keys,
		Dispatcher:    dispatcher,
		Trigger:       service.NewNotificationTrigger(dispatcher),
		Metrics:       m,
		Gatherer:      reg,
	}
}
