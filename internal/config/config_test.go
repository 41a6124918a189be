package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PUSH_CONCURRENCY", "")
	t.Setenv("PUSH_SEND_TIMEOUT", "")
	t.Setenv("PUSH_TTL", "")
	t.Setenv("PUSH_ICON_PATH", "")
	t.Setenv("PUSH_BADGE_PATH", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PUSH_RATE_LIMIT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 4, cfg.PushConcurrency)
	assert.Equal(t, 10*time.Second, cfg.PushSendTimeout)
	assert.Equal(t, 24*time.Hour, cfg.PushTTL)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, cfg.IconPath, cfg.BadgePath)
	assert.Zero(t, cfg.PushRateLimit)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PUSH_SEND_TIMEOUT", "3")
	t.Setenv("PUSH_TTL", "90m")
	t.Setenv("PUSH_CONCURRENCY", "-1")
	t.Setenv("PUBLIC_BASE_URL", "https://erp.example.com/")
	t.Setenv("VAPID_EMAIL", "ops@example.com")
	t.Setenv("PUSH_RATE_LIMIT", "25.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.PushSendTimeout)
	assert.Equal(t, 90*time.Minute, cfg.PushTTL)
	assert.Equal(t, 4, cfg.PushConcurrency, "non-positive values fall back to the default")
	assert.Equal(t, "https://erp.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "ops@example.com", cfg.VAPIDEmail)
	assert.Equal(t, 25.5, cfg.PushRateLimit)
}

func TestConfig_AssetURL(t *testing.T) {
	cfg := &Config{PublicBaseURL: "https://erp.example.com"}

	assert.Equal(t, "https://erp.example.com/assets/icon.png", cfg.AssetURL("/assets/icon.png"))
	assert.Equal(t, "https://erp.example.com/assets/icon.png", cfg.AssetURL("assets/icon.png"))
	assert.Equal(t, "https://cdn.example.com/i.png", cfg.AssetURL("https://cdn.example.com/i.png"))
}
