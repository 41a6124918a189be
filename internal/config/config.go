package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	JWTSecret string

	RedisURL string

	// PublicBaseURL is prefixed to asset paths so icons resolve on the device.
	PublicBaseURL string
	IconPath      string
	BadgePath     string

	// VAPID identity used when the push_settings record does not exist.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDEmail      string

	PushConcurrency int
	PushSendTimeout time.Duration
	PushTTL         time.Duration
	// PushRateLimit caps outbound sends per second across a process. 0 disables it.
	PushRateLimit float64

	WorkerCount int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "require"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	iconPath := getEnvDefault("PUSH_ICON_PATH", "/assets/images/favicon.png")
	badgePath := getEnvDefault("PUSH_BADGE_PATH", iconPath)

	pushConcurrency, err := strconv.Atoi(os.Getenv("PUSH_CONCURRENCY"))
	if err != nil || pushConcurrency <= 0 {
		pushConcurrency = 4
	}

	pushRateLimit, err := strconv.ParseFloat(getEnvDefault("PUSH_RATE_LIMIT", "0"), 64)
	if err != nil || pushRateLimit < 0 {
		pushRateLimit = 0
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  sslMode,

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL: redisURL,

		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		IconPath:      iconPath,
		BadgePath:     badgePath,

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDEmail:      os.Getenv("VAPID_EMAIL"),

		PushConcurrency: pushConcurrency,
		PushSendTimeout: getDurationDefault("PUSH_SEND_TIMEOUT", 10*time.Second),
		PushTTL:         getDurationDefault("PUSH_TTL", 24*time.Hour),
		PushRateLimit:   pushRateLimit,

		WorkerCount: workerCount,
	}, nil
}

// AssetURL resolves a site-relative path against PublicBaseURL.
func (c *Config) AssetURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.PublicBaseURL + path
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDurationDefault accepts Go durations ("15s") or a bare number of seconds.
func getDurationDefault(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[Config] Invalid %s=%q, using %v", key, raw, fallback)
	return fallback
}
