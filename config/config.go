package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Public base URL used in post-payment redirects
	PublicBaseURL string

	// Database configuration
	DatabasePath string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Viva Wallet configuration
	VivaConfig VivaConfig

	// Payment status cache
	PaymentStatusTTL time.Duration

	// Monitoring
	EnableMetrics bool
}

type VivaConfig struct {
	APIURL       string
	AccountsURL  string
	CheckoutURL  string
	ClientID     string
	ClientSecret string
	SourceCode   string

	// VerificationKey is echoed back on webhook GET verification.
	VerificationKey string

	// Optional basic auth on webhook deliveries. The secret is stored as a
	// bcrypt hash.
	WebhookUsername   string
	WebhookSecretHash string
}

func LoadConfig() *Config {
	// Missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:          getEnv("PORT", "8090"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8090"),

		// Database
		DatabasePath: getEnv("DATABASE_PATH", "data/registrations.db"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Viva Wallet (demo endpoints by default)
		VivaConfig: VivaConfig{
			APIURL:            getEnv("VIVA_API_URL", "https://demo-api.vivapayments.com"),
			AccountsURL:       getEnv("VIVA_ACCOUNTS_URL", "https://demo-accounts.vivapayments.com"),
			CheckoutURL:       getEnv("VIVA_CHECKOUT_URL", "https://demo.vivapayments.com"),
			ClientID:          getEnv("VIVA_CLIENT_ID", ""),
			ClientSecret:      getEnv("VIVA_CLIENT_SECRET", ""),
			SourceCode:        getEnv("VIVA_SOURCE_CODE", ""),
			VerificationKey:   getEnv("VIVA_VERIFICATION_KEY", ""),
			WebhookUsername:   getEnv("VIVA_WEBHOOK_USERNAME", ""),
			WebhookSecretHash: getEnv("VIVA_WEBHOOK_SECRET_HASH", ""),
		},

		// Cache
		PaymentStatusTTL: getEnvAsDuration("PAYMENT_STATUS_TTL", "15m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
