package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PaymentChannel     string

	// QR signing
	QRSecret string

	// Scanner devices
	ScannerKeyHash   string // bcrypt hash of the provisioning API key
	ScannerJWTSecret string
	ScannerTokenTTL  time.Duration

	// Payments
	RequirePayment    bool
	PaymentSessionTTL time.Duration

	// Migrations
	MigrationBatchSize int

	// Rate limiting
	PurchaseRateLimit  int
	PurchaseRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// Missing .env is fine, env vars may come from the environment directly.
	_ = godotenv.Load()

	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PaymentChannel:     getEnv("PAYMENT_CHANNEL", "gateway-payment-notifications"),

		// QR signing
		QRSecret: getEnv("QR_SECRET", ""),

		// Scanner devices
		ScannerKeyHash:   getEnv("SCANNER_KEY_HASH", ""),
		ScannerJWTSecret: getEnv("SCANNER_JWT_SECRET", ""),
		ScannerTokenTTL:  getEnvAsDuration("SCANNER_TOKEN_TTL", "12h"),

		// Payments
		RequirePayment:    getEnvAsBool("REQUIRE_PAYMENT", false),
		PaymentSessionTTL: getEnvAsDuration("PAYMENT_SESSION_TTL", "10m"),

		// Migrations
		MigrationBatchSize: getEnvAsInt("MIGRATION_BATCH_SIZE", 400),

		// Rate limiting
		PurchaseRateLimit:  getEnvAsInt("PURCHASE_RATE_LIMIT", 10),
		PurchaseRateWindow: getEnvAsDuration("PURCHASE_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
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
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
