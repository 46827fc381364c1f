package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// MinterHolder is the only caller allowed to create assets.
	MinterHolder string

	// NetworkSecret authenticates the verification network's callback.
	NetworkSecret string

	// MonetizationThreshold is the stream count that unlocks revenue.
	MonetizationThreshold uint64

	// CollaborateCooldown gates closing the collaboration window.
	CollaborateCooldown time.Duration

	// PendingTTL bounds outstanding verification requests; zero means
	// requests never expire.
	PendingTTL time.Duration

	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                  envOr("SPYRAL_ADDR", ":8080"),
		JWTSigningKey:         envOr("SPYRAL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		MinterHolder:          os.Getenv("SPYRAL_MINTER"),
		NetworkSecret:         os.Getenv("SPYRAL_NETWORK_SECRET"),
		MonetizationThreshold: envUint("SPYRAL_MONETIZATION_THRESHOLD", 1000),
		CollaborateCooldown:   envDuration("SPYRAL_COLLABORATE_COOLDOWN", 24*time.Hour),
		PendingTTL:            envDuration("SPYRAL_PENDING_TTL", 0),
		PostgresDSN:           os.Getenv("SPYRAL_POSTGRES_DSN"),
		RedisURL:              os.Getenv("SPYRAL_REDIS_URL"),
		KafkaTopic:            envOr("SPYRAL_KAFKA_TOPIC", "spyral.asset-events"),
	}
	if brokers := os.Getenv("SPYRAL_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
