package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseURL string

	StripeAPIKey string

	PlatformFeeBPS       int64
	PlatformFeeFlatCents int64

	RedisAddr      string
	IdempotencyTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	GatewayTimeout time.Duration

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "studiobook.db")
	v.SetDefault("PLATFORM_FEE_BPS", 500)
	v.SetDefault("PLATFORM_FEE_FLAT_CENTS", 0)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("KAFKA_TOPIC", "payment-events")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		StripeAPIKey:         v.GetString("STRIPE_API_KEY"),
		PlatformFeeBPS:       v.GetInt64("PLATFORM_FEE_BPS"),
		PlatformFeeFlatCents: v.GetInt64("PLATFORM_FEE_FLAT_CENTS"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		IdempotencyTTL:       v.GetDuration("IDEMPOTENCY_TTL"),
		KafkaTopic:           v.GetString("KAFKA_TOPIC"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		GatewayTimeout:       v.GetDuration("GATEWAY_TIMEOUT"),
	}
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
