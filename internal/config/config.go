package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Origins allowed to call the API from a browser.
	AllowedOrigins []string

	// Identity provider (token verification).
	IdentityBaseURL string
	IdentityAPIKey  string

	// Generative text service.
	AIBaseURL string
	AIModel   string
	AIAPIKey  string

	// Payment provider.
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceMonthly  string
	StripePriceYearly   string

	TrialDays int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig

	// Path of the areas catalog file (areas.yml).
	AreasConfigPath string
}

// RateLimitConfig configures the redis-backed limiter on AI endpoints.
// Disabled (allow-all) when RedisAddr is empty.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AIRate        float64
	AIBurst       int
}

var defaultAllowedOrigins = []string{
	"https://koubo-navi.bantex.jp",
	"https://makoban.github.io",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost:3000",
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "koubo-navi"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AllowedOrigins: parseList(getenv("ALLOWED_ORIGINS", "")),

		IdentityBaseURL: strings.TrimRight(getenv("IDENTITY_BASE_URL", ""), "/"),
		IdentityAPIKey:  strings.TrimSpace(getenv("IDENTITY_API_KEY", "")),

		AIBaseURL: strings.TrimRight(getenv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"), "/"),
		AIModel:   getenv("AI_MODEL", "gemini-2.0-flash"),
		AIAPIKey:  strings.TrimSpace(getenv("AI_API_KEY", "")),

		StripeSecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
		StripePriceMonthly:  strings.TrimSpace(getenv("STRIPE_PRICE_MONTHLY", "")),
		StripePriceYearly:   strings.TrimSpace(getenv("STRIPE_PRICE_YEARLY", "")),

		TrialDays: getenvInt("TRIAL_DAYS", 14),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "koubonavi"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RateLimit: RateLimitConfig{
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			AIRate:        getenvFloat("RATE_LIMIT_AI_RATE", 0.2),
			AIBurst:       getenvInt("RATE_LIMIT_AI_BURST", 3),
		},

		AreasConfigPath: getenv("AREAS_CONFIG_PATH", ""),
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaultAllowedOrigins
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
