package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions (signed JWT cookie; the same secret keys the native
	// auth bootstrap tokens)
	SessionSecret string
	SessionTTL    time.Duration

	// Lightward AI upstream
	LightwardAPIURL    string
	AITimeout          time.Duration
	IntegrationTimeout time.Duration

	// Stripe. Price IDs are tier→price, injected into the billing
	// service at startup rather than living in a global registry.
	StripeAPIKey   string
	StripePriceIDs map[string]string

	// Public base URL for checkout redirect targets
	AppBaseURL string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	// Sessions ride a credentialed cookie, and credentialed CORS cannot
	// use a wildcard origin, so the default origin list is the app's own
	// base URL rather than "*".
	appBaseURL := getEnv("APP_BASE_URL", "http://localhost:8080")

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "yours_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    parseDuration(getEnv("SESSION_TTL", "720h"), 720*time.Hour),

		LightwardAPIURL:    getEnv("LIGHTWARD_AI_API_URL", ""),
		AITimeout:          parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),
		IntegrationTimeout: parseDuration(getEnv("INTEGRATION_TIMEOUT", "120s"), 120*time.Second),

		StripeAPIKey:   getEnv("STRIPE_API_KEY", ""),
		StripePriceIDs: parsePriceIDs(getEnv("STRIPE_PRICE_IDS", "")),

		AppBaseURL: appBaseURL,

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", appBaseURL),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// parsePriceIDs reads "tier:price_id,tier:price_id".
func parsePriceIDs(s string) map[string]string {
	prices := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		tier, price, found := strings.Cut(strings.TrimSpace(pair), ":")
		if found && tier != "" && price != "" {
			prices[tier] = price
		}
	}
	return prices
}
