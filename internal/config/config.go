package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	LedgerRPC = "rpc"
	LedgerTx  = "tx"
)

type Config struct {
	ServerAddr  string
	DatabaseURL string
	AppURL      string
	WebDir      string
	CORSOrigin  string

	GeminiAPIKey string
	GeminiModel  string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePlusPriceID   string

	SupabaseJWTSecret string
	SupabaseJWKSURL   string
	SessionCookieName string

	StorageBucket          string
	StoragePublicURLPrefix string

	UsageLedger         string
	DemoFallbackEnabled bool
	MaxAudioBytes       int64

	RedisURL           string
	RateLimitPerMinute int

	LogLevel string
	LogStyle string
}

// Load reads the process environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		WebDir:      getEnv("WEB_DIR", ""),
		CORSOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePlusPriceID:   getEnv("STRIPE_PLUS_PRICE_ID", ""),

		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseJWKSURL:   getEnv("SUPABASE_JWKS_URL", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "sb-access-token"),

		StorageBucket:          getEnv("STORAGE_BUCKET", "audio-files"),
		StoragePublicURLPrefix: getEnv("STORAGE_PUBLIC_URL_PREFIX", ""),

		UsageLedger:         getEnv("USAGE_LEDGER", LedgerRPC),
		DemoFallbackEnabled: getEnvBool("DEMO_FALLBACK_ENABLED", true),
		MaxAudioBytes:       int64(getEnvInt("MAX_AUDIO_BYTES", 20<<20)),

		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogStyle: getEnv("LOG_STYLE", "json"),
	}
}

// Validate reports every required setting that is missing in one error so
// a misconfigured deployment fails at start instead of on first use.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("DATABASE_URL", c.DatabaseURL)
	require("GEMINI_API_KEY", c.GeminiAPIKey)
	require("STRIPE_SECRET_KEY", c.StripeSecretKey)
	require("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	require("STORAGE_BUCKET", c.StorageBucket)
	if c.SupabaseJWTSecret == "" && c.SupabaseJWKSURL == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET or SUPABASE_JWKS_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.UsageLedger != LedgerRPC && c.UsageLedger != LedgerTx {
		return fmt.Errorf("invalid USAGE_LEDGER %q: want %q or %q", c.UsageLedger, LedgerRPC, LedgerTx)
	}
	if c.MaxAudioBytes <= 0 {
		return fmt.Errorf("invalid MAX_AUDIO_BYTES %d", c.MaxAudioBytes)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
