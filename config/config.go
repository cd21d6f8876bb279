package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

var envLoaded bool

// Config holds every process setting. It is loaded once in main and
// passed explicitly to the components that need it; there is no package
// global.
type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	// Serverless store over its HTTP command protocol.
	KVRestURL   string `json:"kv_rest_url"`
	KVRestToken string `json:"-"`

	// Direct Redis connection, used when the HTTP store is not set.
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`

	// Shared secret the recurring trigger must present.
	CronSecret string `json:"-"`
	// Run the daily pass from an in-process ticker instead of an
	// external scheduler.
	CronInternal bool `json:"cron_internal"`

	OpenAIAPIKey     string `json:"-"`
	OpenAIModel      string `json:"openai_model"`
	OutreachLanguage string `json:"outreach_language"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"-"`
	FromEmail    string `json:"from_email"`
	FromName     string `json:"from_name"`

	SentryDSN string `json:"-"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

// Load reads the configuration from the environment. The trigger secret
// is required; store, generation and delivery settings may be absent and
// are checked by the components that use them.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		KVRestURL:   getEnv("KV_REST_URL", ""),
		KVRestToken: getEnv("KV_REST_TOKEN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		CronSecret:   getEnv("CRON_SECRET", ""),
		CronInternal: getEnv("CRON_INTERNAL", "") == "true",

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", ""),
		OutreachLanguage: getEnv("OUTREACH_LANGUAGE", "en"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", ""),
		FromName:     getEnv("FROM_NAME", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}
	if cfg.KVRestURL != "" && cfg.KVRestToken == "" {
		return nil, fmt.Errorf("KV_REST_TOKEN is required when KV_REST_URL is set")
	}

	logConfig(cfg)
	return cfg, nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func logConfig(cfg *Config) {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Server Port: %s", cfg.ServerPort)
	switch {
	case cfg.KVRestURL != "":
		log.Printf("Store: HTTP command protocol (%s)", cfg.KVRestURL)
	case cfg.RedisAddr != "":
		log.Printf("Store: redis (%s/%d)", cfg.RedisAddr, cfg.RedisDB)
	default:
		log.Printf("Store: not configured — scheduling and processing will be rejected")
	}
	log.Printf("Collaborators: generation(%t), delivery(%t)",
		cfg.OpenAIAPIKey != "",
		cfg.SMTPHost != "")
}
