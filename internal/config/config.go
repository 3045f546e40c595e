package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env      string `toml:"env"`
	Port     string `toml:"port"`
	AppURL   string `toml:"app_url"`
	LogLevel string `toml:"log_level"`
	// LogFormat is "json" or "text"
	LogFormat string `toml:"log_format"`

	DatabaseURL string `toml:"database_url"`
	RedisURL    string `toml:"redis_url"`

	SessionSecret string `toml:"session_secret"`
	EncryptionKey string `toml:"encryption_key"`

	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
	GoogleCallbackURL  string `toml:"google_callback_url"`

	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUsername string `toml:"smtp_username"`
	SMTPPassword string `toml:"smtp_password"`
	EmailFrom    string `toml:"email_from"`
	EmailStub    bool   `toml:"email_stub"`

	CalendarAPIURL        string `toml:"calendar_api_url"`
	CalendarAPIKey        string `toml:"calendar_api_key"`
	CalendarClientID      string `toml:"calendar_client_id"`
	CalendarCallbackURL   string `toml:"calendar_callback_url"`
	CalendarWebhookSecret string `toml:"calendar_webhook_secret"`
	CalendarStub          bool   `toml:"calendar_stub"`

	NotificationTimezone  string        `toml:"notification_timezone"`
	DeadlineCheckSchedule string        `toml:"deadline_check_schedule"`
	WeeklyDigestSchedule  string        `toml:"weekly_digest_schedule"`
	EnableScheduler       bool          `toml:"enable_scheduler"`
	SideEffectTimeout     time.Duration `toml:"-"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to read .env file: %v", err)
	}

	env := getEnvWithDefault("ENV", "development")

	cfg := &Config{
		Env:       env,
		Port:      getEnvWithDefault("PORT", "8080"),
		AppURL:    getEnvWithDefault("APP_URL", "http://localhost:8080"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnvWithDefault("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    getEnvWithDefault("EMAIL_FROM", "Ascend <notifications@ascend.local>"),
		EmailStub:    getEnvBool("EMAIL_STUB", env != "production"),

		CalendarAPIURL:        getEnvWithDefault("CALENDAR_API_URL", "https://api.us.nylas.com"),
		CalendarAPIKey:        os.Getenv("CALENDAR_API_KEY"),
		CalendarClientID:      os.Getenv("CALENDAR_CLIENT_ID"),
		CalendarCallbackURL:   getEnvWithDefault("CALENDAR_CALLBACK_URL", "http://localhost:8080/api/calendar/callback"),
		CalendarWebhookSecret: os.Getenv("CALENDAR_WEBHOOK_SECRET"),
		CalendarStub:          getEnvBool("CALENDAR_STUB", env != "production"),

		NotificationTimezone:  getEnvWithDefault("NOTIFICATION_TIMEZONE", "America/Los_Angeles"),
		DeadlineCheckSchedule: getEnvWithDefault("DEADLINE_CHECK_SCHEDULE", "0 9 * * *"),
		WeeklyDigestSchedule:  getEnvWithDefault("WEEKLY_DIGEST_SCHEDULE", "0 8 * * 0"),
		EnableScheduler:       getEnvBool("ENABLE_SCHEDULER", env == "production"),
		SideEffectTimeout:     getEnvDuration("SIDE_EFFECT_TIMEOUT", 30*time.Second),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	return cfg
}

// LoadFile overlays values from a TOML file on top of the environment
// configuration. Keys missing from the file keep their env value.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
