package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for report snapshots.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CronConfig holds the schedules and retry policy of the background jobs.
// Schedules are read once at startup and cannot change while the process runs.
type CronConfig struct {
	Timezone             string
	DailyReportsSchedule string
	RetryReportsSchedule string
	MaxRetries           int
	RetryDelay           time.Duration
	Overlap              string
	Enabled              bool
}

// ReportingConfig holds the upstream reporting API and OAuth2 client settings.
type ReportingConfig struct {
	BaseURL          string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	ReportMaxAttempt int
	RequestTimeout   time.Duration
}

// DiscordConfig holds the webhook used for terminal job failures.
type DiscordConfig struct {
	WebhookURL  string
	Username    string
	Environment string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	LogLevel    string
	Timezone    string
	AdminAPIKey string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Cron        CronConfig
	Reporting   ReportingConfig
	Discord     DiscordConfig
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	return loadLocation(c.Timezone)
}

// Location resolves the scheduler timezone, falling back to UTC.
func (c CronConfig) Location() *time.Location {
	return loadLocation(c.Timezone)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8000"),
		Port:        getEnv("PORT", "8000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Cron: CronConfig{
			Timezone:             getEnv("CRON_TIMEZONE", "UTC"),
			DailyReportsSchedule: getEnv("DAILY_REPORTS_SCHEDULE", "0 1 * * *"),
			RetryReportsSchedule: getEnv("RETRY_REPORTS_SCHEDULE", "0 */4 * * *"),
			MaxRetries:           getEnvInt("CRON_MAX_RETRIES", 3),
			RetryDelay:           getEnvDuration("CRON_RETRY_DELAY", 5*time.Minute),
			Overlap:              strings.ToLower(getEnv("CRON_OVERLAP", "skip")),
			Enabled:              getEnvBool("CRON_ENABLED", true),
		},
		Reporting: ReportingConfig{
			BaseURL:          strings.TrimRight(getEnv("REPORTING_API_URL", "https://advertising-api-eu.amazon.com"), "/"),
			TokenURL:         getEnv("REPORTING_TOKEN_URL", "https://api.amazon.com/auth/o2/token"),
			ClientID:         getEnv("REPORTING_CLIENT_ID", ""),
			ClientSecret:     getEnv("REPORTING_CLIENT_SECRET", ""),
			ReportMaxAttempt: getEnvInt("REPORT_MAX_ATTEMPTS", 3),
			RequestTimeout:   getEnvDuration("REPORTING_TIMEOUT", 30*time.Second),
		},
		Discord: DiscordConfig{
			WebhookURL:  getEnv("DISCORD_ERROR_WEBHOOK_URL", ""),
			Username:    getEnv("DISCORD_USERNAME", "Error Bot"),
			Environment: getEnv("APP_ENV", "development"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
