package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CRON_RETRY_DELAY", "90s")
	t.Setenv("CRON_OVERLAP", "ALLOW")
	t.Setenv("REPORTING_API_URL", "https://reports.example.com/")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 90*time.Second, cfg.Cron.RetryDelay)
	assert.Equal(t, "allow", cfg.Cron.Overlap)
	assert.Equal(t, "https://reports.example.com", cfg.Reporting.BaseURL)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DAILY_REPORTS_SCHEDULE", "RETRY_REPORTS_SCHEDULE", "CRON_MAX_RETRIES",
		"CRON_RETRY_DELAY", "CRON_OVERLAP", "CRON_TIMEZONE", "DISCORD_USERNAME",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "0 1 * * *", cfg.Cron.DailyReportsSchedule)
	assert.Equal(t, "0 */4 * * *", cfg.Cron.RetryReportsSchedule)
	assert.Equal(t, 3, cfg.Cron.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Cron.RetryDelay)
	assert.Equal(t, "skip", cfg.Cron.Overlap)
	assert.Equal(t, time.UTC, cfg.Cron.Location())
	assert.Equal(t, "Error Bot", cfg.Discord.Username)
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())

	assert.Equal(t, time.UTC, CronConfig{}.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"
	def := time.Minute

	t.Setenv(key, "2m30s")
	assert.Equal(t, 150*time.Second, getEnvDuration(key, def))

	t.Setenv(key, "300")
	assert.Equal(t, 5*time.Minute, getEnvDuration(key, def))

	t.Setenv(key, "soon")
	assert.Equal(t, def, getEnvDuration(key, def))

	t.Setenv(key, "")
	assert.Equal(t, def, getEnvDuration(key, def))
}
