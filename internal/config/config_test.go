package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DEADLINE_CHECK_SCHEDULE", "")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "")
	t.Setenv("EMAIL_STUB", "")
	t.Setenv("ENABLE_SCHEDULER", "")
	t.Setenv("PORT", "")

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0 9 * * *", cfg.DeadlineCheckSchedule)
	assert.Equal(t, "0 8 * * 0", cfg.WeeklyDigestSchedule)
	assert.Equal(t, "America/Los_Angeles", cfg.NotificationTimezone)
	assert.Equal(t, 30*time.Second, cfg.SideEffectTimeout)
	assert.True(t, cfg.EmailStub)
	assert.False(t, cfg.EnableScheduler)
	assert.NotEmpty(t, cfg.SessionSecret)
}

func TestLoad_ProductionFlags(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("EMAIL_STUB", "")
	t.Setenv("ENABLE_SCHEDULER", "")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.EmailStub)
	assert.True(t, cfg.EnableScheduler)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 30*time.Second, cfg.SideEffectTimeout)
}

func TestLoadFile_OverlaysTOML(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_URL", "redis://env:6379/0")

	path := filepath.Join(t.TempDir(), "ascend.toml")
	content := "port = \"7070\"\nweekly_digest_schedule = \"0 7 * * 1\"\nemail_stub = false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "0 7 * * 1", cfg.WeeklyDigestSchedule)
	assert.False(t, cfg.EmailStub)
	assert.Equal(t, "redis://env:6379/0", cfg.RedisURL)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
