package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DAYPLAN_MAIL_HOST", "smtp.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dayplan.db", cfg.Database.DSN)
	assert.Equal(t, ":3001", cfg.HTTP.Addr)
	assert.Equal(t, 1, cfg.Scheduler.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.LivenessTimeout)
	assert.Equal(t, 2, cfg.Mail.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Mail.BaseDelay)
	assert.Equal(t, 15*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, 365, cfg.Recurrence.HorizonDays)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.UserTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DAYPLAN_DATABASE_DSN", "/tmp/plan.db")
	t.Setenv("DAYPLAN_HTTP_JWT_SECRET", "s3cret")
	t.Setenv("DAYPLAN_SCHEDULER_TIMEZONE", "Europe/Berlin")
	t.Setenv("DAYPLAN_MAIL_HOST", "smtp.example.com")
	t.Setenv("DAYPLAN_MAIL_BASE_DELAY", "250ms")
	t.Setenv("DAYPLAN_RECURRENCE_HORIZON_DAYS", "30")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/plan.db", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.HTTP.JWTSecret)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 250*time.Millisecond, cfg.Mail.BaseDelay)
	assert.Equal(t, 30, cfg.Recurrence.HorizonDays)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dayplan.yaml")
	content := `
database:
  dsn: file.db
mail:
  from: planner@example.com
  max_attempts: 3
  endpoints:
    - name: primary
      host: mx1.example.com
      port: 465
      security: implicit
scheduler:
  concurrency: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DAYPLAN_DATABASE_DSN", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Database.DSN, "environment wins over file")
	assert.Equal(t, 3, cfg.Mail.MaxAttempts)
	assert.Equal(t, 4, cfg.Scheduler.Concurrency)
	require.Len(t, cfg.MailEndpoints(), 1)
	assert.Equal(t, "mx1.example.com", cfg.MailEndpoints()[0].Host)
}

func TestLoadValidation(t *testing.T) {
	t.Run("requires mail when scheduler enabled", func(t *testing.T) {
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mail.host")
	})

	t.Run("scheduler disabled needs no mail", func(t *testing.T) {
		t.Setenv("DAYPLAN_SCHEDULER_DISABLED", "true")
		_, err := Load("")
		assert.NoError(t, err)
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		t.Setenv("DAYPLAN_MAIL_HOST", "smtp.example.com")
		t.Setenv("DAYPLAN_SCHEDULER_TIMEZONE", "Mars/Olympus")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateHTTP(t *testing.T) {
	t.Setenv("DAYPLAN_MAIL_HOST", "smtp.example.com")

	cfg, err := Load("")
	require.NoError(t, err, "commands without the API load without a secret")
	assert.ErrorContains(t, cfg.ValidateHTTP(), "http.jwt_secret")

	cfg.HTTP.JWTSecret = "   "
	assert.Error(t, cfg.ValidateHTTP())

	t.Setenv("DAYPLAN_HTTP_JWT_SECRET", "s3cret")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateHTTP())
}

func TestMailEndpointsFromHost(t *testing.T) {
	cfg := Config{Mail: MailConfig{Host: "smtp.example.com", Username: "u", Password: "p"}}

	eps := cfg.MailEndpoints()

	require.Len(t, eps, 2)
	assert.Equal(t, 465, eps[0].Port)
	assert.Equal(t, "implicit", eps[0].Security)
	assert.Equal(t, 587, eps[1].Port)
	assert.Equal(t, "starttls", eps[1].Security)
	assert.Equal(t, "u", eps[1].Username)
}
