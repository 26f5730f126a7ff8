// Package config loads DayPlan runtime settings.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"dayplan/internal/logging"
)

const (
	envPrefix         = "DAYPLAN_"
	maxConfigFileSize = 1024 * 1024
)

// Config keeps runtime settings for the service.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	HTTP       HTTPConfig       `koanf:"http"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Mail       MailConfig       `koanf:"mail"`
	Recurrence RecurrenceConfig `koanf:"recurrence"`
	Telegram   TelegramConfig   `koanf:"telegram"`
	Log        logging.Config   `koanf:"log"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	JWTSecret       string        `koanf:"jwt_secret"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type SchedulerConfig struct {
	Disabled        bool          `koanf:"disabled"`
	Timezone        string        `koanf:"timezone"`
	Concurrency     int           `koanf:"concurrency"`
	LivenessTimeout time.Duration `koanf:"liveness_timeout"`
	UserTimeout     time.Duration `koanf:"user_timeout"` // bounds one user's digest within a tick
}

type MailConfig struct {
	From        string         `koanf:"from"`
	Host        string         `koanf:"host"`
	Username    string         `koanf:"username"`
	Password    string         `koanf:"password"`
	Endpoints   []MailEndpoint `koanf:"endpoints"`
	MaxAttempts int            `koanf:"max_attempts"`
	BaseDelay   time.Duration  `koanf:"base_delay"`
	Timeout     time.Duration  `koanf:"timeout"`
}

// MailEndpoint is one SMTP submission configuration.
type MailEndpoint struct {
	Name     string `koanf:"name"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Security string `koanf:"security"` // implicit or starttls
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type RecurrenceConfig struct {
	HorizonDays int `koanf:"horizon_days"`
}

type TelegramConfig struct {
	Token string `koanf:"token"`
}

// Load reads an optional YAML file, then overrides it with DAYPLAN_* environment
// variables, then fills defaults and validates.
//
//	DAYPLAN_DATABASE_DSN          -> database.dsn
//	DAYPLAN_HTTP_JWT_SECRET       -> http.jwt_secret
//	DAYPLAN_SCHEDULER_TIMEZONE    -> scheduler.timezone
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envKey maps DAYPLAN_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "dayplan.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":3001"
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Scheduler.Concurrency == 0 {
		cfg.Scheduler.Concurrency = 1
	}
	if cfg.Scheduler.LivenessTimeout == 0 {
		cfg.Scheduler.LivenessTimeout = 3 * time.Second
	}
	if cfg.Scheduler.UserTimeout == 0 {
		cfg.Scheduler.UserTimeout = 30 * time.Second
	}
	if cfg.Mail.MaxAttempts == 0 {
		cfg.Mail.MaxAttempts = 2
	}
	if cfg.Mail.BaseDelay == 0 {
		cfg.Mail.BaseDelay = time.Second
	}
	if cfg.Mail.Timeout == 0 {
		cfg.Mail.Timeout = 15 * time.Second
	}
	if cfg.Recurrence.HorizonDays == 0 {
		cfg.Recurrence.HorizonDays = 365
	}
}

// Validate checks values that defaults cannot repair.
func (c Config) Validate() error {
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("scheduler.concurrency must be positive")
	}
	if c.Mail.MaxAttempts < 1 {
		return fmt.Errorf("mail.max_attempts must be positive")
	}
	if c.Recurrence.HorizonDays < 1 {
		return fmt.Errorf("recurrence.horizon_days must be positive")
	}
	for i, ep := range c.Mail.Endpoints {
		if ep.Host == "" || ep.Port <= 0 {
			return fmt.Errorf("mail.endpoints[%d]: host and port are required", i)
		}
		switch ep.Security {
		case "implicit", "starttls":
		default:
			return fmt.Errorf("mail.endpoints[%d]: security must be implicit or starttls", i)
		}
	}
	if !c.Scheduler.Disabled && len(c.MailEndpoints()) == 0 {
		return fmt.Errorf("mail.host or mail.endpoints is required while the scheduler is enabled")
	}
	return nil
}

// ValidateHTTP checks the settings only the API server needs.
func (c Config) ValidateHTTP() error {
	if strings.TrimSpace(c.HTTP.JWTSecret) == "" {
		return fmt.Errorf("http.jwt_secret is required to serve the API")
	}
	return nil
}

// MailEndpoints returns the configured SMTP endpoints in preference order.
// Without explicit endpoints, mail.host yields implicit TLS on 465 followed by
// STARTTLS on 587.
func (c Config) MailEndpoints() []MailEndpoint {
	if len(c.Mail.Endpoints) > 0 {
		return c.Mail.Endpoints
	}
	if c.Mail.Host == "" {
		return nil
	}
	return []MailEndpoint{
		{Name: "smtps", Host: c.Mail.Host, Port: 465, Security: "implicit", Username: c.Mail.Username, Password: c.Mail.Password},
		{Name: "submission", Host: c.Mail.Host, Port: 587, Security: "starttls", Username: c.Mail.Username, Password: c.Mail.Password},
	}
}

// Location returns the server default zone for users without a time zone.
func (c Config) Location() *time.Location {
	if c.Scheduler.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
