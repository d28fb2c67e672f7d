package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string `mapstructure:"PORT"`
	DBURL      string `mapstructure:"DB_URL"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`
	AppURL     string `mapstructure:"APP_URL"`

	GoogleClientID         string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleFrontendRedirect string `mapstructure:"GOOGLE_FRONTEND_REDIRECT"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	SupabaseKey string `mapstructure:"SUPABASE_SERVICE_ROLE_KEY"`
	Bucket      string `mapstructure:"STORAGE_BUCKET"`

	// NotifyURLs are shoutrrr service URLs, comma separated in the environment.
	NotifyURLs    []string      `mapstructure:"NOTIFY_URLS"`
	NotifyTimeout time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	AdminEmail    string        `mapstructure:"ADMIN_EMAIL"`

	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	SlowQuery      time.Duration `mapstructure:"SLOW_QUERY"`
	TalentShare    float64       `mapstructure:"TALENT_SHARE"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts  int           `mapstructure:"OUTBOX_MAX_ATTEMPTS"`
	OutboxBaseBackoff  time.Duration `mapstructure:"OUTBOX_BASE_BACKOFF"`
	OutboxMaxBackoff   time.Duration `mapstructure:"OUTBOX_MAX_BACKOFF"`
}

// Current is the configuration loaded at startup.
var Current *Config

var defaults = map[string]any{
	"PORT":                      "8080",
	"DB_URL":                    "",
	"JWT_SECRET":                "",
	"CORS_ORIGIN":               "http://localhost:3000",
	"APP_URL":                   "http://localhost:3000",
	"GOOGLE_CLIENT_ID":          "",
	"GOOGLE_CLIENT_SECRET":      "",
	"GOOGLE_REDIRECT_URL":       "",
	"GOOGLE_FRONTEND_REDIRECT":  "",
	"STRIPE_SECRET_KEY":         "",
	"STRIPE_WEBHOOK_SECRET":     "",
	"SUPABASE_URL":              "",
	"SUPABASE_SERVICE_ROLE_KEY": "",
	"STORAGE_BUCKET":            "orders",
	"NOTIFY_URLS":               []string{},
	"NOTIFY_TIMEOUT":            10 * time.Second,
	"ADMIN_EMAIL":               "",
	"LOG_FORMAT":                "json",
	"LOG_LEVEL":                 "info",
	"SLOW_QUERY":                200 * time.Millisecond,
	"TALENT_SHARE":              0.4,
	"IDEMPOTENCY_TTL":           24 * time.Hour,
	"OUTBOX_POLL_INTERVAL":      2 * time.Second,
	"OUTBOX_BATCH_SIZE":         20,
	"OUTBOX_MAX_ATTEMPTS":       8,
	"OUTBOX_BASE_BACKOFF":       5 * time.Second,
	"OUTBOX_MAX_BACKOFF":        10 * time.Minute,
}

// Load reads .env (when present), an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.NotifyURLs = compact(cfg.NotifyURLs)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	Current = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DBURL == "" {
		missing = append(missing, "DB_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}
	if c.TalentShare < 0 || c.TalentShare > 1 {
		return fmt.Errorf("TALENT_SHARE must be between 0 and 1, got %v", c.TalentShare)
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
