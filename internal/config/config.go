package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`

	PreferIPv4 bool `env:"PREFER_IPV4" envDefault:"true"`

	WebAddr         string `env:"WEB_ADDR" envDefault:"127.0.0.1:8080"`
	CredentialsPath string `env:"CREDENTIALS_PATH" envDefault:"ppdb.db"`

	MaxConcurrent     int `env:"MAX_CONCURRENT" envDefault:"4"`
	SessionTTLMinutes int `env:"SESSION_TTL_MINUTES" envDefault:"120"`
	HTTPTimeoutSecs   int `env:"HTTP_TIMEOUT_SECONDS" envDefault:"0"`

	GeminiBaseURL    string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `env:"GEMINI_API_VERSION" envDefault:"v1beta"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-image"`
}

// Load parses the environment. Call godotenv.Load first to pick up a .env
// file.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize(), nil
}

// LoadBot is Load plus the checks the Telegram front end needs.
func LoadBot() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func (c Config) normalize() Config {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.GeminiBaseURL = strings.TrimSpace(c.GeminiBaseURL)
	c.GeminiAPIVersion = strings.TrimSpace(c.GeminiAPIVersion)

	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.SessionTTLMinutes < 1 {
		c.SessionTTLMinutes = 120
	}
	if c.HTTPTimeoutSecs < 0 {
		c.HTTPTimeoutSecs = 0
	}
	return c
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger: JSON unless LOG_FORMAT=text.
func NewLogger(c Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
