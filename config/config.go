// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

type Config struct {
	Port string `validate:"required,numeric"`

	// Upstream
	BaseURL      string        `validate:"required,url"`
	UserAgent    string        `validate:"required"`
	FetchTimeout time.Duration `validate:"gt=0"`
	FetchRetries int           `validate:"gte=0,lte=10"`
	FetchMode    string        `validate:"oneof=http browser"`

	// Browser pool, used when FetchMode is browser
	BrowserPoolMin int `validate:"gte=1"`
	BrowserPoolMax int `validate:"gtefield=BrowserPoolMin"`

	// Structure alerts; empty RedisAddr disables them
	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	AlertChannel  string `validate:"required"`

	LayoutFile string `validate:"omitempty,file"`

	LogLevel string `validate:"oneof=debug info warn error"`
	Debug    bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "5000"),

		BaseURL:      envOr("BASE_URL", "https://stockanalysis.com"),
		UserAgent:    envOr("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"),
		FetchTimeout: envDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchRetries: envInt("FETCH_RETRIES", 0),
		FetchMode:    strings.ToLower(envOr("FETCH_MODE", FetchModeHTTP)),

		BrowserPoolMin: envInt("BROWSER_POOL_MIN", 2),
		BrowserPoolMax: envInt("BROWSER_POOL_MAX", 8),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		AlertChannel:  envOr("ALERT_CHANNEL", "stockscraper:structure"),

		LayoutFile: os.Getenv("LAYOUT_FILE"),

		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),
		Debug:    envBool("DEBUG", false),
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// Validate checks field constraints and reports the first failure by its
// environment key.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check (value %v)", envKey(fe.Field()), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns a JSON logger writing to stderr at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
}

var envKeys = map[string]string{
	"Port":           "PORT",
	"BaseURL":        "BASE_URL",
	"UserAgent":      "USER_AGENT",
	"FetchTimeout":   "FETCH_TIMEOUT",
	"FetchRetries":   "FETCH_RETRIES",
	"FetchMode":      "FETCH_MODE",
	"BrowserPoolMin": "BROWSER_POOL_MIN",
	"BrowserPoolMax": "BROWSER_POOL_MAX",
	"RedisAddr":      "REDIS_ADDR",
	"RedisDB":        "REDIS_DB",
	"AlertChannel":   "ALERT_CHANNEL",
	"LayoutFile":     "LAYOUT_FILE",
	"LogLevel":       "LOG_LEVEL",
}

func envKey(field string) string {
	if k, ok := envKeys[field]; ok {
		return k
	}
	return field
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
