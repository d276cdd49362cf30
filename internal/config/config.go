// Package config loads LexiScan settings from the environment and builds the
// process logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/lexiscan/internal/analysis"
	"github.com/dshills/lexiscan/internal/llm"
	"github.com/dshills/lexiscan/internal/profile"
	"github.com/dshills/lexiscan/internal/schema"
	"github.com/dshills/lexiscan/internal/session"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Config holds all application configuration.
type Config struct {
	Provider      string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	MaxInputChars int

	Concurrency       int
	Mode              schema.Mode
	Profile           string
	FallbackThreshold int
	PrefixLen         int
	MinTextChars      int

	SessionSize   int
	SessionTTL    time.Duration
	HistoryWindow int

	Addr      string
	LogLevel  string
	LogFormat string
	// DevMode logs full prompts. It grants nothing.
	DevMode bool
}

// Default returns the built-in configuration.
func Default() *Config {
	lo := llm.DefaultOptions()
	ao := analysis.DefaultOptions()
	return &Config{
		Provider:          lo.Provider,
		MaxTokens:         lo.MaxTokens,
		Temperature:       lo.Temperature,
		Timeout:           lo.Timeout,
		MaxInputChars:     lo.MaxInputChars,
		Concurrency:       ao.Concurrency,
		Profile:           "general",
		FallbackThreshold: ao.FallbackThreshold,
		PrefixLen:         ao.PrefixLen,
		MinTextChars:      ao.MinTextChars,
		SessionSize:       session.DefaultSize,
		SessionTTL:        session.DefaultTTL,
		HistoryWindow:     ao.HistoryWindow,
		Addr:              ":8000",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// FromEnv overlays LEXISCAN_* environment variables on Default. Unparsable
// values fall back to the default.
func FromEnv() *Config {
	d := Default()
	return &Config{
		Provider:          getEnv("LEXISCAN_PROVIDER", d.Provider),
		Model:             getEnv("LEXISCAN_MODEL", d.Model),
		MaxTokens:         getEnvAsInt("LEXISCAN_MAX_TOKENS", d.MaxTokens),
		Temperature:       getEnvAsFloat("LEXISCAN_TEMPERATURE", d.Temperature),
		Timeout:           getEnvAsDuration("LEXISCAN_TIMEOUT", d.Timeout),
		MaxInputChars:     getEnvAsInt("LEXISCAN_MAX_INPUT_CHARS", d.MaxInputChars),
		Concurrency:       getEnvAsInt("LEXISCAN_CONCURRENCY", d.Concurrency),
		Mode:              schema.Mode(getEnv("LEXISCAN_MODE", string(d.Mode))),
		Profile:           getEnv("LEXISCAN_PROFILE", d.Profile),
		FallbackThreshold: getEnvAsInt("LEXISCAN_FALLBACK_THRESHOLD", d.FallbackThreshold),
		PrefixLen:         getEnvAsInt("LEXISCAN_PREFIX_LEN", d.PrefixLen),
		MinTextChars:      getEnvAsInt("LEXISCAN_MIN_TEXT_CHARS", d.MinTextChars),
		SessionSize:       getEnvAsInt("LEXISCAN_SESSION_SIZE", d.SessionSize),
		SessionTTL:        getEnvAsDuration("LEXISCAN_SESSION_TTL", d.SessionTTL),
		HistoryWindow:     getEnvAsInt("LEXISCAN_HISTORY_WINDOW", d.HistoryWindow),
		Addr:              getEnv("LEXISCAN_ADDR", d.Addr),
		LogLevel:          getEnv("LEXISCAN_LOG_LEVEL", d.LogLevel),
		LogFormat:         getEnv("LEXISCAN_LOG_FORMAT", d.LogFormat),
		DevMode:           getEnvAsBool("LEXISCAN_DEV_MODE", d.DevMode),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic", "google", "vertex":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Mode != "" && c.Mode != schema.ModeDocument && c.Mode != schema.ModeClause {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if _, err := profile.Load(c.Profile); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0,2]", ErrInvalidConfig, c.Temperature)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("%w: max input chars must be positive", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.PrefixLen <= 0 || c.FallbackThreshold < c.PrefixLen {
		return fmt.Errorf("%w: need 0 < prefix len <= fallback threshold", ErrInvalidConfig)
	}
	if c.SessionSize <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("%w: session size and ttl must be positive", ErrInvalidConfig)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("%w: history window must not be negative", ErrInvalidConfig)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log format must be text or json", ErrInvalidConfig)
	}
	return nil
}

// OracleOptions maps the configuration onto llm.Options.
func (c *Config) OracleOptions() llm.Options {
	return llm.Options{
		Provider:      c.Provider,
		Model:         c.Model,
		MaxTokens:     c.MaxTokens,
		Temperature:   c.Temperature,
		Timeout:       c.Timeout,
		MaxInputChars: c.MaxInputChars,
		Debug:         c.DevMode,
	}
}

// AnalysisOptions maps the configuration onto analysis.Options.
func (c *Config) AnalysisOptions(version string) analysis.Options {
	return analysis.Options{
		Concurrency:       c.Concurrency,
		HistoryWindow:     c.HistoryWindow,
		FallbackThreshold: c.FallbackThreshold,
		PrefixLen:         c.PrefixLen,
		MinTextChars:      c.MinTextChars,
		Version:           version,
	}
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if c.DevMode {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}
