package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dshills/lexiscan/internal/schema"
)

func TestDefault_Valid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Provider != "openai" || c.MaxInputChars != 20000 || c.HistoryWindow != 6 {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LEXISCAN_PROVIDER", "anthropic")
	t.Setenv("LEXISCAN_TIMEOUT", "15s")
	t.Setenv("LEXISCAN_CONCURRENCY", "8")
	t.Setenv("LEXISCAN_MODE", "clause")
	t.Setenv("LEXISCAN_TEMPERATURE", "0.3")
	t.Setenv("LEXISCAN_DEV_MODE", "true")
	t.Setenv("LEXISCAN_MAX_TOKENS", "not-a-number")

	c := FromEnv()
	if c.Provider != "anthropic" {
		t.Errorf("Provider = %q", c.Provider)
	}
	if c.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}
	if c.Concurrency != 8 {
		t.Errorf("Concurrency = %d", c.Concurrency)
	}
	if c.Mode != schema.ModeClause {
		t.Errorf("Mode = %q", c.Mode)
	}
	if c.Temperature != 0.3 {
		t.Errorf("Temperature = %v", c.Temperature)
	}
	if !c.DevMode {
		t.Error("DevMode should be set")
	}
	if c.MaxTokens != Default().MaxTokens {
		t.Errorf("unparsable value should keep default, got %d", c.MaxTokens)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider = "ollama" }},
		{"mode", func(c *Config) { c.Mode = "page" }},
		{"profile", func(c *Config) { c.Profile = "nope" }},
		{"max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"temperature", func(c *Config) { c.Temperature = 3 }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
		{"concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"prefix over threshold", func(c *Config) { c.PrefixLen = 100; c.FallbackThreshold = 60 }},
		{"session ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"history", func(c *Config) { c.HistoryWindow = -1 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOptionsMapping(t *testing.T) {
	c := Default()
	c.Model = "gpt-4o-mini"
	c.DevMode = true
	lo := c.OracleOptions()
	if lo.Model != "gpt-4o-mini" || !lo.Debug || lo.Timeout != c.Timeout {
		t.Errorf("OracleOptions = %+v", lo)
	}
	ao := c.AnalysisOptions("1.2.3")
	if ao.Version != "1.2.3" || ao.Concurrency != c.Concurrency || ao.PrefixLen != c.PrefixLen {
		t.Errorf("AnalysisOptions = %+v", ao)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.LogFormat = "json"
	c.NewLogger(&buf).Info("config.test", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"config.test"`) {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}

	buf.Reset()
	c = Default()
	c.LogLevel = "warn"
	log := c.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filtering wrong: %q", buf.String())
	}
}
