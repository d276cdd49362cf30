// Package llm handles risk-oracle provider communication, prompt construction,
// and normalization of oracle responses into canonical findings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dshills/lexiscan/internal/schema"
)

// ErrOracleFailure wraps every provider, parse, or validation failure. Callers
// recover from it with a degraded result; it is never fatal to a request.
var ErrOracleFailure = errors.New("llm: oracle failure")

// Request is one completion request. Image, when set, is sent alongside User
// as an inline attachment of type ImageMIME. History holds earlier turns of a
// conversation, oldest first.
type Request struct {
	System      string
	User        string
	History     []schema.Turn
	Image       []byte
	ImageMIME   string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a bare JSON object where it supports it.
	JSON bool
}

// Provider is the interface for oracle backends.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewProvider is the factory for creating providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai", "":
		return newOpenAIProvider(model)
	case "anthropic":
		return newAnthropicProvider(model)
	case "google":
		return newGoogleProvider(model)
	case "vertex":
		return newVertexProvider(model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(providerName string) string {
	switch strings.ToLower(providerName) {
	case "anthropic":
		return "claude-sonnet-4-5"
	case "google", "vertex":
		return "gemini-2.5-pro"
	default:
		return "gpt-4o"
	}
}

// ValidationError records a single validation failure on an oracle response.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line (no closing fence required).
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that
// models sometimes wrap around JSON output. A lone opening fence (truncated
// response) is stripped too.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is
// not a valid JSON string escape character ("\/bfnrtu). Legal references such
// as "Art. L\212-1" occasionally come back with stray backslashes.
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// fixInvalidJSONEscapes replaces invalid JSON escape sequences in s with their
// correctly double-escaped equivalents.
func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// truncateRunes keeps at most n characters of s, cutting from the end. It
// reports whether anything was removed.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
