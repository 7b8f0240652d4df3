// Package provider adapts the Anthropic Messages API to the runner's
// Completer interface.
package provider

import (
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = anthropic.ModelClaude3_7SonnetLatest
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultMaxTokens = 1024
	APIVersion       = "2023-06-01"
)

// ClientConfig holds the endpoint settings for NewAnthropicClient.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
}

// NewAnthropicClient returns a client for cfg. Empty fields fall back to the
// SDK's environment defaults (ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL).
func NewAnthropicClient(cfg ClientConfig, extra ...option.RequestOption) *anthropic.Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	opts = append(opts, extra...)
	c := anthropic.NewClient(opts...)
	return &c
}
