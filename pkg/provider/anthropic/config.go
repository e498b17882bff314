package anthropic

import "time"

// Config holds configuration for the Anthropic provider adapter.
type Config struct {
	// BaseURL is the API root. Defaults to the public Anthropic endpoint.
	BaseURL string

	// APIKey is sent in the x-api-key header. Required.
	APIKey string

	// MaxTokens bounds the reply length. Defaults to 1024, which is
	// generous for a short product name.
	MaxTokens int

	// Timeout for individual HTTP requests. Defaults to 30s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:   defaultBaseURL,
		APIKey:    apiKey,
		MaxTokens: 1024,
		Timeout:   30 * time.Second,
	}
}
