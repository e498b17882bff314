package openai

import "time"

// Config holds configuration for the OpenAI provider adapter.
type Config struct {
	// BaseURL is the API root. Defaults to the public OpenAI endpoint;
	// override for proxies, Azure-style gateways and tests.
	BaseURL string

	// APIKey is sent as a Bearer token. Required.
	APIKey string

	// Timeout for individual HTTP requests. Defaults to 30s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL: defaultBaseURL,
		APIKey:  apiKey,
		Timeout: 30 * time.Second,
	}
}
