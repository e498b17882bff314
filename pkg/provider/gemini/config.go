package gemini

import "time"

// Config holds configuration for the Gemini provider adapter.
type Config struct {
	// BaseURL is the Generative Language API root. Defaults to the
	// public Google endpoint; override for proxies and tests.
	BaseURL string

	// APIKey is sent in the x-goog-api-key header. Required.
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
