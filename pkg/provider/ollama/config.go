package ollama

import "time"

// Config holds configuration for the Ollama provider adapter.
type Config struct {
	// BaseURL is the Ollama server URL. Defaults to the standard local
	// listener.
	BaseURL string

	// Timeout for individual HTTP requests. Defaults to 60s; local
	// vision models can be slow on first load.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: 60 * time.Second,
	}
}
