package compat

import "time"

// Config holds configuration for the Chat Completions provider adapter.
type Config struct {
	// BaseURL is the gateway root, e.g. "http://vllm:8000". Required;
	// there is no public default for a self-hosted endpoint.
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty. Many local
	// gateways accept unauthenticated requests.
	APIKey string

	// MaxTokens bounds the reply length. Defaults to 1024.
	MaxTokens int

	// Timeout for individual HTTP requests. Defaults to 60s; local
	// vision models can be slow on first load.
	Timeout time.Duration
}
