package provider

import (
	"context"
)

// Provider abstracts a vision-capable inference backend. The interface is
// protocol-agnostic: each adapter handles its own backend protocol (Gemini
// generateContent, OpenAI Responses, Anthropic Messages, Ollama generate)
// internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// The lifecycle is explicit: adapters are constructed once at process start,
// shared read-only across concurrent tasks, and closed at shutdown.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string

	// Capabilities returns what image input modes this provider supports.
	Capabilities() Capabilities

	// Identify sends one prompt-plus-image request to the backend and
	// returns the raw response tagged with its schema. It does not
	// interpret the response beyond HTTP-level error mapping.
	Identify(ctx context.Context, req *Request) (*Envelope, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
