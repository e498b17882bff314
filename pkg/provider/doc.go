// Package provider defines the protocol-agnostic interface for vision-capable
// inference backends. Each adapter implementation (gemini, openai, anthropic,
// ollama) handles its own backend protocol internally and returns the raw
// response payload tagged with its schema (Envelope), keeping backend protocol
// details invisible to the recognition pipeline. Text extraction from an
// Envelope is the normalizer's job, not the adapter's.
package provider
