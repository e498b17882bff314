// Package ollama implements the Provider interface for a local Ollama
// server. Images are passed base64-encoded in the images array of an
// /api/generate request with streaming disabled. The raw generate payload
// is returned for the normalizer to unpack (top-level response field).
// Useful as a self-hosted last-resort target in the fallback plan.
package ollama
