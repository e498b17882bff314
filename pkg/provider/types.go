package provider

import (
	"encoding/json"
)

// Capabilities declares which image input modes a backend supports.
// Used by the orchestrator to validate and expand the fallback plan
// at construction time.
type Capabilities struct {
	// URLInput indicates the backend can fetch an image by public URL.
	URLInput bool

	// InlineInput indicates the backend accepts inline image bytes
	// (base64 in the request body).
	InlineInput bool

	// MaxInlineBytes is the largest inline payload the backend accepts
	// (0 = no declared limit).
	MaxInlineBytes int
}

// Request is the backend-facing request. It contains only the information
// the adapter needs: which model to ask, what to ask, and the image.
type Request struct {
	// Model is the backend model identifier (e.g., "gemini-2.0-flash").
	Model string

	// Prompt is the instruction sent alongside the image.
	Prompt string

	// Image references the photo, by URL or by value. Exactly one of
	// URL and Data is set, per the target's input mode.
	Image ImageRef
}

// ImageRef carries an image either by reference (URL) or by value (Data).
type ImageRef struct {
	URL  string
	Data []byte
	MIME string
}

// Inline reports whether the image is carried by value.
func (r ImageRef) Inline() bool {
	return len(r.Data) > 0
}

// Schema tags the wire format of a provider response body. The normalizer
// switches on this tag instead of probing field presence.
type Schema string

const (
	// SchemaGemini is the generateContent shape: candidates -> content.parts -> text.
	SchemaGemini Schema = "gemini"

	// SchemaResponses is the OpenAI Responses shape: output_text, or
	// output[] items with content[] of type "output_text".
	SchemaResponses Schema = "responses"

	// SchemaChat is the Chat Completions shape: choices[].message.content.
	SchemaChat Schema = "chat"

	// SchemaMessages is the Anthropic Messages shape: content[] of type "text".
	SchemaMessages Schema = "messages"

	// SchemaGenerate is the Ollama generate shape: a top-level response field.
	SchemaGenerate Schema = "generate"

	// SchemaText marks a body that is a bare JSON string or raw text.
	SchemaText Schema = "text"
)

// Envelope is a raw provider response tagged with its schema. The body is
// kept opaque here; it is consumed exactly once by the normalizer and never
// retained afterwards.
type Envelope struct {
	Schema Schema
	Model  string
	Body   json.RawMessage
}
