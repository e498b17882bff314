// Package compat adapts any OpenAI-compatible Chat Completions endpoint
// as a vision provider. vLLM, LiteLLM, LM Studio and OpenRouter all
// speak this dialect, which makes it the catch-all for self-hosted
// vision models that ollama does not serve.
//
// Images travel as image_url content parts: a plain URL in url mode, a
// base64 data URL in inline mode. Replies carry the chat schema tag
// (choices[].message.content).
package compat
