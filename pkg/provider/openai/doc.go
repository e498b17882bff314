// Package openai implements the Provider interface for the OpenAI
// Responses API. Images are passed as input_image parts, either by public
// URL or as a base64 data URL for inline bytes, alongside an input_text
// prompt part. The raw Responses payload is returned for the normalizer
// to unpack (output_text first, then output items).
package openai
