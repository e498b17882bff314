// Package anthropic implements the Provider interface for the Anthropic
// Messages API. Images are passed as content blocks with a base64 source
// for inline bytes or a url source for hosted images, followed by a text
// block with the prompt. The raw Messages payload is returned for the
// normalizer to unpack (content blocks of type "text").
package anthropic
