// Package gemini implements the Provider interface for the Google
// Generative Language API. It posts prompt-plus-image requests to the
// models/{model}:generateContent endpoint with the image carried as an
// inline_data part, and returns the raw candidates payload for the
// normalizer to unpack. URL image input is not supported by this API.
package gemini
