// Package web runs the bot's HTTP sidecar server.
//
// It exposes a health endpoint, Prometheus metrics, and the /i/{token}
// route that serves self-hosted images to vision providers when the
// "selfserve" image host backend is enabled.
package web
