// Package bot wires the Telegram transport: it consumes updates, routes
// commands and photos, runs recognition and replies in the sender's
// language.
//
// Each update is handled on its own goroutine behind a middleware chain
// (metrics, logging, panic recovery). At most one recognition is in
// flight per chat; a newer photo supersedes the active one when the bot
// is configured to allow that.
package bot
