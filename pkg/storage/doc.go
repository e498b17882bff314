// Package storage defines the persistence surface of the bot: user
// preferences and the recognition audit trail, plus the sentinel errors
// shared by all backends.
//
// Backends (memory, sqlite, postgres) implement the Store interface
// defined here. The bot picks one at startup from configuration.
package storage
