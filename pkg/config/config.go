// Package config provides unified configuration for the shopsnap bot.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SHOPSNAP_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the shopsnap bot.
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Storage     StorageConfig     `yaml:"storage"`
	ImageHost   ImageHostConfig   `yaml:"image_host"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// TelegramConfig holds bot API credentials and chat behavior settings.
type TelegramConfig struct {
	Token     string `yaml:"token"`      // required
	TokenFile string `yaml:"token_file"` // _file variant for token

	// AffiliateTag is appended to generated Amazon search links.
	// When empty, replies carry no shopping link.
	AffiliateTag string `yaml:"affiliate_tag"`

	// SupersedePending cancels a user's in-flight recognition when they
	// send a new photo (default: true). When false the new photo is
	// rejected until the previous one finishes.
	SupersedePending *bool `yaml:"supersede_pending"`

	// MaxPhotoBytes rejects photos whose smallest rendition still exceeds
	// this size, before any bytes are fetched (0 = 10 MiB).
	MaxPhotoBytes int `yaml:"max_photo_bytes"`
}

// ProvidersConfig holds credentials and endpoints for the vision backends.
// A provider with no key (or URL, for ollama) configured is left out of
// the registry and any plan entry naming it fails validation at startup.
type ProvidersConfig struct {
	Gemini    ProviderConfig `yaml:"gemini"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Ollama    ProviderConfig `yaml:"ollama"`

	// Compat is any OpenAI-compatible Chat Completions gateway
	// (vLLM, LiteLLM, LM Studio). Enabled by base_url.
	Compat ProviderConfig `yaml:"compat"`
}

// ProviderConfig describes a single vision backend.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`     // optional override; required for ollama
}

// RecognitionConfig holds the target plan and retry behavior.
type RecognitionConfig struct {
	// Plan lists recognition targets as "provider/model[@mode]" entries,
	// tried in order until one yields a product name.
	Plan []string `yaml:"plan"`

	// Prompt overrides the built-in identification prompt.
	Prompt string `yaml:"prompt"`

	Attempts       int           `yaml:"attempts"`        // per-target attempt budget, default: 3
	InitialBackoff time.Duration `yaml:"initial_backoff"` // default: 1s
	CallTimeout    time.Duration `yaml:"call_timeout"`    // per provider call, default: 30s
	MaxConcurrent  int64         `yaml:"max_concurrent"`  // in-flight provider calls, default: 3
	InlineBudget   int           `yaml:"inline_budget"`   // bytes before transcoding, default: 512000
}

// StorageConfig holds state management settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`      // "memory", "sqlite" or "postgres", default: "memory"
	MaxTrail int            `yaml:"max_trail"` // for memory store, default: 1000
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // database file, required when storage.type is "sqlite"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ImageHostConfig holds image publishing settings.
type ImageHostConfig struct {
	// Backends lists hosting services in priority order. Known values:
	// "catbox", "0x0", "selfserve".
	Backends []string `yaml:"backends"`

	UploadTimeout time.Duration `yaml:"upload_timeout"` // per backend, default: 10s
}

// ServerConfig holds HTTP server settings for health, metrics and the
// self-served image endpoint.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 60s

	// PublicBaseURL is the externally reachable base of this server,
	// required when the "selfserve" image host backend is enabled.
	PublicBaseURL string `yaml:"public_base_url"`

	SigningKey     string `yaml:"signing_key"`      // HMAC key for self-served image tokens
	SigningKeyFile string `yaml:"signing_key_file"` // _file variant for signing_key

	ImageTTL       time.Duration `yaml:"image_ttl"`        // self-served image lifetime, default: 15m
	ImageCacheSize int           `yaml:"image_cache_size"` // self-served image slots, default: 128
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn" or "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // debug categories, comma-separated ("providers,bot" or "all")
}

// SupersedeEnabled reports whether a new photo cancels the user's
// in-flight recognition. Unset means enabled.
func (c *TelegramConfig) SupersedeEnabled() bool {
	return c.SupersedePending == nil || *c.SupersedePending
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Recognition: RecognitionConfig{
			Plan: []string{
				"gemini/gemini-2.0-flash@auto",
				"openai/gpt-4o-mini@auto",
				"anthropic/claude-3-5-haiku-latest@inline",
			},
			Attempts:       3,
			InitialBackoff: time.Second,
			CallTimeout:    30 * time.Second,
			MaxConcurrent:  3,
			InlineBudget:   500 * 1024,
		},
		Storage: StorageConfig{
			Type:     "memory",
			MaxTrail: 1000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		ImageHost: ImageHostConfig{
			Backends:      []string{"catbox", "0x0"},
			UploadTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			ImageTTL:       15 * time.Minute,
			ImageCacheSize: 128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
