package config

import (
	"errors"
	"fmt"
	"strings"
)

// knownImageHosts are the backend names accepted in image_host.backends.
var knownImageHosts = map[string]bool{
	"catbox":    true,
	"0x0":       true,
	"selfserve": true,
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// telegram.token is required.
	if c.Telegram.Token == "" {
		errs = append(errs, fmt.Errorf("telegram.token or telegram.token_file is required"))
	}

	// recognition.plan must not be empty; a bot with nothing to call
	// cannot answer anyone.
	if len(c.Recognition.Plan) == 0 {
		errs = append(errs, fmt.Errorf("recognition.plan must list at least one provider/model entry"))
	}
	if c.Recognition.Attempts < 1 {
		errs = append(errs, fmt.Errorf("recognition.attempts must be >= 1, got %d", c.Recognition.Attempts))
	}
	if c.Recognition.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("recognition.call_timeout must be > 0, got %v", c.Recognition.CallTimeout))
	}
	if c.Recognition.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("recognition.max_concurrent must be >= 1, got %d", c.Recognition.MaxConcurrent))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"sqlite\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "sqlite", a database path must be set.
	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is \"sqlite\""))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// image_host.backends must name known services.
	selfserve := false
	for _, b := range c.ImageHost.Backends {
		if !knownImageHosts[b] {
			errs = append(errs, fmt.Errorf("image_host.backends: unknown backend %q", b))
		}
		if b == "selfserve" {
			selfserve = true
		}
	}

	// The selfserve backend hands out URLs pointing back at this server,
	// so it needs a public base and a signing key.
	if selfserve {
		if c.Server.PublicBaseURL == "" {
			errs = append(errs, fmt.Errorf("server.public_base_url is required when the \"selfserve\" image host is enabled"))
		}
		if c.Server.SigningKey == "" && c.Server.SigningKeyFile == "" {
			errs = append(errs, fmt.Errorf("server.signing_key or server.signing_key_file is required when the \"selfserve\" image host is enabled"))
		}
	}

	// logging.level must be a known value if set. "trace" unlocks raw
	// payload dumps in the debug package.
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"trace\", \"debug\", \"info\", \"warn\" or \"error\", got %q", c.Logging.Level))
	}

	// logging.format must be a known value if set.
	switch c.Logging.Format {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
