package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SHOPSNAP_CONFIG env, ./config.yaml, /etc/shopsnap/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SHOPSNAP_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/shopsnap/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check SHOPSNAP_CONFIG env var.
	if envPath := os.Getenv("SHOPSNAP_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/shopsnap/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Env vars
// win over YAML values so deployments can keep secrets out of the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHOPSNAP_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("SHOPSNAP_AFFILIATE_TAG"); v != "" {
		cfg.Telegram.AffiliateTag = v
	}
	if v := os.Getenv("SHOPSNAP_GEMINI_API_KEY"); v != "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("SHOPSNAP_OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("SHOPSNAP_ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("SHOPSNAP_OLLAMA_URL"); v != "" {
		cfg.Providers.Ollama.BaseURL = v
	}
	if v := os.Getenv("SHOPSNAP_COMPAT_URL"); v != "" {
		cfg.Providers.Compat.BaseURL = v
	}
	if v := os.Getenv("SHOPSNAP_COMPAT_API_KEY"); v != "" {
		cfg.Providers.Compat.APIKey = v
	}

	// SHOPSNAP_PLAN: comma-separated "provider/model[@mode]" entries.
	if v := os.Getenv("SHOPSNAP_PLAN"); v != "" {
		cfg.Recognition.Plan = splitList(v)
	}

	if v := os.Getenv("SHOPSNAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SHOPSNAP_PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v := os.Getenv("SHOPSNAP_SIGNING_KEY"); v != "" {
		cfg.Server.SigningKey = v
	}

	if v := os.Getenv("SHOPSNAP_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("SHOPSNAP_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("SHOPSNAP_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}

	// SHOPSNAP_IMAGE_HOSTS: comma-separated backend names in priority order.
	if v := os.Getenv("SHOPSNAP_IMAGE_HOSTS"); v != "" {
		cfg.ImageHost.Backends = splitList(v)
	}

	if v := os.Getenv("SHOPSNAP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SHOPSNAP_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// splitList splits a comma-separated env value into trimmed, non-empty
// entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// telegram.token_file -> telegram.token
	if cfg.Telegram.TokenFile != "" && cfg.Telegram.Token == "" {
		val, err := readSecretFile(cfg.Telegram.TokenFile)
		if err != nil {
			return fmt.Errorf("telegram.token_file: %w", err)
		}
		cfg.Telegram.Token = val
	}

	// providers.*.api_key_file -> providers.*.api_key
	providers := []struct {
		name string
		cfg  *ProviderConfig
	}{
		{"gemini", &cfg.Providers.Gemini},
		{"openai", &cfg.Providers.OpenAI},
		{"anthropic", &cfg.Providers.Anthropic},
		{"ollama", &cfg.Providers.Ollama},
		{"compat", &cfg.Providers.Compat},
	}
	for _, p := range providers {
		if p.cfg.APIKeyFile != "" && p.cfg.APIKey == "" {
			val, err := readSecretFile(p.cfg.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", p.name, err)
			}
			p.cfg.APIKey = val
		}
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// server.signing_key_file -> server.signing_key
	if cfg.Server.SigningKeyFile != "" && cfg.Server.SigningKey == "" {
		val, err := readSecretFile(cfg.Server.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("server.signing_key_file: %w", err)
		}
		cfg.Server.SigningKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
