package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if len(cfg.Recognition.Plan) == 0 {
		t.Error("default recognition.plan is empty")
	}
	if cfg.Recognition.Attempts != 3 {
		t.Errorf("default recognition.attempts = %d, want 3", cfg.Recognition.Attempts)
	}
	if cfg.Recognition.InitialBackoff != time.Second {
		t.Errorf("default recognition.initial_backoff = %v, want 1s", cfg.Recognition.InitialBackoff)
	}
	if cfg.Recognition.CallTimeout != 30*time.Second {
		t.Errorf("default recognition.call_timeout = %v, want 30s", cfg.Recognition.CallTimeout)
	}
	if cfg.Recognition.MaxConcurrent != 3 {
		t.Errorf("default recognition.max_concurrent = %d, want 3", cfg.Recognition.MaxConcurrent)
	}
	if cfg.Recognition.InlineBudget != 500*1024 {
		t.Errorf("default recognition.inline_budget = %d, want 512000", cfg.Recognition.InlineBudget)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("default storage.type = %q, want \"memory\"", cfg.Storage.Type)
	}
	if cfg.Storage.MaxTrail != 1000 {
		t.Errorf("default storage.max_trail = %d, want 1000", cfg.Storage.MaxTrail)
	}
	if cfg.Storage.Postgres.MaxConns != 10 {
		t.Errorf("default storage.postgres.max_conns = %d, want 10", cfg.Storage.Postgres.MaxConns)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ImageTTL != 15*time.Minute {
		t.Errorf("default server.image_ttl = %v, want 15m", cfg.Server.ImageTTL)
	}
	if cfg.ImageHost.UploadTimeout != 10*time.Second {
		t.Errorf("default image_host.upload_timeout = %v, want 10s", cfg.ImageHost.UploadTimeout)
	}
	if !cfg.Telegram.SupersedeEnabled() {
		t.Error("supersede_pending should default to enabled")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("default logging = %q/%q, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
telegram:
  token: "123456:bot-token"
  affiliate_tag: shopsnap-20
  supersede_pending: false
  max_photo_bytes: 5242880
providers:
  gemini:
    api_key: gm-key
  openai:
    api_key: oa-key
    base_url: http://proxy.local/v1
  ollama:
    base_url: http://ollama.local:11434
  compat:
    base_url: http://vllm.local:8000
    api_key: vllm-key
recognition:
  plan:
    - gemini/gemini-2.0-flash@inline
    - ollama/llava@inline
  prompt: "What product is shown?"
  attempts: 5
  initial_backoff: 2s
  call_timeout: 45s
  max_concurrent: 8
  inline_budget: 250000
storage:
  type: sqlite
  sqlite:
    path: /var/lib/shopsnap/bot.db
image_host:
  backends: [selfserve, catbox]
  upload_timeout: 5s
server:
  port: 9090
  public_base_url: https://bot.example.com
  signing_key: super-secret
  image_ttl: 5m
  image_cache_size: 64
logging:
  level: debug
  format: json
  debug: providers,bot
`

	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Telegram
	if cfg.Telegram.Token != "123456:bot-token" {
		t.Errorf("telegram.token = %q, want the YAML value", cfg.Telegram.Token)
	}
	if cfg.Telegram.AffiliateTag != "shopsnap-20" {
		t.Errorf("telegram.affiliate_tag = %q, want \"shopsnap-20\"", cfg.Telegram.AffiliateTag)
	}
	if cfg.Telegram.SupersedeEnabled() {
		t.Error("supersede_pending: false in YAML should disable superseding")
	}
	if cfg.Telegram.MaxPhotoBytes != 5242880 {
		t.Errorf("telegram.max_photo_bytes = %d, want 5242880", cfg.Telegram.MaxPhotoBytes)
	}

	// Providers
	if cfg.Providers.Gemini.APIKey != "gm-key" {
		t.Errorf("providers.gemini.api_key = %q, want \"gm-key\"", cfg.Providers.Gemini.APIKey)
	}
	if cfg.Providers.OpenAI.BaseURL != "http://proxy.local/v1" {
		t.Errorf("providers.openai.base_url = %q, want the proxy URL", cfg.Providers.OpenAI.BaseURL)
	}
	if cfg.Providers.Ollama.BaseURL != "http://ollama.local:11434" {
		t.Errorf("providers.ollama.base_url = %q, want the YAML value", cfg.Providers.Ollama.BaseURL)
	}
	if cfg.Providers.Compat.BaseURL != "http://vllm.local:8000" {
		t.Errorf("providers.compat.base_url = %q, want the YAML value", cfg.Providers.Compat.BaseURL)
	}
	if cfg.Providers.Compat.APIKey != "vllm-key" {
		t.Errorf("providers.compat.api_key = %q, want \"vllm-key\"", cfg.Providers.Compat.APIKey)
	}

	// Recognition
	if len(cfg.Recognition.Plan) != 2 || cfg.Recognition.Plan[1] != "ollama/llava@inline" {
		t.Errorf("recognition.plan = %v, want the two YAML entries", cfg.Recognition.Plan)
	}
	if cfg.Recognition.Prompt != "What product is shown?" {
		t.Errorf("recognition.prompt = %q, want the YAML value", cfg.Recognition.Prompt)
	}
	if cfg.Recognition.Attempts != 5 {
		t.Errorf("recognition.attempts = %d, want 5", cfg.Recognition.Attempts)
	}
	if cfg.Recognition.InitialBackoff != 2*time.Second {
		t.Errorf("recognition.initial_backoff = %v, want 2s", cfg.Recognition.InitialBackoff)
	}
	if cfg.Recognition.CallTimeout != 45*time.Second {
		t.Errorf("recognition.call_timeout = %v, want 45s", cfg.Recognition.CallTimeout)
	}
	if cfg.Recognition.MaxConcurrent != 8 {
		t.Errorf("recognition.max_concurrent = %d, want 8", cfg.Recognition.MaxConcurrent)
	}
	if cfg.Recognition.InlineBudget != 250000 {
		t.Errorf("recognition.inline_budget = %d, want 250000", cfg.Recognition.InlineBudget)
	}

	// Storage
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("storage.type = %q, want \"sqlite\"", cfg.Storage.Type)
	}
	if cfg.Storage.SQLite.Path != "/var/lib/shopsnap/bot.db" {
		t.Errorf("storage.sqlite.path = %q, want the YAML value", cfg.Storage.SQLite.Path)
	}

	// Image host
	if len(cfg.ImageHost.Backends) != 2 || cfg.ImageHost.Backends[0] != "selfserve" {
		t.Errorf("image_host.backends = %v, want [selfserve catbox]", cfg.ImageHost.Backends)
	}
	if cfg.ImageHost.UploadTimeout != 5*time.Second {
		t.Errorf("image_host.upload_timeout = %v, want 5s", cfg.ImageHost.UploadTimeout)
	}

	// Server
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.PublicBaseURL != "https://bot.example.com" {
		t.Errorf("server.public_base_url = %q, want the YAML value", cfg.Server.PublicBaseURL)
	}
	if cfg.Server.ImageTTL != 5*time.Minute {
		t.Errorf("server.image_ttl = %v, want 5m", cfg.Server.ImageTTL)
	}
	if cfg.Server.ImageCacheSize != 64 {
		t.Errorf("server.image_cache_size = %d, want 64", cfg.Server.ImageCacheSize)
	}

	// Logging
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %q/%q, want debug/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Logging.Debug != "providers,bot" {
		t.Errorf("logging.debug = %q, want \"providers,bot\"", cfg.Logging.Debug)
	}
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
telegram:
  token: "from-yaml"
recognition:
  plan: [gemini/gemini-2.0-flash]
server:
  port: 9090
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("SHOPSNAP_TELEGRAM_TOKEN", "from-env")
	t.Setenv("SHOPSNAP_GEMINI_API_KEY", "gm-env-key")
	t.Setenv("SHOPSNAP_PORT", "7070")
	t.Setenv("SHOPSNAP_PLAN", "ollama/llava@inline, openai/gpt-4o-mini")
	t.Setenv("SHOPSNAP_STORAGE", "memory")
	t.Setenv("SHOPSNAP_IMAGE_HOSTS", "0x0,catbox")
	t.Setenv("SHOPSNAP_OLLAMA_URL", "http://ollama-env:11434")
	t.Setenv("SHOPSNAP_COMPAT_URL", "http://vllm-env:8000")
	t.Setenv("SHOPSNAP_LOG_LEVEL", "warn")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("telegram.token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Providers.Gemini.APIKey != "gm-env-key" {
		t.Errorf("providers.gemini.api_key = %q, want env override", cfg.Providers.Gemini.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if len(cfg.Recognition.Plan) != 2 || cfg.Recognition.Plan[0] != "ollama/llava@inline" {
		t.Errorf("recognition.plan = %v, want env override entries", cfg.Recognition.Plan)
	}
	if cfg.Recognition.Plan[1] != "openai/gpt-4o-mini" {
		t.Errorf("recognition.plan[1] = %q, want the trimmed second entry", cfg.Recognition.Plan[1])
	}
	if len(cfg.ImageHost.Backends) != 2 || cfg.ImageHost.Backends[0] != "0x0" {
		t.Errorf("image_host.backends = %v, want env override", cfg.ImageHost.Backends)
	}
	if cfg.Providers.Ollama.BaseURL != "http://ollama-env:11434" {
		t.Errorf("providers.ollama.base_url = %q, want env override", cfg.Providers.Ollama.BaseURL)
	}
	if cfg.Providers.Compat.BaseURL != "http://vllm-env:8000" {
		t.Errorf("providers.compat.base_url = %q, want env override", cfg.Providers.Compat.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want env override \"warn\"", cfg.Logging.Level)
	}
}

func TestEnvOnly(t *testing.T) {
	// No config file, only env vars.
	t.Setenv("SHOPSNAP_TELEGRAM_TOKEN", "env-only-token")
	t.Setenv("SHOPSNAP_OPENAI_API_KEY", "oa-env")
	t.Setenv("SHOPSNAP_ANTHROPIC_API_KEY", "an-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "env-only-token" {
		t.Errorf("telegram.token = %q, want env value", cfg.Telegram.Token)
	}
	if cfg.Providers.OpenAI.APIKey != "oa-env" {
		t.Errorf("providers.openai.api_key = %q, want env value", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.Anthropic.APIKey != "an-env" {
		t.Errorf("providers.anthropic.api_key = %q, want env value", cfg.Providers.Anthropic.APIKey)
	}
	// Defaults fill the rest.
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage.type = %q, want default \"memory\"", cfg.Storage.Type)
	}
	if len(cfg.Recognition.Plan) == 0 {
		t.Error("recognition.plan should keep the default entries")
	}
}

func TestFileReferenceToken(t *testing.T) {
	secretFile := writeTemp(t, "token-*.txt", "  123456:file-token  \n")

	yamlContent := `
telegram:
  token_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "123456:file-token" {
		t.Errorf("telegram.token = %q, want \"123456:file-token\" (from file, trimmed)", cfg.Telegram.Token)
	}
}

func TestFileReferenceProviderKey(t *testing.T) {
	keyFile := writeTemp(t, "apikey-*.txt", "  gm-key-from-file  \n")

	yamlContent := `
telegram:
  token: "123456:bot-token"
providers:
  gemini:
    api_key_file: ` + keyFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Providers.Gemini.APIKey != "gm-key-from-file" {
		t.Errorf("providers.gemini.api_key = %q, want \"gm-key-from-file\"", cfg.Providers.Gemini.APIKey)
	}
}

func TestFileReferencePostgresDSN(t *testing.T) {
	dsnFile := writeTemp(t, "dsn-*.txt", "  postgres://user:pass@db:5432/app  \n")

	yamlContent := `
telegram:
  token: "123456:bot-token"
storage:
  type: postgres
  postgres:
    dsn_file: ` + dsnFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Postgres.DSN != "postgres://user:pass@db:5432/app" {
		t.Errorf("storage.postgres.dsn = %q, want DSN from file", cfg.Storage.Postgres.DSN)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	secretFile := writeTemp(t, "token-*.txt", "from-file")

	yamlContent := `
telegram:
  token: from-yaml
  token_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// When both token and token_file are set, the explicit value wins.
	if cfg.Telegram.Token != "from-yaml" {
		t.Errorf("telegram.token = %q, want \"from-yaml\"", cfg.Telegram.Token)
	}
}

func TestFileDiscovery(t *testing.T) {
	envFile := writeTemp(t, "envconfig-*.yaml", `
telegram:
  token: "123456:env-config-token"
`)
	t.Setenv("SHOPSNAP_CONFIG", envFile)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(SHOPSNAP_CONFIG) error: %v", err)
	}
	if cfg.Telegram.Token != "123456:env-config-token" {
		t.Errorf("SHOPSNAP_CONFIG: telegram.token = %q, want env config value", cfg.Telegram.Token)
	}

	// No file, no env config: defaults plus env overrides.
	t.Setenv("SHOPSNAP_CONFIG", "")
	t.Setenv("SHOPSNAP_TELEGRAM_TOKEN", "123456:defaults-only")

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(no file) error: %v", err)
	}
	if cfg.Telegram.Token != "123456:defaults-only" {
		t.Errorf("no file: telegram.token = %q, want env override", cfg.Telegram.Token)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "missing token",
			modify:  func(c *Config) {},
			wantErr: "telegram.token",
		},
		{
			name: "empty plan",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Recognition.Plan = nil
			},
			wantErr: "recognition.plan",
		},
		{
			name: "invalid attempts",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Recognition.Attempts = 0
			},
			wantErr: "recognition.attempts must be >= 1",
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Server.Port = 0
			},
			wantErr: "server.port must be > 0",
		},
		{
			name: "invalid storage type",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Storage.Type = "redis"
			},
			wantErr: "storage.type must be",
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Storage.Type = "sqlite"
			},
			wantErr: "storage.sqlite.path",
		},
		{
			name: "postgres without DSN",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Storage.Type = "postgres"
				c.Storage.Postgres.DSN = ""
				c.Storage.Postgres.DSNFile = ""
			},
			wantErr: "storage.postgres.dsn",
		},
		{
			name: "unknown image host",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.ImageHost.Backends = []string{"imgur"}
			},
			wantErr: "unknown backend",
		},
		{
			name: "selfserve without public base URL",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.ImageHost.Backends = []string{"selfserve"}
				c.Server.SigningKey = "k"
			},
			wantErr: "server.public_base_url",
		},
		{
			name: "selfserve without signing key",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.ImageHost.Backends = []string{"selfserve"}
				c.Server.PublicBaseURL = "https://bot.example.com"
			},
			wantErr: "server.signing_key",
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Logging.Level = "verbose"
			},
			wantErr: "logging.level must be",
		},
		{
			name: "trace log level",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.Logging.Level = "trace"
			},
			wantErr: "",
		},
		{
			name: "valid config",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
			},
			wantErr: "",
		},
		{
			name: "valid selfserve config",
			modify: func(c *Config) {
				c.Telegram.Token = "123456:tok"
				c.ImageHost.Backends = []string{"selfserve", "catbox"}
				c.Server.PublicBaseURL = "https://bot.example.com"
				c.Server.SigningKey = "super-secret"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	path := f.Name()

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	return path
}

// contains checks if s contains substr.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
