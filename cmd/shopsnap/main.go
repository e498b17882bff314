// Command shopsnap runs the product identification Telegram bot.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file (-config flag, SHOPSNAP_CONFIG, ./config.yaml or
// /etc/shopsnap/config.yaml), then environment overrides. The common
// variables:
//
//	SHOPSNAP_TELEGRAM_TOKEN - Telegram bot token (required)
//	SHOPSNAP_GEMINI_API_KEY - enables the gemini provider
//	SHOPSNAP_OPENAI_API_KEY - enables the openai provider
//	SHOPSNAP_ANTHROPIC_API_KEY - enables the anthropic provider
//	SHOPSNAP_OLLAMA_URL     - enables the ollama provider
//	SHOPSNAP_COMPAT_URL     - enables the compat provider
//	SHOPSNAP_PLAN           - recognition targets, comma separated
//	SHOPSNAP_STORAGE        - "memory", "sqlite" or "postgres"
//	SHOPSNAP_PORT           - admin HTTP port (default: 8080)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ohaddad/shopsnap/pkg/bot"
	"github.com/ohaddad/shopsnap/pkg/config"
	"github.com/ohaddad/shopsnap/pkg/debug"
	"github.com/ohaddad/shopsnap/pkg/imghost"
	"github.com/ohaddad/shopsnap/pkg/provider"
	"github.com/ohaddad/shopsnap/pkg/provider/anthropic"
	"github.com/ohaddad/shopsnap/pkg/provider/compat"
	"github.com/ohaddad/shopsnap/pkg/provider/gemini"
	"github.com/ohaddad/shopsnap/pkg/provider/ollama"
	"github.com/ohaddad/shopsnap/pkg/provider/openai"
	"github.com/ohaddad/shopsnap/pkg/recognize"
	"github.com/ohaddad/shopsnap/pkg/storage"
	"github.com/ohaddad/shopsnap/pkg/storage/memory"
	"github.com/ohaddad/shopsnap/pkg/storage/postgres"
	"github.com/ohaddad/shopsnap/pkg/storage/sqlite"
	"github.com/ohaddad/shopsnap/pkg/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("shopsnap failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	logger := newLogger(cfg.Logging.Format, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Providers come up only when configured; the plan is validated
	// against what actually came up.
	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range providers {
			p.Close()
		}
	}()

	publisher, selfServe, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()
	logger.Info("storage ready", "type", cfg.Storage.Type)

	plan, err := recognize.ParsePlan(cfg.Recognition.Plan)
	if err != nil {
		return fmt.Errorf("parsing recognition plan: %w", err)
	}

	orch, err := recognize.New(recognize.Config{
		Plan:           plan,
		Prompt:         cfg.Recognition.Prompt,
		Attempts:       cfg.Recognition.Attempts,
		InitialBackoff: cfg.Recognition.InitialBackoff,
		CallTimeout:    cfg.Recognition.CallTimeout,
		MaxConcurrent:  cfg.Recognition.MaxConcurrent,
		InlineBudget:   cfg.Recognition.InlineBudget,
	}, providers, publisher, logger)
	if err != nil {
		return fmt.Errorf("building recognizer: %w", err)
	}

	serverOpts := []web.Option{
		web.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		web.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		web.WithLogger(logger),
		web.WithStore(store),
	}
	if selfServe != nil {
		serverOpts = append(serverOpts, web.WithImages(selfServe))
	}
	srv := web.NewServer(serverOpts...)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info("telegram connected", "username", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	b := bot.New(api, orch, store, bot.Config{
		AffiliateTag:  cfg.Telegram.AffiliateTag,
		Supersede:     cfg.Telegram.SupersedeEnabled(),
		Prompt:        cfg.Recognition.Prompt,
		MaxPhotoBytes: cfg.Telegram.MaxPhotoBytes,
	}, logger)

	logger.Info("shopsnap starting",
		"providers", len(providers),
		"targets", len(orch.Plan()),
		"port", cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		defer api.StopReceivingUpdates()
		return b.Run(gctx, updates)
	})
	return g.Wait()
}

// newLogger builds the process logger at the level debug.Init resolved,
// so the debug package's TRACE gating and the slog default agree.
func newLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildProviders constructs an adapter per configured vision backend.
func buildProviders(cfg *config.Config) (map[string]provider.Provider, error) {
	providers := make(map[string]provider.Provider)

	if key := cfg.Providers.Gemini.APIKey; key != "" {
		p, err := gemini.New(gemini.Config{APIKey: key, BaseURL: cfg.Providers.Gemini.BaseURL})
		if err != nil {
			return nil, err
		}
		providers["gemini"] = p
	}
	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		p, err := openai.New(openai.Config{APIKey: key, BaseURL: cfg.Providers.OpenAI.BaseURL})
		if err != nil {
			return nil, err
		}
		providers["openai"] = p
	}
	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		p, err := anthropic.New(anthropic.Config{APIKey: key, BaseURL: cfg.Providers.Anthropic.BaseURL})
		if err != nil {
			return nil, err
		}
		providers["anthropic"] = p
	}
	if url := cfg.Providers.Ollama.BaseURL; url != "" {
		p, err := ollama.New(ollama.Config{BaseURL: url})
		if err != nil {
			return nil, err
		}
		providers["ollama"] = p
	}
	if url := cfg.Providers.Compat.BaseURL; url != "" {
		p, err := compat.New(compat.Config{BaseURL: url, APIKey: cfg.Providers.Compat.APIKey})
		if err != nil {
			return nil, err
		}
		providers["compat"] = p
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no vision providers configured, set at least one API key")
	}
	return providers, nil
}

// buildPublisher assembles the image hosting chain. No backends means
// no publisher; the recognizer then runs inline-only.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (*imghost.Publisher, *imghost.SelfServe, error) {
	if len(cfg.ImageHost.Backends) == 0 {
		return nil, nil, nil
	}

	var hosts []imghost.Host
	var selfServe *imghost.SelfServe
	for _, name := range cfg.ImageHost.Backends {
		switch name {
		case "catbox":
			hosts = append(hosts, imghost.NewCatbox(""))
		case "0x0":
			hosts = append(hosts, imghost.NewZeroX(""))
		case "selfserve":
			ss, err := imghost.NewSelfServe(imghost.SelfServeConfig{
				PublicBaseURL: cfg.Server.PublicBaseURL,
				SigningKey:    []byte(cfg.Server.SigningKey),
				Capacity:      cfg.Server.ImageCacheSize,
				TTL:           cfg.Server.ImageTTL,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("selfserve image host: %w", err)
			}
			selfServe = ss
			hosts = append(hosts, ss)
		default:
			return nil, nil, fmt.Errorf("unknown image host %q", name)
		}
	}
	return imghost.NewPublisher(hosts, cfg.ImageHost.UploadTimeout, logger), selfServe, nil
}

// openStore opens the configured storage backend. Postgres dials with a
// bounded context so a dead database fails startup instead of hanging it.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return sqlite.New(ctx, cfg.Storage.SQLite.Path)
	case "postgres":
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return postgres.New(dialCtx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return memory.New(cfg.Storage.MaxTrail), nil
	}
}
