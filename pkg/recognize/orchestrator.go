package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/ohaddad/shopsnap/pkg/debug"
	"github.com/ohaddad/shopsnap/pkg/imaging"
	"github.com/ohaddad/shopsnap/pkg/imghost"
	"github.com/ohaddad/shopsnap/pkg/observability"
	"github.com/ohaddad/shopsnap/pkg/provider"
)

// DefaultPrompt asks for a short product identification.
const DefaultPrompt = "Identify the product in this image. Reply with a short product name (2-6 words) or 'Unknown'."

// Config holds the orchestrator tuning knobs.
type Config struct {
	// Plan is the ordered list of targets to try. Required.
	Plan []Target

	// Prompt is the instruction sent with every image. Default: DefaultPrompt.
	Prompt string

	// Attempts is the per-target call budget, first call included. Default: 3.
	Attempts int

	// InitialBackoff is the first retry delay; it doubles per retry. Default: 1s.
	InitialBackoff time.Duration

	// CallTimeout bounds a single backend call. Default: 30s.
	CallTimeout time.Duration

	// MaxConcurrent bounds in-flight backend calls across all
	// recognitions sharing the orchestrator. Default: 3.
	MaxConcurrent int64

	// InlineBudget is the image byte budget for inline requests. Larger
	// payloads are transcoded down before the plan runs. Default: 500 KiB.
	InlineBudget int
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Attempts < 1 {
		c.Attempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 3
	}
	if c.InlineBudget <= 0 {
		c.InlineBudget = 500 * 1024
	}
}

// Request is one photo recognition job.
type Request struct {
	// Variants are the available renditions of the photo, in any order.
	Variants []imaging.Variant

	// Prompt overrides the configured prompt when non-empty. The bot
	// uses this to fold the sender's caption in.
	Prompt string
}

// Orchestrator drives recognition requests through the plan. It is safe
// for concurrent use; a single instance serves all photos.
type Orchestrator struct {
	config     Config
	plan       []Target
	providers  map[string]provider.Provider
	publisher  *imghost.Publisher
	transcoder imaging.Transcoder
	limiter    *semaphore.Weighted
	logger     *slog.Logger
}

// New validates the plan against the registered providers and builds an
// orchestrator. Auto-mode targets are expanded here into url then
// inline entries, keeping only the modes the provider supports. A plan
// that cannot run at all is a configuration error.
func New(cfg Config, providers map[string]provider.Provider, publisher *imghost.Publisher, logger *slog.Logger) (*Orchestrator, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	plan, err := expandPlan(cfg.Plan, providers, publisher != nil)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		config:     cfg,
		plan:       plan,
		providers:  providers,
		publisher:  publisher,
		transcoder: imaging.NewTranscoder(),
		limiter:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:     logger,
	}, nil
}

// Plan returns the expanded plan, mostly for startup logging.
func (o *Orchestrator) Plan() []Target {
	out := make([]Target, len(o.plan))
	copy(out, o.plan)
	return out
}

func expandPlan(plan []Target, providers map[string]provider.Provider, havePublisher bool) ([]Target, error) {
	if len(plan) == 0 {
		return nil, errors.New("recognition plan is empty")
	}

	var expanded []Target
	for _, t := range plan {
		p, ok := providers[t.Provider]
		if !ok {
			return nil, fmt.Errorf("plan target %s: unknown provider %q", t, t.Provider)
		}
		caps := p.Capabilities()

		switch t.Mode {
		case ModeURL:
			if !caps.URLInput {
				return nil, fmt.Errorf("plan target %s: provider does not accept url input", t)
			}
			if !havePublisher {
				return nil, fmt.Errorf("plan target %s: url input needs an image publisher", t)
			}
			expanded = append(expanded, t)
		case ModeInline:
			if !caps.InlineInput {
				return nil, fmt.Errorf("plan target %s: provider does not accept inline input", t)
			}
			expanded = append(expanded, t)
		case ModeAuto:
			n := len(expanded)
			if caps.URLInput && havePublisher {
				expanded = append(expanded, Target{Provider: t.Provider, Model: t.Model, Mode: ModeURL})
			}
			if caps.InlineInput {
				expanded = append(expanded, Target{Provider: t.Provider, Model: t.Model, Mode: ModeInline})
			}
			if len(expanded) == n {
				return nil, fmt.Errorf("plan target %s: no usable input mode", t)
			}
		default:
			return nil, fmt.Errorf("plan target %s: unknown input mode %q", t, t.Mode)
		}
	}
	return expanded, nil
}

// Recognize runs the plan for one photo. It returns the first target's
// non-empty reply, ErrNoUsableImage when no variant could be fetched,
// or an ExhaustedError when every target failed. Running the same
// request twice performs the same work and yields the same answer.
func (o *Orchestrator) Recognize(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	prompt := req.Prompt
	if prompt == "" {
		prompt = o.config.Prompt
	}

	asset, err := imaging.Select(ctx, req.Variants, o.config.InlineBudget)
	if err != nil {
		observability.RecognitionsTotal.WithLabelValues("no_image").Inc()
		return nil, err
	}
	if asset.OverBudget {
		asset = o.transcoder.EnsureBudget(asset, o.config.InlineBudget)
	}
	debug.Log("pipeline", "image prepared",
		"origin", asset.Origin,
		"bytes", len(asset.Data),
		"over_budget", asset.OverBudget)

	// Publish once up front when the plan head wants a URL. Every
	// url-mode target shares the outcome: a failure here forecloses
	// them all without touching inline targets.
	var imageURL string
	if o.plan[0].Mode == ModeURL {
		url, perr := o.publisher.Publish(ctx, asset)
		if perr != nil {
			o.logger.Warn("image publish failed, url targets foreclosed", "error", perr)
		} else {
			imageURL = url
		}
	}

	attempts := make([]Attempt, 0, len(o.plan))
	for _, target := range o.plan {
		text, attempt := o.runTarget(ctx, target, prompt, asset, imageURL)
		attempts = append(attempts, attempt)

		if attempt.Outcome == OutcomeSuccess {
			elapsed := time.Since(started)
			observability.RecognitionsTotal.WithLabelValues("success").Inc()
			observability.RecognitionDuration.WithLabelValues("success").Observe(elapsed.Seconds())
			o.logger.Info("recognition succeeded",
				"target", target.String(),
				"targets_tried", len(attempts),
				"elapsed", elapsed)
			return &Result{Text: text, Target: target, Attempts: attempts, Elapsed: elapsed}, nil
		}

		if ctx.Err() != nil {
			break
		}
	}

	elapsed := time.Since(started)
	observability.RecognitionsTotal.WithLabelValues("exhausted").Inc()
	observability.RecognitionDuration.WithLabelValues("exhausted").Observe(elapsed.Seconds())
	return nil, &ExhaustedError{Attempts: attempts}
}

// runTarget invokes one plan target under the retry policy. The
// returned attempt always carries a terminal outcome; failures advance
// the plan instead of escaping as errors.
func (o *Orchestrator) runTarget(ctx context.Context, target Target, prompt string, asset imaging.Asset, imageURL string) (string, Attempt) {
	started := time.Now()
	prov := o.providers[target.Provider]

	ref, skipErr := imageRef(target, prov.Capabilities(), asset, imageURL)
	if skipErr != nil {
		o.logger.Info("skipping recognition target",
			"target", target.String(),
			"reason", skipErr)
		return "", Attempt{Target: target, Outcome: OutcomeSkipped, Elapsed: time.Since(started), Err: skipErr}
	}

	var (
		text  string
		tries int
	)

	operation := func() error {
		tries++
		if err := o.limiter.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(fmt.Errorf("waiting for an invocation slot: %w", err))
		}
		defer o.limiter.Release(1)

		observability.ProviderCallsInFlight.Inc()
		defer observability.ProviderCallsInFlight.Dec()

		callCtx, cancel := context.WithTimeout(ctx, o.config.CallTimeout)
		defer cancel()

		callStart := time.Now()
		env, err := prov.Identify(callCtx, &provider.Request{
			Model:  target.Model,
			Prompt: prompt,
			Image:  ref,
		})
		observability.ProviderCallDuration.WithLabelValues(target.Provider, target.Model).Observe(time.Since(callStart).Seconds())

		if err != nil {
			var perr *provider.Error
			if errors.As(err, &perr) && perr.Transient() {
				observability.ProviderCallsTotal.WithLabelValues(target.Provider, target.Model, "transient").Inc()
				debug.Log("pipeline", "transient backend failure",
					"target", target.String(),
					"try", tries,
					"error", err)
				return err
			}
			observability.ProviderCallsTotal.WithLabelValues(target.Provider, target.Model, "permanent").Inc()
			return backoff.Permanent(err)
		}

		text = ExtractText(env)
		if text == "" {
			observability.ProviderCallsTotal.WithLabelValues(target.Provider, target.Model, "empty").Inc()
			if debug.TraceIsEnabled("pipeline") {
				debug.Log("pipeline", "reply normalized to empty", "target", target.String())
				debug.Raw("pipeline", string(env.Body))
			}
			return backoff.Permanent(ErrEmptyResponse)
		}

		observability.ProviderCallsTotal.WithLabelValues(target.Provider, target.Model, "success").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.config.InitialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(o.config.Attempts-1)), ctx))

	attempt := Attempt{Target: target, Tries: tries, Elapsed: time.Since(started), Err: err}
	switch {
	case err == nil:
		attempt.Outcome = OutcomeSuccess
	case errors.Is(err, ErrEmptyResponse):
		attempt.Outcome = OutcomeEmpty
	default:
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Transient() {
			attempt.Outcome = OutcomeTransient
		} else {
			attempt.Outcome = OutcomePermanent
		}
	}

	if attempt.Outcome != OutcomeSuccess {
		o.logger.Info("recognition target failed",
			"target", target.String(),
			"outcome", string(attempt.Outcome),
			"tries", tries,
			"error", err)
	}

	return text, attempt
}

// imageRef builds the image reference for a target, or explains why the
// target cannot be invoked at all.
func imageRef(target Target, caps provider.Capabilities, asset imaging.Asset, imageURL string) (provider.ImageRef, error) {
	switch target.Mode {
	case ModeURL:
		if imageURL == "" {
			return provider.ImageRef{}, errors.New("no published image URL")
		}
		return provider.ImageRef{URL: imageURL}, nil
	case ModeInline:
		if caps.MaxInlineBytes > 0 && len(asset.Data) > caps.MaxInlineBytes {
			return provider.ImageRef{}, fmt.Errorf("image is %d bytes, provider inline limit is %d", len(asset.Data), caps.MaxInlineBytes)
		}
		return provider.ImageRef{Data: asset.Data, MIME: asset.MIME}, nil
	default:
		return provider.ImageRef{}, fmt.Errorf("unexpected input mode %q", target.Mode)
	}
}
