package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohaddad/shopsnap/pkg/debug"
	"github.com/ohaddad/shopsnap/pkg/provider"
)

const defaultBaseURL = "http://localhost:11434"

// OllamaProvider implements provider.Provider for a local Ollama server.
type OllamaProvider struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure OllamaProvider implements provider.Provider at compile time.
var _ provider.Provider = (*OllamaProvider)(nil)

// New creates a new OllamaProvider with the given configuration.
func New(cfg Config) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OllamaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		caps: provider.Capabilities{
			InlineInput: true,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Capabilities returns what image input modes this provider supports.
func (p *OllamaProvider) Capabilities() provider.Capabilities {
	return p.caps
}

// generateRequest is the /api/generate request body.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

// Identify sends the prompt and base64 image to /api/generate and returns
// the raw payload tagged with the generate schema.
func (p *OllamaProvider) Identify(ctx context.Context, req *provider.Request) (*provider.Envelope, error) {
	if !req.Image.Inline() {
		return nil, provider.NewPermanentError(p.Name(), "image URL input is not supported, inline bytes required")
	}

	genReq := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.Image.Data)},
		Stream: false,
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := p.cfg.BaseURL + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")

	debug.Log("providers", "ollama request", "model", req.Model, "inline_bytes", len(req.Image.Data))

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(p.Name(), err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, provider.MapHTTPError(p.Name(), httpResp)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.NewTransientError(p.Name(), fmt.Sprintf("failed to read backend response: %s", err.Error()))
	}

	if debug.TraceIsEnabled("providers") {
		debug.Raw("providers", string(raw))
	}

	return &provider.Envelope{
		Schema: provider.SchemaGenerate,
		Model:  req.Model,
		Body:   raw,
	}, nil
}

// Close releases provider resources.
func (p *OllamaProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
