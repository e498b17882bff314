package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider implements provider.Provider for the Google Generative
// Language generateContent API.
type GeminiProvider struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure GeminiProvider implements provider.Provider at compile time.
var _ provider.Provider = (*GeminiProvider)(nil)

// New creates a new GeminiProvider with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: APIKey is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		caps: provider.Capabilities{
			InlineInput:    true,
			MaxInlineBytes: 20 << 20,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Capabilities returns what image input modes this provider supports.
func (p *GeminiProvider) Capabilities() provider.Capabilities {
	return p.caps
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

// generatePart is either an inline_data blob or a text segment.
type generatePart struct {
	InlineData *inlineData `json:"inline_data,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Identify sends the prompt and inline image to generateContent and returns
// the raw candidates payload tagged with the gemini schema.
func (p *GeminiProvider) Identify(ctx context.Context, req *provider.Request) (*provider.Envelope, error) {
	if !req.Image.Inline() {
		return nil, provider.NewPermanentError(p.Name(), "image URL input is not supported, inline bytes required")
	}

	genReq := generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{
				{InlineData: &inlineData{
					MIMEType: req.Image.MIME,
					Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
				}},
				{Text: req.Prompt},
			},
		}},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.cfg.BaseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)

	debug.Log("providers", "gemini request", "model", req.Model, "inline_bytes", len(req.Image.Data), "mime", req.Image.MIME)

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
		Schema: provider.SchemaGemini,
		Model:  req.Model,
		Body:   raw,
	}, nil
}

// Close releases provider resources.
func (p *GeminiProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
