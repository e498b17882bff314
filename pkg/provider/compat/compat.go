package compat

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

// CompatProvider implements provider.Provider for OpenAI-compatible
// Chat Completions gateways.
type CompatProvider struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure CompatProvider implements provider.Provider at compile time.
var _ provider.Provider = (*CompatProvider)(nil)

// New creates a new CompatProvider with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*CompatProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("compat: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &CompatProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		caps: provider.Capabilities{
			URLInput:       true,
			InlineInput:    true,
			MaxInlineBytes: 20 << 20,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *CompatProvider) Name() string {
	return "compat"
}

// Capabilities returns what image input modes this provider supports.
func (p *CompatProvider) Capabilities() provider.Capabilities {
	return p.caps
}

// chatRequest is the /v1/chat/completions request body.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []chatPart `json:"content"`
}

// chatPart is either a text or an image_url content part.
type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

// Identify sends the prompt and image to the Chat Completions endpoint
// and returns the raw payload tagged with the chat schema. Inline bytes
// are carried as a base64 data URL in the image_url part.
func (p *CompatProvider) Identify(ctx context.Context, req *provider.Request) (*provider.Envelope, error) {
	imageURL := req.Image.URL
	if req.Image.Inline() {
		imageURL = fmt.Sprintf("data:%s;base64,%s",
			req.Image.MIME, base64.StdEncoding.EncodeToString(req.Image.Data))
	}
	if imageURL == "" {
		return nil, provider.NewPermanentError(p.Name(), "request carries neither image URL nor inline bytes")
	}

	chatReq := chatRequest{
		Model:     req.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imageURL}},
			},
		}},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := p.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	debug.Log("providers", "compat request", "model", req.Model, "inline", req.Image.Inline())

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
		Schema: provider.SchemaChat,
		Model:  req.Model,
		Body:   raw,
	}, nil
}

// Close releases provider resources.
func (p *CompatProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
