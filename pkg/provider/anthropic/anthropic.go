package anthropic

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

const (
	defaultBaseURL = "https://api.anthropic.com"

	// apiVersion is the anthropic-version header value the Messages API
	// requires on every call.
	apiVersion = "2023-06-01"
)

// AnthropicProvider implements provider.Provider for the Anthropic
// Messages API.
type AnthropicProvider struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure AnthropicProvider implements provider.Provider at compile time.
var _ provider.Provider = (*AnthropicProvider)(nil)

// New creates a new AnthropicProvider with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &AnthropicProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		caps: provider.Capabilities{
			URLInput:       true,
			InlineInput:    true,
			MaxInlineBytes: 5 << 20,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Capabilities returns what image input modes this provider supports.
func (p *AnthropicProvider) Capabilities() provider.Capabilities {
	return p.caps
}

// messagesRequest is the /v1/messages request body.
type messagesRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	Messages  []messagesTurn `json:"messages"`
}

type messagesTurn struct {
	Role    string          `json:"role"`
	Content []messagesBlock `json:"content"`
}

// messagesBlock is an image or text content block.
type messagesBlock struct {
	Type   string          `json:"type"`
	Source *messagesSource `json:"source,omitempty"`
	Text   string          `json:"text,omitempty"`
}

type messagesSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Identify sends the prompt and image to the Messages API and returns the
// raw payload tagged with the messages schema.
func (p *AnthropicProvider) Identify(ctx context.Context, req *provider.Request) (*provider.Envelope, error) {
	var source *messagesSource
	switch {
	case req.Image.Inline():
		source = &messagesSource{
			Type:      "base64",
			MediaType: req.Image.MIME,
			Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
		}
	case req.Image.URL != "":
		source = &messagesSource{
			Type: "url",
			URL:  req.Image.URL,
		}
	default:
		return nil, provider.NewPermanentError(p.Name(), "request carries neither image URL nor inline bytes")
	}

	msgReq := messagesRequest{
		Model:     req.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages: []messagesTurn{{
			Role: "user",
			Content: []messagesBlock{
				{Type: "image", Source: source},
				{Type: "text", Text: req.Prompt},
			},
		}},
	}

	body, err := json.Marshal(msgReq)
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := p.cfg.BaseURL + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	debug.Log("providers", "anthropic request", "model", req.Model, "inline", req.Image.Inline())

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
		Schema: provider.SchemaMessages,
		Model:  req.Model,
		Body:   raw,
	}, nil
}

// Close releases provider resources.
func (p *AnthropicProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
