package openai

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

const defaultBaseURL = "https://api.openai.com"

// OpenAIProvider implements provider.Provider for the OpenAI Responses API.
type OpenAIProvider struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure OpenAIProvider implements provider.Provider at compile time.
var _ provider.Provider = (*OpenAIProvider)(nil)

// New creates a new OpenAIProvider with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: APIKey is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &OpenAIProvider{
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
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Capabilities returns what image input modes this provider supports.
func (p *OpenAIProvider) Capabilities() provider.Capabilities {
	return p.caps
}

// responsesRequest is the /v1/responses request body.
type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
}

type responsesInput struct {
	Role    string          `json:"role"`
	Content []responsesPart `json:"content"`
}

// responsesPart is either an input_text or an input_image content part.
type responsesPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Identify sends the prompt and image to the Responses API and returns the
// raw payload tagged with the responses schema. Inline bytes are carried as
// a base64 data URL in the input_image part.
func (p *OpenAIProvider) Identify(ctx context.Context, req *provider.Request) (*provider.Envelope, error) {
	imageURL := req.Image.URL
	if req.Image.Inline() {
		imageURL = fmt.Sprintf("data:%s;base64,%s",
			req.Image.MIME, base64.StdEncoding.EncodeToString(req.Image.Data))
	}
	if imageURL == "" {
		return nil, provider.NewPermanentError(p.Name(), "request carries neither image URL nor inline bytes")
	}

	respReq := responsesRequest{
		Model: req.Model,
		Input: []responsesInput{{
			Role: "user",
			Content: []responsesPart{
				{Type: "input_text", Text: req.Prompt},
				{Type: "input_image", ImageURL: imageURL},
			},
		}},
	}

	body, err := json.Marshal(respReq)
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := p.cfg.BaseURL + "/v1/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewPermanentError(p.Name(), fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	debug.Log("providers", "openai request", "model", req.Model, "inline", req.Image.Inline())

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
		Schema: provider.SchemaResponses,
		Model:  req.Model,
		Body:   raw,
	}, nil
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
