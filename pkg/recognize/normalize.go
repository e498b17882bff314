package recognize

import (
	"encoding/json"
	"strings"

	"github.com/ohaddad/shopsnap/pkg/provider"
)

// ExtractText pulls the assistant text out of a backend reply envelope.
// It returns the trimmed text, which is empty when the reply carries
// nothing usable. Malformed or unexpected bodies normalize to "" rather
// than an error so the orchestrator can advance to the next target.
func ExtractText(env *provider.Envelope) string {
	if env == nil || len(env.Body) == 0 {
		return ""
	}

	var text string
	switch env.Schema {
	case provider.SchemaGemini:
		text = extractGemini(env.Body)
	case provider.SchemaResponses:
		text = extractResponses(env.Body)
	case provider.SchemaChat:
		text = extractChat(env.Body)
	case provider.SchemaMessages:
		text = extractMessages(env.Body)
	case provider.SchemaGenerate:
		text = extractGenerate(env.Body)
	default:
		text = extractBareString(env.Body)
	}
	return strings.TrimSpace(text)
}

// extractGemini reads candidates[].content.parts[].text and joins the
// parts of the first candidate that has any.
func extractGemini(body json.RawMessage) string {
	var reply struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	for _, c := range reply.Candidates {
		var parts []string
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "")
		}
	}
	return ""
}

// extractResponses prefers the aggregated output_text field and falls
// back to walking output[] message items for output_text content parts.
func extractResponses(body json.RawMessage) string {
	var reply struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	if reply.OutputText != "" {
		return reply.OutputText
	}

	var parts []string
	for _, item := range reply.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "")
}

// extractChat reads choices[0].message.content, which is either a plain
// string or an array of typed text blocks.
func extractChat(body json.RawMessage) string {
	var reply struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &reply); err != nil || len(reply.Choices) == 0 {
		return ""
	}
	content := reply.Choices[0].Message.Content
	if len(content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if (b.Type == "" || b.Type == "text") && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "")
}

// extractMessages joins the text blocks of an Anthropic messages reply.
func extractMessages(body json.RawMessage) string {
	var reply struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	var parts []string
	for _, b := range reply.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "")
}

// extractGenerate reads the response field of an ollama generate reply.
func extractGenerate(body json.RawMessage) string {
	var reply struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	return reply.Response
}

// extractBareString handles text and unknown schemas: a JSON string
// body is unwrapped, raw non-JSON bytes pass through as-is, and any
// other structured body yields nothing.
func extractBareString(body json.RawMessage) string {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	if json.Valid(body) {
		return ""
	}
	return string(body)
}
