// Command mock-backend runs deterministic stand-ins for the vision APIs
// the bot can call: Gemini generateContent, OpenAI Responses, Anthropic
// Messages, Ollama generate and OpenAI-compatible Chat Completions.
// Point provider base URLs at it to exercise the full pipeline without
// credentials or spend.
//
// Every endpoint answers with a fixed product name. A prompt containing
// "reply unknown" answers "Unknown" instead, which drives the bot's
// unknown-product path from a photo caption.
//
// Configuration:
//
//	MOCK_PORT    - Listen port (default: 9090)
//	MOCK_PRODUCT - Product name to answer (default: "Anker PowerCore 10000")
//	MOCK_FLAKY   - When set, every other call fails with HTTP 500 so
//	               retry and fallback behavior becomes visible
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	product string
	flaky   bool
	calls   atomic.Int64
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	product = os.Getenv("MOCK_PRODUCT")
	if product == "" {
		product = "Anker PowerCore 10000"
	}
	flaky = os.Getenv("MOCK_FLAKY") != ""

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/", handleGemini)
	mux.HandleFunc("POST /v1/responses", handleResponses)
	mux.HandleFunc("POST /v1/messages", handleMessages)
	mux.HandleFunc("POST /api/generate", handleGenerate)
	mux.HandleFunc("POST /v1/chat/completions", handleChat)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "product", product, "flaky", flaky)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// answer picks the reply text for a prompt.
func answer(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "reply unknown") {
		return "Unknown"
	}
	return product
}

// failThisCall implements flaky mode: odd-numbered calls get HTTP 500.
func failThisCall(w http.ResponseWriter) bool {
	if !flaky {
		return false
	}
	if calls.Add(1)%2 == 1 {
		http.Error(w, `{"error":{"message":"mock transient failure"}}`, http.StatusInternalServerError)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --- Gemini generateContent ---

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mime_type"`
				Data     string `json:"data"`
			} `json:"inline_data"`
		} `json:"parts"`
	} `json:"contents"`
}

func handleGemini(w http.ResponseWriter, r *http.Request) {
	if failThisCall(w) {
		return
	}

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	hasImage := false
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			if p.Text != "" {
				prompt = p.Text
			}
			if p.InlineData != nil && p.InlineData.Data != "" {
				hasImage = true
			}
		}
	}
	if !hasImage {
		http.Error(w, `{"error":{"message":"no image part in request"}}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": answer(prompt)}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
	})
}

// --- OpenAI Responses ---

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL string `json:"image_url"`
		} `json:"content"`
	} `json:"input"`
}

func handleResponses(w http.ResponseWriter, r *http.Request) {
	if failThisCall(w) {
		return
	}

	var req responsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	hasImage := false
	for _, in := range req.Input {
		for _, c := range in.Content {
			if c.Type == "input_text" {
				prompt = c.Text
			}
			if c.Type == "input_image" && c.ImageURL != "" {
				hasImage = true
			}
		}
	}
	if !hasImage {
		http.Error(w, `{"error":{"message":"no input_image in request"}}`, http.StatusBadRequest)
		return
	}

	text := answer(prompt)
	writeJSON(w, map[string]any{
		"id":          "resp_mock",
		"object":      "response",
		"model":       req.Model,
		"output_text": text,
		"output": []map[string]any{
			{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
	})
}

// --- Anthropic Messages ---

type messagesRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source *struct {
				Type string `json:"type"`
				Data string `json:"data"`
				URL  string `json:"url"`
			} `json:"source"`
		} `json:"content"`
	} `json:"messages"`
}

func handleMessages(w http.ResponseWriter, r *http.Request) {
	if failThisCall(w) {
		return
	}

	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"type":"error","error":{"message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	hasImage := false
	for _, m := range req.Messages {
		for _, c := range m.Content {
			if c.Type == "text" {
				prompt = c.Text
			}
			if c.Type == "image" && c.Source != nil {
				hasImage = true
			}
		}
	}
	if !hasImage {
		http.Error(w, `{"type":"error","error":{"message":"no image block in request"}}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"id":   "msg_mock",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": answer(prompt)},
		},
		"model":       req.Model,
		"stop_reason": "end_turn",
	})
}

// --- Chat Completions ---

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
		} `json:"content"`
	} `json:"messages"`
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	if failThisCall(w) {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	hasImage := false
	for _, m := range req.Messages {
		for _, c := range m.Content {
			if c.Type == "text" {
				prompt = c.Text
			}
			if c.Type == "image_url" && c.ImageURL != nil && c.ImageURL.URL != "" {
				hasImage = true
			}
		}
	}
	if !hasImage {
		http.Error(w, `{"error":{"message":"no image_url part in request"}}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"id":     "chatcmpl_mock",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": answer(prompt),
				},
				"finish_reason": "stop",
			},
		},
	})
}

// --- Ollama generate ---

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if failThisCall(w) {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		http.Error(w, `{"error":"no images in request"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"model":    req.Model,
		"response": answer(req.Prompt),
		"done":     true,
	})
}
