// Package ai implements the digest pipeline: context building, the call to
// the external completion capability, tag reconciliation and the orchestrator
// that materializes digest output back into a room.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/metrics"
)

// Fallback sentinels substituted when a digest field cannot be produced.
const (
	FallbackSummary = "Resumo indisponível."
	FallbackPitch   = "Pitch indisponível."
)

// FallbackTags returns the placeholder tag sequence used when the completion
// output carried no usable tag array.
func FallbackTags() []string {
	return []string{"tag1", "tag2", "tag3"}
}

// DigestResult is the structured artifact derived from room history.
// Each field may independently hold its fallback sentinel.
type DigestResult struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Pitch   string   `json:"pitch"`
}

func fallbackResult() DigestResult {
	return DigestResult{Summary: FallbackSummary, Tags: FallbackTags(), Pitch: FallbackPitch}
}

// Config holds settings for the completion client.
type Config struct {
	APIKey  string // empty switches the client to mock mode
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client invokes the Groq completion API (OpenAI-compatible). Without an API
// key it runs in mock mode and returns a fixed deterministic digest, which is
// the supported local/offline operating mode, not an error path.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-8b-instant"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

const systemPrompt = "Você é um assistente que responde SOMENTE com JSON válido (um único objeto)."

// buildPrompt renders the fixed-format user instruction for a context blob.
func buildPrompt(contextText string) string {
	if contextText == "" {
		contextText = EmptyContext
	}
	return strings.Join([]string{
		"Resuma o diálogo abaixo em 3–5 frases.",
		"Depois gere de 3–5 tags curtas (1–2 palavras, em minúsculas).",
		"Por fim, escreva um pitch curto (2–3 frases).",
		"Responda APENAS com um JSON válido, sem markdown, sem comentários, um único objeto.",
		`Formato exato: {"summary":"...", "tags":["..."], "pitch":"..."}`,
		"---",
		contextText,
	}, "\n")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	MaxTokens      int             `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize invokes the completion capability for a context blob. It never
// returns an error: transport failures, bad statuses and unparseable output
// all degrade to fallback values, logged and counted but absorbed here.
func (c *Client) Summarize(ctx context.Context, contextText string) DigestResult {
	// Mock mode for local development without a key
	if c.apiKey == "" {
		return DigestResult{
			Summary: "Discussão sobre novas features e ideias para o PitchLab.",
			Tags:    []string{"ideação", "produto", "MVP"},
			Pitch: "PitchLab é uma sala colaborativa de ideação com chat em tempo real, " +
				"geração de ideias e IA que resume, classifica e propõe um pitch conciso a partir da conversa.",
		}
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(contextText)},
		},
		Temperature: 0.3,
		// Force pure JSON output (OpenAI-compatible mode)
		ResponseFormat: &responseFormat{Type: "json_object"},
		MaxTokens:      500,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Error().Err(err).Msg("completion request marshal failed")
		metrics.CompletionFallbacks.WithLabelValues("transport").Inc()
		return fallbackResult()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		c.logger.Error().Err(err).Msg("completion request build failed")
		metrics.CompletionFallbacks.WithLabelValues("transport").Inc()
		return fallbackResult()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("completion request failed")
		metrics.CompletionFallbacks.WithLabelValues("transport").Inc()
		return fallbackResult()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("completion response read failed")
		metrics.CompletionFallbacks.WithLabelValues("transport").Inc()
		return fallbackResult()
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("completion HTTP error")
		metrics.CompletionFallbacks.WithLabelValues("status").Inc()
		return fallbackResult()
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil || len(chat.Choices) == 0 {
		c.logger.Error().Err(err).Msg("completion response envelope not parseable")
		metrics.CompletionFallbacks.WithLabelValues("parse").Inc()
		return fallbackResult()
	}

	content := chat.Choices[0].Message.Content
	result, ok := parseDigest(content)
	if !ok {
		c.logger.Error().Str("content", content).Msg("completion content is not a digest JSON object")
		metrics.CompletionFallbacks.WithLabelValues("parse").Inc()
	}
	return result
}

// parseDigest decodes and validates model output. Code-fence wrapping is
// removed in a single normalization pass before the one decode; each field is
// validated independently so a malformed tags value does not invalidate a
// good summary. The boolean is false only when the whole object was malformed.
func parseDigest(content string) (DigestResult, bool) {
	cleaned := stripFences(content)

	var raw struct {
		Summary any `json:"summary"`
		Tags    any `json:"tags"`
		Pitch   any `json:"pitch"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return fallbackResult(), false
	}

	result := DigestResult{Summary: FallbackSummary, Pitch: FallbackPitch}

	if s, ok := raw.Summary.(string); ok {
		result.Summary = s
	}
	if p, ok := raw.Pitch.(string); ok {
		result.Pitch = p
	}
	if entries, ok := raw.Tags.([]any); ok {
		result.Tags = normalizeTags(entries)
	} else {
		result.Tags = FallbackTags()
	}

	return result, true
}

// stripFences removes markdown code-fence wrapping some models add despite
// the JSON-only instruction.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// normalizeTags coerces tag entries to lowercase trimmed strings,
// dropping entries that end up empty.
func normalizeTags(entries []any) []string {
	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		tags = append(tags, s)
	}
	return tags
}
