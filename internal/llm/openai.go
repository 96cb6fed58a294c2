package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// The agent targets Groq by default, but Ollama's compatibility layer
// and OpenAI proper work identically.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewOpenAIClient creates a chat completions client. baseURL should
// include the API prefix (e.g., "https://api.groq.com/openai/v1").
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse is the subset of the response body we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat implements [Client].
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "llm request", "payload", string(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat completions HTTP %d: %s", resp.StatusCode, string(msg))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	reply := cr.Choices[0].Message.Content
	c.logger.Debug("llm chat completed",
		"model", c.model,
		"duration", time.Since(start),
		"reply_len", len(reply),
	)

	return reply, nil
}
