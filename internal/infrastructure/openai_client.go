package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dmasistan/internal/entities"
)

// ErrMissingAPIKey signals that no model credentials are configured.
// Callers substitute a templated fallback reply instead of failing the
// pipeline.
var ErrMissingAPIKey = errors.New("openai api key not configured")

type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: 0.7,
		maxTokens:   500,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []entities.ChatTurn `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends system prompt + history + the new user message to the
// chat completions endpoint and returns the assistant's text.
func (c *OpenAIClient) Complete(ctx context.Context, system string, history []entities.ChatTurn, userMessage string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	messages := make([]entities.ChatTurn, 0, len(history)+2)
	messages = append(messages, entities.ChatTurn{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, entities.ChatTurn{Role: "user", Content: userMessage})

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, string(body))
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
