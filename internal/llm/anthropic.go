package llm

import (
	"encoding/json"
	"fmt"
)

const (
	anthropicMessagesURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 4096
)

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// the "claude" provider strategy
type anthropicStrategy struct {
	url   string
	model string
}

func newAnthropicStrategy() *anthropicStrategy {
	return &anthropicStrategy{
		url:   anthropicMessagesURL,
		model: defaultAnthropicModel,
	}
}

func (s *anthropicStrategy) buildRequest(apiKey string, history []Message, prompt string) (string, []byte, map[string]string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	body, err := json.Marshal(anthropicRequest{
		Model:     s.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
	}

	return s.url, body, headers, nil
}

func (s *anthropicStrategy) parseResponse(body []byte) (string, error) {
	var resp anthropicResponse

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return NoResponseFallback, nil
	}

	return resp.Content[0].Text, nil
}
