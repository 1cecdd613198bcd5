package llm

import (
	"encoding/json"
	"fmt"
)

const (
	openaiChatURL      = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o"
)

// OpenAI-compatible /chat/completions envelope, shared with the xAI strategy
type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// the "gpt" provider strategy
type openaiStrategy struct {
	url   string
	model string
}

func newOpenAIStrategy() *openaiStrategy {
	return &openaiStrategy{
		url:   openaiChatURL,
		model: defaultOpenAIModel,
	}
}

func (s *openaiStrategy) buildRequest(apiKey string, history []Message, prompt string) (string, []byte, map[string]string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}

	return s.url, body, headers, nil
}

func (s *openaiStrategy) parseResponse(body []byte) (string, error) {
	var resp chatCompletionResponse

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return NoResponseFallback, nil
	}

	return resp.Choices[0].Message.Content, nil
}
