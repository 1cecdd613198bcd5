package llm

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.0-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Role  string       `json:"role"`
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// the "gemini" provider strategy. Gemini's role vocabulary is user/model
// and the credential travels in the query string.
type geminiStrategy struct {
	baseURL string
	model   string
}

func newGeminiStrategy() *geminiStrategy {
	return &geminiStrategy{
		baseURL: geminiBaseURL,
		model:   defaultGeminiModel,
	}
}

func (s *geminiStrategy) buildRequest(apiKey string, history []Message, prompt string) (string, []byte, map[string]string, error) {
	contents := make([]geminiContent, 0, len(history)+1)

	for _, msg := range history {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}

		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: prompt}},
	})

	body, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		s.baseURL, s.model, url.QueryEscape(apiKey))

	headers := map[string]string{
		"Content-Type": "application/json",
	}

	return endpoint, body, headers, nil
}

func (s *geminiStrategy) parseResponse(body []byte) (string, error) {
	var resp geminiResponse

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return NoResponseFallback, nil
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return NoResponseFallback, nil
	}

	return text, nil
}
