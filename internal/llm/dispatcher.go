package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/codemate/server/internal/errors"
	"codeberg.org/codemate/server/internal/logger"
)

// shared HTTP client for all provider calls
// reuses connection pool and timeout configuration
var providerHTTPClient = &http.Client{
	Timeout: 120 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// supplies the credential for a provider identifier
type KeySource interface {
	APIKey(provider string) string
}

// Dispatcher maps a provider identifier to its request/response strategy
// and performs the transport call. The provider is chosen per call, never
// cached, so a provider switch takes effect on the next message.
type Dispatcher struct {
	keys       KeySource
	strategies map[Provider]strategy
	httpClient *http.Client
	limiters   map[Provider]*rate.Limiter
}

func NewDispatcher(keys KeySource) *Dispatcher {
	return &Dispatcher{
		keys:       keys,
		strategies: newStrategies(),
		httpClient: providerHTTPClient,
		limiters: map[Provider]*rate.Limiter{
			ProviderGPT:    rate.NewLimiter(10, 5),
			ProviderClaude: rate.NewLimiter(10, 5),
			ProviderGrok:   rate.NewLimiter(10, 5),
			ProviderGemini: rate.NewLimiter(10, 5),
		},
	}
}

// the closed strategy set; adding a provider means adding one entry here
func newStrategies() map[Provider]strategy {
	return map[Provider]strategy{
		ProviderGPT:    newOpenAIStrategy(),
		ProviderClaude: newAnthropicStrategy(),
		ProviderGrok:   newXAIStrategy(),
		ProviderGemini: newGeminiStrategy(),
	}
}

// replaces a strategy; used by tests to point at local servers
func (d *Dispatcher) setStrategy(p Provider, s strategy) {
	d.strategies[p] = s
}

// Dispatch sends the enriched prompt plus prior conversation turns to the
// selected provider and returns plain assistant text. Turns use the
// controller's role vocabulary ("user"/"ai") and are mapped here.
func (d *Dispatcher) Dispatch(ctx context.Context, provider Provider, prompt string, turns []Message) (string, error) {
	strat, ok := d.strategies[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}

	apiKey := d.keys.APIKey(string(provider))
	if apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured for provider %q", errors.ErrConfiguration, provider)
	}

	history := normalizeRoles(turns)

	endpoint, body, headers, err := strat.buildRequest(apiKey, history, prompt)
	if err != nil {
		return "", err
	}

	logger.Debug("dispatching provider call",
		"provider", provider,
		"history_turns", len(history),
		"prompt_tokens_estimate", EstimateTokensSimple(prompt),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if limiter, ok := d.limiters[provider]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s call failed: %v", errors.ErrTransport, provider, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s response: %v", errors.ErrTransport, provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		// the raw response body travels with the error so the failure is
		// visible verbatim in the conversation
		return "", fmt.Errorf("%w: %s request failed with status %d: %s",
			errors.ErrTransport, provider, resp.StatusCode, string(respBody))
	}

	return strat.parseResponse(respBody)
}

// maps the controller's role vocabulary to the provider-facing one; loading,
// error, and system entries never reach this point
func normalizeRoles(turns []Message) []Message {
	out := make([]Message, 0, len(turns))

	for _, turn := range turns {
		role := turn.Role
		if role == "ai" {
			role = "assistant"
		}

		out = append(out, Message{Role: role, Content: turn.Content})
	}

	return out
}
