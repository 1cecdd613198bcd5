package llm

// represents different LLM providers
type Provider string

// the closed set of provider identifiers
const (
	ProviderGPT    Provider = "gpt"
	ProviderClaude Provider = "claude"
	ProviderGrok   Provider = "grok"
	ProviderGemini Provider = "gemini"
)

// literal returned whenever a provider's success envelope is missing the
// expected text field
const NoResponseFallback = "[No response]"

// reports whether the identifier names a known provider
func ValidProvider(p Provider) bool {
	switch p {
	case ProviderGPT, ProviderClaude, ProviderGrok, ProviderGemini:
		return true
	default:
		return false
	}
}

// a single conversation turn as providers see it
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// strategy isolates one provider's payload shape: request building,
// credential placement, and success-envelope parsing. Adding a provider is
// a pure extension: implement strategy, register it in newStrategies.
type strategy interface {
	// serializes history plus the new prompt into the provider's body and
	// returns the endpoint URL and the headers carrying the credential
	// (Gemini carries its credential in the URL instead)
	buildRequest(apiKey string, history []Message, prompt string) (url string, body []byte, headers map[string]string, err error)

	// extracts plain assistant text from a success envelope; a missing
	// field yields NoResponseFallback, never an error
	parseResponse(body []byte) (string, error)
}
