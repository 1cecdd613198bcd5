package llm

const (
	xaiChatURL      = "https://api.x.ai/v1/chat/completions"
	defaultXAIModel = "grok-2-latest"
)

// the "grok" provider strategy. xAI exposes an OpenAI-compatible
// /chat/completions API, so the envelope types are shared; only the host,
// model, and credential differ.
type xaiStrategy struct {
	openaiStrategy
}

func newXAIStrategy() *xaiStrategy {
	return &xaiStrategy{
		openaiStrategy: openaiStrategy{
			url:   xaiChatURL,
			model: defaultXAIModel,
		},
	}
}
