package llm

// Completion is the unified response from a provider. Wire format
// conversion happens at provider boundaries (gemini.go).
type Completion struct {
	Text  string
	Model string

	// Token usage (provider-neutral; zero when the provider omits it)
	InputTokens  int
	OutputTokens int
}

// StreamCallback receives incremental text tokens during a streaming
// completion. Tokens arrive in order; concatenating them reproduces
// the final text.
type StreamCallback func(token string)
