// Package llm provides LLM client implementations.
package llm

import "context"

// Client is the interface the rest of Pennywise codes against.
// Implementations return errors for provider failures; translating
// those into user-facing text is the caller's job.
type Client interface {
	// Complete sends a single-prompt completion request and returns
	// the full response.
	Complete(ctx context.Context, prompt string) (*Completion, error)

	// Stream sends a streaming completion request. If callback is
	// non-nil, partial-output tokens are delivered to it as they
	// arrive. The returned Completion carries the accumulated text.
	Stream(ctx context.Context, prompt string, callback StreamCallback) (*Completion, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
