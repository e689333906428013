// Package summarizer wraps the completion service with the fixed
// summarization prompt.
package summarizer

import (
	"context"
	"log/slog"

	"github.com/fenwick/pennywise/internal/llm"
	"github.com/fenwick/pennywise/internal/prompts"
)

// Summarizer produces three-sentence summaries of arbitrary text.
type Summarizer struct {
	llm    llm.Client
	logger *slog.Logger
}

// New creates a summarizer.
func New(client llm.Client, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		llm:    client,
		logger: logger.With("component", "summarizer"),
	}
}

// Summarize returns the full summary in one shot.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*llm.Completion, error) {
	return s.llm.Complete(ctx, prompts.Summarize(text))
}

// SummarizeStream streams the summary, delivering partial output to
// callback as it arrives.
func (s *Summarizer) SummarizeStream(ctx context.Context, text string, callback llm.StreamCallback) (*llm.Completion, error) {
	return s.llm.Stream(ctx, prompts.Summarize(text), callback)
}
