// Package agent implements the expense agent's bounded
// think/act/observe loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fenwick/pennywise/internal/llm"
	"github.com/fenwick/pennywise/internal/prompts"
	"github.com/fenwick/pennywise/internal/tools"
)

// Finish reasons reported in Result.FinishReason.
const (
	FinishAnswered      = "answered"
	FinishMaxIterations = "max_iterations"
	FinishTimeout       = "timeout"
	FinishRepetition    = "repetition"
	FinishProviderError = "provider_error"
)

// Degraded answers for the non-crashing failure modes. The tracker
// endpoint returns these with HTTP 200; a raw error never reaches the
// client body.
const (
	timeoutAnswer = "I ran out of time working on that. Your last action likely " +
		"succeeded; ask for an expense summary to double-check."
	maxIterationsAnswer = "I couldn't finish working through that in the allowed " +
		"number of steps. Your last action likely succeeded; ask for an expense " +
		"summary to double-check."
	providerErrorAnswer = "I'm sorry, I ran into a problem reaching the language " +
		"model. Please try again in a moment."
	parseRetryObservation = "Could not parse that response. Reply with either an " +
		"'Action:' line naming one tool plus an 'Action Input:' line, or a " +
		"'Final Answer:' line."
)

// Config bounds a loop run.
type Config struct {
	// MaxIterations caps think/act cycles per run. Default 5.
	MaxIterations int

	// Timeout is the wall-clock budget per run. Default 10s.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Step records one completed think/act/observe cycle. Steps exist only
// for the duration of a run; they are rendered into the scratchpad of
// the next prompt.
type Step struct {
	Thought     string
	Action      string
	ActionInput string
	Observation string
}

// Result is the outcome of one loop run. Answer is always populated,
// even for the degraded finish reasons.
type Result struct {
	Answer       string
	FinishReason string
	Steps        []Step

	InputTokens  int
	OutputTokens int
}

// Loop drives bounded think/act/observe cycles against a completion
// service. It is stateless across runs; per-session state lives in the
// session store and the per-session ledger behind the tool registry.
type Loop struct {
	llm    llm.Client
	logger *slog.Logger
	cfg    Config
}

// New creates a loop. cfg zero values fall back to defaults.
func New(client llm.Client, logger *slog.Logger, cfg Config) *Loop {
	cfg.applyDefaults()
	return &Loop{
		llm:    client,
		logger: logger.With("component", "agent"),
		cfg:    cfg,
	}
}

// Run executes the loop for one user prompt. history is the rendered
// session transcript; reg is the tool registry bound to that session's
// ledger.
//
// Run returns an error only when the caller's context is canceled
// (client disconnect). Every other failure — provider errors, parse
// failures, iteration and time exhaustion — is absorbed into a Result
// with a degraded answer and the matching FinishReason.
func (l *Loop) Run(ctx context.Context, reg *tools.Registry, history, question string) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	l.logger.Info("agent loop started",
		"max_iterations", l.cfg.MaxIterations,
		"timeout", l.cfg.Timeout,
	)

	result := &Result{}
	var steps []Step

	for iter := 0; iter < l.cfg.MaxIterations; iter++ {
		prompt := prompts.React(reg.Describe(), reg.Names(), history, question, renderScratchpad(steps))

		comp, err := l.llm.Complete(runCtx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				// The caller is gone; nobody will read an answer.
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				l.logger.Warn("agent loop timed out", "iteration", iter)
				result.Answer = bestObservation(steps, timeoutAnswer)
				result.FinishReason = FinishTimeout
				result.Steps = steps
				return result, nil
			}
			l.logger.Error("completion service failed", "iteration", iter, "error", err)
			result.Answer = providerErrorAnswer
			result.FinishReason = FinishProviderError
			result.Steps = steps
			return result, nil
		}
		result.InputTokens += comp.InputTokens
		result.OutputTokens += comp.OutputTokens

		parsed := Parse(comp.Text)
		switch parsed.Kind {
		case KindFinalAnswer:
			l.logger.Info("agent loop answered", "iterations", iter+1)
			result.Answer = parsed.FinalAnswer
			result.FinishReason = FinishAnswered
			result.Steps = steps
			return result, nil

		case KindParseError:
			l.logger.Debug("unparseable model output", "iteration", iter, "output_len", len(parsed.Raw))
			steps = append(steps, Step{
				Thought:     parsed.Thought,
				Observation: parseRetryObservation,
			})

		case KindToolCall:
			if prev, ok := lastStep(steps); ok &&
				prev.Action == parsed.Tool && prev.ActionInput == parsed.ToolInput {
				// The model is spinning on the same call; stop paying
				// for it and hand back what we already know.
				l.logger.Warn("repeated tool call, forcing termination",
					"tool", parsed.Tool, "iteration", iter)
				result.Answer = bestObservation(steps, maxIterationsAnswer)
				result.FinishReason = FinishRepetition
				result.Steps = steps
				return result, nil
			}

			obs := reg.Observe(runCtx, parsed.Tool, parsed.ToolInput)
			l.logger.Debug("tool invoked",
				"tool", parsed.Tool,
				"input", parsed.ToolInput,
				"observation_len", len(obs),
			)
			steps = append(steps, Step{
				Thought:     parsed.Thought,
				Action:      parsed.Tool,
				ActionInput: parsed.ToolInput,
				Observation: obs,
			})
		}
	}

	l.logger.Warn("agent loop hit iteration cap", "iterations", l.cfg.MaxIterations)
	result.Answer = bestObservation(steps, maxIterationsAnswer)
	result.FinishReason = FinishMaxIterations
	result.Steps = steps
	return result, nil
}

// renderScratchpad serializes completed steps back into the grammar the
// prompt template established, continuing from the trailing "Thought:".
func renderScratchpad(steps []Step) string {
	var b strings.Builder
	for i, s := range steps {
		if i > 0 || s.Thought != "" {
			fmt.Fprintf(&b, "%s\n", s.Thought)
		}
		if s.Action != "" {
			fmt.Fprintf(&b, "Action: %s\n", s.Action)
			fmt.Fprintf(&b, "Action Input: %s\n", s.ActionInput)
		}
		fmt.Fprintf(&b, "Observation: %s\n", s.Observation)
		b.WriteString("Thought: ")
	}
	return b.String()
}

func lastStep(steps []Step) (Step, bool) {
	if len(steps) == 0 {
		return Step{}, false
	}
	return steps[len(steps)-1], true
}

// bestObservation returns the most recent tool observation, falling
// back to the given text when no step produced one.
func bestObservation(steps []Step, fallback string) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Action != "" && steps[i].Observation != "" {
			return steps[i].Observation
		}
	}
	return fallback
}
