package agent

import (
	"regexp"
	"strings"
)

// OutputKind discriminates what the model's text parsed into.
type OutputKind int

const (
	// KindFinalAnswer means the model produced a terminal answer.
	KindFinalAnswer OutputKind = iota

	// KindToolCall means the model requested a tool invocation.
	KindToolCall

	// KindParseError means the text matched neither grammar arm. The
	// loop must feed this back as an observation, never stall on it.
	KindParseError
)

// ParsedOutput is the tagged result of parsing one model response
// against the Thought/Action/Action Input/Final Answer grammar.
type ParsedOutput struct {
	Kind OutputKind

	// Thought is the model's reasoning line, when present (any kind).
	Thought string

	// FinalAnswer is set for KindFinalAnswer.
	FinalAnswer string

	// Tool and ToolInput are set for KindToolCall.
	Tool      string
	ToolInput string

	// Raw is the original text, kept for parse-error observations.
	Raw string
}

var (
	finalAnswerRe = regexp.MustCompile(`(?s)Final Answer\s*:\s*(.*)`)
	actionRe      = regexp.MustCompile(`(?m)^\s*Action\s*:\s*(.+)$`)
	actionInputRe = regexp.MustCompile(`(?m)^\s*Action Input\s*:\s*(.*)$`)
	thoughtRe     = regexp.MustCompile(`(?m)^\s*Thought\s*:\s*(.+)$`)
)

// Parse classifies one model response. A "Final Answer:" marker wins
// over any Action lines; otherwise a matched Action + Action Input pair
// is a tool call; anything else is a recoverable parse error.
func Parse(text string) ParsedOutput {
	out := ParsedOutput{Raw: text}

	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		out.Thought = strings.TrimSpace(m[1])
	}

	if m := finalAnswerRe.FindStringSubmatch(text); m != nil {
		out.Kind = KindFinalAnswer
		out.FinalAnswer = strings.TrimSpace(m[1])
		return out
	}

	action := actionRe.FindStringSubmatch(text)
	if action == nil {
		out.Kind = KindParseError
		return out
	}

	out.Kind = KindToolCall
	out.Tool = cleanToolName(action[1])
	if m := actionInputRe.FindStringSubmatch(text); m != nil {
		out.ToolInput = strings.TrimSpace(m[1])
	}
	return out
}

// cleanToolName strips the decoration models wrap tool names in:
// whitespace, backticks, quotes, and [brackets] from the template.
func cleanToolName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`'\"[]")
	return strings.TrimSpace(s)
}
