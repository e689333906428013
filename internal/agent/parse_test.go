package agent

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ParsedOutput
	}{
		{
			name: "tool call",
			text: "Thought: Do I need to use a tool? Yes\nAction: add_expense\nAction Input: 30|food|coffee",
			want: ParsedOutput{
				Kind:      KindToolCall,
				Thought:   "Do I need to use a tool? Yes",
				Tool:      "add_expense",
				ToolInput: "30|food|coffee",
			},
		},
		{
			name: "final answer",
			text: "Thought: Do I need to use a tool? No\nFinal Answer: You've spent $30 so far.",
			want: ParsedOutput{
				Kind:        KindFinalAnswer,
				Thought:     "Do I need to use a tool? No",
				FinalAnswer: "You've spent $30 so far.",
			},
		},
		{
			name: "final answer wins over action",
			text: "Action: add_expense\nAction Input: 1|food|x\nFinal Answer: Done.",
			want: ParsedOutput{
				Kind:        KindFinalAnswer,
				FinalAnswer: "Done.",
			},
		},
		{
			name: "multiline final answer",
			text: "Final Answer: Here is your summary:\n- food: $30\n- transport: $20",
			want: ParsedOutput{
				Kind:        KindFinalAnswer,
				FinalAnswer: "Here is your summary:\n- food: $30\n- transport: $20",
			},
		},
		{
			name: "decorated tool name",
			text: "Action: `add_expense`\nAction Input: 5|food|tea",
			want: ParsedOutput{
				Kind:      KindToolCall,
				Tool:      "add_expense",
				ToolInput: "5|food|tea",
			},
		},
		{
			name: "bracketed tool name",
			text: "Action: [get_expense_summary]\nAction Input:",
			want: ParsedOutput{
				Kind: KindToolCall,
				Tool: "get_expense_summary",
			},
		},
		{
			name: "action without input",
			text: "Action: get_budget_status",
			want: ParsedOutput{
				Kind: KindToolCall,
				Tool: "get_budget_status",
			},
		},
		{
			name: "neither grammar arm",
			text: "Sure! I'd be happy to help with your expenses.",
			want: ParsedOutput{
				Kind: KindParseError,
			},
		},
		{
			name: "empty text",
			text: "",
			want: ParsedOutput{
				Kind: KindParseError,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if got.Kind != tt.want.Kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.want.Kind)
			}
			if got.Thought != tt.want.Thought {
				t.Errorf("Thought = %q, want %q", got.Thought, tt.want.Thought)
			}
			if got.FinalAnswer != tt.want.FinalAnswer {
				t.Errorf("FinalAnswer = %q, want %q", got.FinalAnswer, tt.want.FinalAnswer)
			}
			if got.Tool != tt.want.Tool {
				t.Errorf("Tool = %q, want %q", got.Tool, tt.want.Tool)
			}
			if got.ToolInput != tt.want.ToolInput {
				t.Errorf("ToolInput = %q, want %q", got.ToolInput, tt.want.ToolInput)
			}
			if got.Raw != tt.text {
				t.Errorf("Raw not preserved")
			}
		})
	}
}
