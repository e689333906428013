// Package tools defines the tools available to the expense agent.
//
// Every tool is total at the registry boundary: malformed input,
// handler errors, and even panics become observation text rather than
// propagating. The agent loop depends on always receiving some
// observation to feed back into the next prompt.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick/pennywise/internal/ledger"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, input string) (string, error)
}

// Registry holds available tools in registration order.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates a tool registry bound to the given ledger.
func NewRegistry(led *ledger.Ledger) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	r.registerExpenseTools(led)
	r.Register(&Tool{
		Name:        "calculate",
		Description: "Evaluate an arithmetic expression, e.g. '12.5 * 3 + 4'. Use this for any math the user asks for.",
		Handler:     handleCalculate,
	})
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Describe renders one "name: description" line per tool for inclusion
// in the agent prompt.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		fmt.Fprintf(&b, "%s: %s\n", name, r.tools[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Observe runs a tool by name and always returns observation text.
// Unknown tools, handler errors, and panics are all converted to error
// strings so the caller never has to handle a failure path.
func (r *Registry) Observe(ctx context.Context, name, input string) (obs string) {
	defer func() {
		if p := recover(); p != nil {
			obs = fmt.Sprintf("Error: tool %q panicked: %v", name, p)
		}
	}()

	tool := r.tools[strings.TrimSpace(name)]
	if tool == nil {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.",
			name, strings.Join(r.Names(), ", "))
	}

	result, err := tool.Handler(ctx, input)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}
