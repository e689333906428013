package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// handleCalculate evaluates a restricted arithmetic expression. The
// evaluator runs with an empty environment, so expressions cannot
// reference ambient names; anything the evaluator rejects becomes an
// error returned to the registry, which converts it to observation text.
func handleCalculate(_ context.Context, input string) (string, error) {
	expression := strings.TrimSpace(input)
	if expression == "" {
		return "", fmt.Errorf("empty expression")
	}

	result, err := expr.Eval(expression, map[string]any{})
	if err != nil {
		return "", fmt.Errorf("could not evaluate %q: %v", expression, err)
	}

	return fmt.Sprintf("%s = %v", expression, result), nil
}
