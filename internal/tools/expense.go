package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fenwick/pennywise/internal/ledger"
)

// recentTail is how many of the newest records the summary lists.
const recentTail = 3

func (r *Registry) registerExpenseTools(led *ledger.Ledger) {
	r.Register(&Tool{
		Name: "add_expense",
		Description: "Record a spending. Input is 'amount|category|description', " +
			"e.g. '30|food|coffee'. Categories: food, transport, shopping, " +
			"entertainment, bills, health, education, other.",
		Handler: func(ctx context.Context, input string) (string, error) {
			return handleAddExpense(led, input)
		},
	})
	r.Register(&Tool{
		Name: "get_expense_summary",
		Description: "Summarize all recorded expenses: total spending, breakdown " +
			"by category, and recent records. Input is ignored.",
		Handler: func(ctx context.Context, input string) (string, error) {
			return handleExpenseSummary(led), nil
		},
	})
	r.Register(&Tool{
		Name: "set_budget",
		Description: "Set a spending budget. Input is a single positive number, " +
			"e.g. '500'. Replaces any previous budget.",
		Handler: func(ctx context.Context, input string) (string, error) {
			return handleSetBudget(led, input)
		},
	})
	r.Register(&Tool{
		Name: "get_budget_status",
		Description: "Report how much of the budget has been spent and how much " +
			"remains. Input is ignored.",
		Handler: func(ctx context.Context, input string) (string, error) {
			return handleBudgetStatus(led), nil
		},
	})
}

// parseExpenseInput splits 'amount|category|description'. Two fields
// collapse category and description into the same value.
func parseExpenseInput(input string) (amount decimal.Decimal, category, description string, err error) {
	fields := strings.Split(input, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 2 {
		return decimal.Zero, "", "", fmt.Errorf(
			"expected 'amount|category|description', got %q", strings.TrimSpace(input))
	}

	amount, err = decimal.NewFromString(strings.TrimPrefix(fields[0], "$"))
	if err != nil {
		return decimal.Zero, "", "", fmt.Errorf("amount %q is not a number", fields[0])
	}

	category = fields[1]
	if len(fields) >= 3 {
		description = strings.Join(fields[2:], "|")
	} else {
		description = category
	}
	return amount, category, description, nil
}

func handleAddExpense(led *ledger.Ledger, input string) (string, error) {
	amount, category, description, err := parseExpenseInput(input)
	if err != nil {
		return "", err
	}

	rec := led.Add(amount, category, description)
	msg := fmt.Sprintf("Successfully added expense: %s ($%s) in category '%s'.",
		rec.Description, rec.Amount.StringFixed(2), rec.Category)

	if budget, ok := led.Budget(); ok {
		remaining := budget.Limit.Sub(led.TotalSpent())
		switch {
		case remaining.IsNegative():
			msg += fmt.Sprintf(" Warning: you are over budget by $%s!",
				remaining.Neg().StringFixed(2))
		case remaining.LessThan(budget.Limit.Mul(decimal.NewFromFloat(0.2))):
			msg += fmt.Sprintf(" Warning: only $%s of your $%s budget remains.",
				remaining.StringFixed(2), budget.Limit.StringFixed(2))
		default:
			msg += fmt.Sprintf(" You have $%s of your $%s budget remaining.",
				remaining.StringFixed(2), budget.Limit.StringFixed(2))
		}
	}
	return msg, nil
}

func handleExpenseSummary(led *ledger.Ledger) string {
	records := led.Records()
	if len(records) == 0 {
		return "No expenses have been recorded yet."
	}

	total := led.TotalSpent()

	var b strings.Builder
	fmt.Fprintf(&b, "Total expenses recorded: %d\n", len(records))
	fmt.Fprintf(&b, "Total amount spent: $%s\n", total.StringFixed(2))
	b.WriteString("Breakdown by category:\n")
	for _, ct := range led.CategoryTotals() {
		fmt.Fprintf(&b, "- %s: $%s (%s%%)\n",
			capitalize(ct.Category), ct.Total.StringFixed(2), percentOf(ct.Total, total))
	}

	if budget, ok := led.Budget(); ok {
		remaining := budget.Limit.Sub(total)
		if remaining.IsNegative() {
			fmt.Fprintf(&b, "Budget: $%s of $%s used (%s%%), $%s over budget.\n",
				total.StringFixed(2), budget.Limit.StringFixed(2),
				percentOf(total, budget.Limit), remaining.Neg().StringFixed(2))
		} else {
			fmt.Fprintf(&b, "Budget: $%s of $%s used (%s%%), $%s remaining.\n",
				total.StringFixed(2), budget.Limit.StringFixed(2),
				percentOf(total, budget.Limit), remaining.StringFixed(2))
		}
	}

	b.WriteString("Recent expenses:\n")
	start := len(records) - recentTail
	if start < 0 {
		start = 0
	}
	for _, rec := range records[start:] {
		fmt.Fprintf(&b, "- #%d: %s (%s) $%s\n",
			rec.ID, rec.Description, rec.Category, rec.Amount.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

func handleSetBudget(led *ledger.Ledger, input string) (string, error) {
	limit, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(input), "$"))
	if err != nil {
		return "", fmt.Errorf("budget %q is not a number", strings.TrimSpace(input))
	}
	if !limit.IsPositive() {
		return "", fmt.Errorf("budget must be a positive number, got %s", limit)
	}

	budget := led.SetBudget(limit)
	spent := led.TotalSpent()
	remaining := budget.Limit.Sub(spent)
	if remaining.IsNegative() {
		return fmt.Sprintf("Budget set to $%s. You have already spent $%s; you are $%s over.",
			budget.Limit.StringFixed(2), spent.StringFixed(2), remaining.Neg().StringFixed(2)), nil
	}
	return fmt.Sprintf("Budget set to $%s. You have spent $%s so far; $%s remains.",
		budget.Limit.StringFixed(2), spent.StringFixed(2), remaining.StringFixed(2)), nil
}

func handleBudgetStatus(led *ledger.Ledger) string {
	budget, ok := led.Budget()
	if !ok {
		return "No budget has been set yet."
	}

	spent := led.TotalSpent()
	remaining := budget.Limit.Sub(spent)
	pct := percentOf(spent, budget.Limit)

	if remaining.IsNegative() {
		return fmt.Sprintf("You are over budget! Spent $%s of $%s ($%s over).",
			spent.StringFixed(2), budget.Limit.StringFixed(2), remaining.Neg().StringFixed(2))
	}

	used := spent.Div(budget.Limit).Mul(decimal.NewFromInt(100))
	switch {
	case used.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return fmt.Sprintf("Critical: %s%% of your budget is used. Only $%s of $%s remains.",
			pct, remaining.StringFixed(2), budget.Limit.StringFixed(2))
	case used.GreaterThanOrEqual(decimal.NewFromInt(75)):
		return fmt.Sprintf("Warning: %s%% of your budget is used. $%s of $%s remains.",
			pct, remaining.StringFixed(2), budget.Limit.StringFixed(2))
	case used.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return fmt.Sprintf("Heads up: %s%% of your budget is used. $%s of $%s remains.",
			pct, remaining.StringFixed(2), budget.Limit.StringFixed(2))
	default:
		return fmt.Sprintf("You're doing well: only %s%% of your budget is used. $%s of $%s remains.",
			pct, remaining.StringFixed(2), budget.Limit.StringFixed(2))
	}
}

// percentOf formats part/whole as a percentage with one decimal place.
// A zero whole reports 0.0 rather than dividing by zero.
func percentOf(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.0"
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(1)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
