// Package ledger implements the in-memory expense store: an append-only
// sequence of expense records plus an optional budget. All arithmetic
// uses decimals; totals are recomputed on demand so a query can never
// observe a stale cache.
package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single expense. Immutable once appended; owned
// exclusively by the Ledger.
type Record struct {
	ID          int             `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Budget is a spending limit. Setting a new budget replaces the old one
// entirely; no history is kept.
type Budget struct {
	Limit decimal.Decimal `json:"limit"`
	SetAt time.Time       `json:"set_at"`
}

// CategoryTotal is a per-category spending subtotal.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Ledger holds expense records and an optional budget. Safe for
// concurrent use; every method takes the internal lock.
type Ledger struct {
	mu      sync.Mutex
	records []Record
	budget  *Budget
	nextID  int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{nextID: 1}
}

// Add appends a record and returns it. IDs are 1-based and increase
// monotonically for the life of the process. Categories are
// case-normalized to lower; negative amounts are accepted as-is.
func (l *Ledger) Add(amount decimal.Decimal, category, description string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		ID:          l.nextID,
		Amount:      amount,
		Category:    strings.ToLower(strings.TrimSpace(category)),
		Description: strings.TrimSpace(description),
		Timestamp:   time.Now(),
	}
	l.nextID++
	l.records = append(l.records, rec)
	return rec
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of all records in insertion order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// TotalSpent sums all record amounts.
func (l *Ledger) TotalSpent() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Ledger) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.records {
		total = total.Add(r.Amount)
	}
	return total
}

// CategoryTotals returns per-category subtotals sorted by amount
// descending. Ties keep the insertion order of first occurrence, so
// repeated calls with no intervening mutation yield identical output.
func (l *Ledger) CategoryTotals() []CategoryTotal {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := make(map[string]int)
	var totals []CategoryTotal
	for _, r := range l.records {
		i, ok := index[r.Category]
		if !ok {
			i = len(totals)
			index[r.Category] = i
			totals = append(totals, CategoryTotal{Category: r.Category})
		}
		totals[i].Total = totals[i].Total.Add(r.Amount)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.GreaterThan(totals[j].Total)
	})
	return totals
}

// SetBudget replaces the budget and returns the new value.
func (l *Ledger) SetBudget(limit decimal.Decimal) Budget {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := Budget{Limit: limit, SetAt: time.Now()}
	l.budget = &b
	return b
}

// Budget returns the current budget, if one is set.
func (l *Ledger) Budget() (Budget, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.budget == nil {
		return Budget{}, false
	}
	return *l.budget, true
}

// Remaining returns limit minus total spent. Negative means over
// budget. ok is false when no budget is set.
func (l *Ledger) Remaining() (rem decimal.Decimal, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.budget == nil {
		return decimal.Zero, false
	}
	return l.budget.Limit.Sub(l.totalLocked()), true
}
