package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	led := New()

	for want := 1; want <= 5; want++ {
		rec := led.Add(dec(t, "10"), "food", "snack")
		if rec.ID != want {
			t.Errorf("record %d: got ID %d, want %d", want, rec.ID, want)
		}
	}
	if led.Len() != 5 {
		t.Errorf("Len() = %d, want 5", led.Len())
	}
}

func TestAddNormalizesCategory(t *testing.T) {
	led := New()

	rec := led.Add(dec(t, "12.50"), "  Food ", " coffee ")
	if rec.Category != "food" {
		t.Errorf("category = %q, want %q", rec.Category, "food")
	}
	if rec.Description != "coffee" {
		t.Errorf("description = %q, want %q", rec.Description, "coffee")
	}
}

func TestTotalSpentEqualsSumOfRecords(t *testing.T) {
	led := New()
	amounts := []string{"10.10", "0.01", "99.99", "3"}

	want := decimal.Zero
	for _, a := range amounts {
		d := dec(t, a)
		led.Add(d, "misc", a)
		want = want.Add(d)
	}

	if got := led.TotalSpent(); !got.Equal(want) {
		t.Errorf("TotalSpent() = %s, want %s", got, want)
	}

	// The same invariant holds over the returned records.
	sum := decimal.Zero
	for _, r := range led.Records() {
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(want) {
		t.Errorf("sum over Records() = %s, want %s", sum, want)
	}
}

func TestCategoryTotalsSortedDescending(t *testing.T) {
	led := New()
	led.Add(dec(t, "10"), "food", "lunch")
	led.Add(dec(t, "50"), "transport", "taxi")
	led.Add(dec(t, "25"), "food", "dinner")
	led.Add(dec(t, "5"), "bills", "water")

	totals := led.CategoryTotals()
	if len(totals) != 3 {
		t.Fatalf("got %d categories, want 3", len(totals))
	}

	wantOrder := []string{"transport", "food", "bills"}
	wantTotal := []string{"50", "35", "5"}
	for i, ct := range totals {
		if ct.Category != wantOrder[i] {
			t.Errorf("position %d: category %q, want %q", i, ct.Category, wantOrder[i])
		}
		if !ct.Total.Equal(dec(t, wantTotal[i])) {
			t.Errorf("position %d: total %s, want %s", i, ct.Total, wantTotal[i])
		}
	}
}

func TestCategoryTotalsTiesKeepInsertionOrder(t *testing.T) {
	led := New()
	led.Add(dec(t, "20"), "food", "a")
	led.Add(dec(t, "20"), "transport", "b")
	led.Add(dec(t, "20"), "bills", "c")

	// Two calls with no intervening mutation must agree exactly.
	first := led.CategoryTotals()
	second := led.CategoryTotals()

	wantOrder := []string{"food", "transport", "bills"}
	for i := range first {
		if first[i].Category != wantOrder[i] {
			t.Errorf("first call position %d: %q, want %q", i, first[i].Category, wantOrder[i])
		}
		if first[i].Category != second[i].Category {
			t.Errorf("position %d differs between calls: %q vs %q",
				i, first[i].Category, second[i].Category)
		}
	}
}

func TestSetBudgetReplacesPrevious(t *testing.T) {
	led := New()

	led.SetBudget(dec(t, "100"))
	led.SetBudget(dec(t, "250"))

	b, ok := led.Budget()
	if !ok {
		t.Fatal("Budget() reported no budget after SetBudget")
	}
	if !b.Limit.Equal(dec(t, "250")) {
		t.Errorf("limit = %s, want 250", b.Limit)
	}
}

func TestRemaining(t *testing.T) {
	led := New()

	if _, ok := led.Remaining(); ok {
		t.Error("Remaining() ok = true with no budget set")
	}

	led.SetBudget(dec(t, "100"))
	led.Add(dec(t, "90"), "food", "feast")

	rem, ok := led.Remaining()
	if !ok {
		t.Fatal("Remaining() ok = false with budget set")
	}
	if !rem.Equal(dec(t, "10")) {
		t.Errorf("remaining = %s, want 10", rem)
	}

	led.Add(dec(t, "30"), "food", "more")
	rem, _ = led.Remaining()
	if !rem.Equal(dec(t, "-20")) {
		t.Errorf("remaining = %s, want -20 (over budget)", rem)
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	led := New()
	led.Add(dec(t, "10"), "food", "x")

	recs := led.Records()
	recs[0].Description = "mutated"

	if led.Records()[0].Description != "x" {
		t.Error("mutating the returned slice leaked into the ledger")
	}
}
