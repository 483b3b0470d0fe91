package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecentMovements merges the tail of both series into the n most recent
// movements overall. The merge only ever compares the heads of the two
// series, so rows from the same series keep their stored order even when
// their dates are out of order. Dates compare as strings; on a tie the
// expense comes first.
func RecentMovements(expenses, incomes []Row, n int) []Movement {
	if n <= 0 {
		return nil
	}

	exp := tail(expenses, n)
	inc := tail(incomes, n)

	merged := make([]Movement, 0, len(exp)+len(inc))
	for len(exp) > 0 && len(inc) > 0 {
		if exp[0].Date <= inc[0].Date {
			merged = append(merged, Movement{Kind: Expense, Row: exp[0]})
			exp = exp[1:]
		} else {
			merged = append(merged, Movement{Kind: Income, Row: inc[0]})
			inc = inc[1:]
		}
	}
	for _, r := range exp {
		merged = append(merged, Movement{Kind: Expense, Row: r})
	}
	for _, r := range inc {
		merged = append(merged, Movement{Kind: Income, Row: r})
	}

	if len(merged) > n {
		merged = merged[len(merged)-n:]
	}
	return merged
}

// MonthlyTotal sums the amounts of rows belonging to the given month.
// Membership is decided by string prefix on the YYYY-MM-DD date, exactly
// as the sheet stores it.
func MonthlyTotal(rows []Row, year int, month time.Month) decimal.Decimal {
	prefix := fmt.Sprintf("%04d-%02d", year, month)

	total := decimal.Zero
	for _, r := range rows {
		if strings.HasPrefix(r.Date, prefix) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// MonthlyBalance is the month's income total minus its expense total.
func MonthlyBalance(expenses, incomes []Row, year int, month time.Month) decimal.Decimal {
	return MonthlyTotal(incomes, year, month).Sub(MonthlyTotal(expenses, year, month))
}

func tail(rows []Row, n int) []Row {
	if len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
