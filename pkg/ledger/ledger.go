// Package ledger defines the core transaction types and the Store
// capability backed by the spreadsheet ledger.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction as an expense or an income. The values
// are the user-facing Spanish labels and double as the persisted form.
type Kind string

const (
	Expense Kind = "Gasto"
	Income  Kind = "Ingreso"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

// ExpenseCategories lists the selectable categories for expenses.
// Order matters: keyboards render the entries in this order.
var ExpenseCategories = []string{
	"Comida",
	"Regalos",
	"Salud/médicos",
	"Vivienda",
	"Transporte",
	"Gastos personales",
	"Mascotas",
	"Suministros (luz, agua, gas, etc.)",
	"Viajes",
	"Deuda",
	"Otros",
}

// IncomeCategories lists the selectable categories for income.
var IncomeCategories = []string{
	"Ahorro",
	"Sueldo",
	"Bonificaciones",
	"Intereses",
	"Otros",
}

// PaymentMethods lists the selectable payment methods, shared by both kinds.
var PaymentMethods = []string{
	"Tarjeta",
	"Cuenta bancaria",
	"Bizum",
	"Efectivo",
	"PayPal",
}

// CategoriesFor returns the category list for the given kind.
func CategoriesFor(kind Kind) []string {
	if kind == Income {
		return IncomeCategories
	}
	return ExpenseCategories
}

// Row is one ledger line as stored in the sheet: date (YYYY-MM-DD),
// amount, description and category.
type Row struct {
	Date        string
	Amount      decimal.Decimal
	Description string
	Category    string
}

// Movement is a Row tagged with the series it came from.
type Movement struct {
	Kind Kind
	Row
}

// Store is the append-only transaction ledger. Expense and income rows
// live in two separate series.
type Store interface {
	// Append adds one row to the series for kind, dated date.
	Append(ctx context.Context, kind Kind, date time.Time, amount decimal.Decimal, description, category string) error
	// ReadAll returns both series in their stored order.
	ReadAll(ctx context.Context) (expenses, incomes []Row, err error)
}

// DateFormat is the ledger's date representation.
const DateFormat = "2006-01-02"

// ParseAmount parses a user-entered amount, accepting both "," and "."
// as decimal separator.
func ParseAmount(text string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", text, err)
	}
	return d, nil
}
