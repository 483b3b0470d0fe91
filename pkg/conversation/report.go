package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// showReport renders one of the read-only "Ver datos" views. Reports
// never touch conversation state.
func (r *Router) showReport(ctx context.Context, userID int64, token string) {
	expenses, incomes, err := r.ledger.ReadAll(ctx)
	if err != nil {
		r.logger.Error("failed to read ledger", "user_id", userID, "error", err)
		r.send(userID, "Error al leer los datos. Inténtalo de nuevo.")
		return
	}

	now := time.Now()

	switch token {
	case tokDataRecent:
		r.done(userID, formatRecent(ledger.RecentMovements(expenses, incomes, recentMovementCount)))

	case tokDataExpenses:
		total := ledger.MonthlyTotal(expenses, now.Year(), now.Month())
		r.done(userID, fmt.Sprintf("Total gastos del mes: %s€", total))

	case tokDataIncome:
		total := ledger.MonthlyTotal(incomes, now.Year(), now.Month())
		r.done(userID, fmt.Sprintf("Total ingresos del mes: %s€", total))

	case tokDataBalance:
		balance := ledger.MonthlyBalance(expenses, incomes, now.Year(), now.Month())
		r.done(userID, fmt.Sprintf("Balance mensual: %s€", balance))
	}
}

func formatRecent(movements []ledger.Movement) string {
	if len(movements) == 0 {
		return "No hay movimientos."
	}

	var b strings.Builder
	b.WriteString("Últimos movimientos:\n\n")
	for _, m := range movements {
		fmt.Fprintf(&b, "%s — %s — %s€\n%s (%s)\n\n",
			m.Date, m.Kind, m.Amount, m.Description, m.Category)
	}
	return b.String()
}
