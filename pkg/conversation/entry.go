package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// startEntry begins the "record one transaction now" wizard.
func (r *Router) startEntry(userID int64, kind ledger.Kind) {
	r.setState(userID, &entryState{Step: StepAmount, Kind: kind})
	r.promptFreeText(userID, "Introduce importe:")
}

// entryText consumes free text while the entry wizard is active. Only
// the amount step accepts text; a failed parse re-prompts in place.
func (r *Router) entryText(userID int64, s *entryState, text string) {
	if s.Step != StepAmount {
		return
	}

	amount, err := ledger.ParseAmount(text)
	if err != nil {
		r.send(userID, "Importe inválido.")
		return
	}

	s.Amount = amount
	s.Step = StepCategory
	r.setState(userID, s)
	r.prompt(userID, "Categoría:", categoryRows(s.Kind))
}

// entrySelection consumes keyboard presses while the entry wizard is
// active. Tokens outside the current step's domain are ignored.
func (r *Router) entrySelection(ctx context.Context, userID int64, s *entryState, token string) {
	switch s.Step {
	case StepCategory:
		if !validCategory(s.Kind, token) {
			return
		}
		s.Category = token
		s.Step = StepMethod
		r.setState(userID, s)
		r.prompt(userID, "Método:", methodRows())

	case StepMethod:
		if !validMethod(token) {
			return
		}
		s.Method = token
		s.Step = StepConfirm
		r.setState(userID, s)

		summary := fmt.Sprintf(
			"Confirmar:\n\nTipo: %s\nImporte: %s€\nCategoría: %s\nMétodo: %s\nDescripción: %s\n",
			s.Kind, s.Amount, s.Category, s.Method, s.description(),
		)
		r.prompt(userID, summary, confirmRows())

	case StepConfirm:
		switch token {
		case tokConfirm:
			r.commitEntry(ctx, userID, s)
		case tokCancel:
			r.done(userID, "Cancelado.")
		}
	}
}

// commitEntry appends exactly one ledger row, dated now. On failure the
// wizard stays at the confirmation step so the user can retry.
func (r *Router) commitEntry(ctx context.Context, userID int64, s *entryState) {
	err := r.ledger.Append(ctx, s.Kind, time.Now(), s.Amount, s.description(), s.Category)
	if err != nil {
		r.logger.Error("failed to append ledger row", "user_id", userID, "error", err)
		r.send(userID, "Error al guardar. Inténtalo de nuevo.")
		return
	}

	r.logger.Info("transaction recorded",
		"user_id", userID,
		"kind", s.Kind,
		"category", s.Category,
	)
	r.done(userID, "Guardado!")
}
