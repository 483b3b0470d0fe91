package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asanchezr/gastosbot/pkg/ledger"
	"github.com/asanchezr/gastosbot/pkg/schedule"
)

// showScheduled lists every scheduled entry in insertion order.
func (r *Router) showScheduled(userID int64) {
	entries := r.sched.List()
	if len(entries) == 0 {
		r.send(userID, "No hay programados.")
		return
	}

	var b strings.Builder
	b.WriteString("Programados:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "ID %d — %s — %s€ — Día %d\n%s (%s · %s)\n\n",
			e.ID, e.Kind, e.Amount, e.Day, e.Description, e.Category, e.Method)
	}

	r.done(userID, b.String())
}

// startScheduleAdd begins the schedule-creation wizard.
func (r *Router) startScheduleAdd(userID int64) {
	r.setState(userID, &addState{Step: StepKind})
	r.prompt(userID, "Selecciona tipo:", kindRow())
}

// addSelection consumes keyboard presses for the creation wizard.
func (r *Router) addSelection(userID int64, s *addState, token string) {
	switch s.Step {
	case StepKind:
		kind := ledger.Kind(token)
		if !kind.Valid() {
			return
		}
		s.Kind = kind
		s.Step = StepAmount
		r.setState(userID, s)
		r.promptFreeText(userID, "Introduce importe:")

	case StepCategory:
		if !validCategory(s.Kind, token) {
			return
		}
		s.Category = token
		s.Step = StepMethod
		r.setState(userID, s)
		r.prompt(userID, "Método de pago:", methodRows())

	case StepMethod:
		if !validMethod(token) {
			return
		}
		s.Method = token
		s.Step = StepDescription
		r.setState(userID, s)
		r.promptFreeText(userID, "Descripción:")

	case StepDay:
		day, err := strconv.Atoi(token)
		if err != nil || day < 1 || day > 31 {
			return
		}
		s.Day = day
		s.Step = StepConfirm
		r.setState(userID, s)

		summary := fmt.Sprintf(
			"Confirmar programado:\n\nTipo: %s\nImporte: %s€\nCategoría: %s\nMétodo: %s\nDía: %d\nDescripción: %s\n",
			s.Kind, s.Amount, s.Category, s.Method, s.Day, s.Description,
		)
		r.prompt(userID, summary, confirmRows())

	case StepConfirm:
		switch token {
		case tokConfirm:
			r.commitScheduleAdd(userID, s)
		case tokCancel:
			r.done(userID, "Cancelado.")
		}
	}
}

// addText consumes free text for the creation wizard's amount and
// description steps.
func (r *Router) addText(userID int64, s *addState, text string) {
	switch s.Step {
	case StepAmount:
		amount, err := ledger.ParseAmount(text)
		if err != nil {
			r.send(userID, "Importe inválido.")
			return
		}
		s.Amount = amount
		s.Step = StepCategory
		r.setState(userID, s)
		r.prompt(userID, "Categoría:", categoryRows(s.Kind))

	case StepDescription:
		s.Description = text
		s.Step = StepDay
		r.setState(userID, s)
		r.prompt(userID, "Día:", dayRows())
	}
}

func (r *Router) commitScheduleAdd(userID int64, s *addState) {
	entry, err := r.sched.Insert(schedule.Entry{
		Kind:        s.Kind,
		Day:         s.Day,
		Amount:      s.Amount,
		Description: s.Description,
		Category:    s.Category,
		Method:      s.Method,
	})
	if err != nil {
		r.logger.Error("failed to save scheduled entry", "user_id", userID, "error", err)
		r.send(userID, "Error al guardar. Inténtalo de nuevo.")
		return
	}

	r.done(userID, fmt.Sprintf("Añadido (ID %d)", entry.ID))
}

// startScheduleEdit begins the edit wizard with the record picker.
func (r *Router) startScheduleEdit(userID int64) {
	entries := r.sched.List()
	if len(entries) == 0 {
		r.send(userID, "No hay programados.")
		return
	}

	rows := make([][]Option, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []Option{{
			Label: fmt.Sprintf("Editar ID %d", e.ID),
			Token: strconv.Itoa(e.ID),
		}})
	}

	r.setState(userID, &editState{Step: StepSelectRecord})
	r.prompt(userID, "Selecciona:", rows)
}

// editSelection consumes keyboard presses for the edit wizard.
func (r *Router) editSelection(userID int64, s *editState, token string) {
	switch s.Step {
	case StepSelectRecord:
		id, err := strconv.Atoi(token)
		if err != nil {
			return
		}
		if _, ok := r.sched.Find(id); !ok {
			r.done(userID, "Programado no encontrado.")
			return
		}

		s.TargetID = id
		s.Step = StepSelectField
		r.setState(userID, s)
		r.prompt(userID, "¿Qué quieres cambiar?", [][]Option{
			{{Label: "Tipo", Token: tokFieldKind}},
			{{Label: "Importe", Token: tokFieldAmount}},
			{{Label: "Categoría", Token: tokFieldCategory}},
			{{Label: "Método", Token: tokFieldMethod}},
			{{Label: "Descripción", Token: tokFieldDesc}},
			{{Label: "Día", Token: tokFieldDay}},
		})

	case StepSelectField:
		r.editFieldChosen(userID, s, token)

	case StepNewValue:
		r.editApplySelection(userID, s, token)
	}
}

// editFieldChosen prompts for the new value of the chosen field:
// a keyboard for enumerable fields, free text for amount and description.
func (r *Router) editFieldChosen(userID int64, s *editState, token string) {
	target, ok := r.sched.Find(s.TargetID)
	if !ok {
		r.done(userID, "Programado no encontrado.")
		return
	}

	switch token {
	case tokFieldKind:
		s.Field = FieldKind
		r.prompt(userID, "Nuevo tipo:", kindRow())
	case tokFieldCategory:
		s.Field = FieldCategory
		r.prompt(userID, "Nueva categoría:", categoryRows(target.Kind))
	case tokFieldMethod:
		s.Field = FieldMethod
		r.prompt(userID, "Nuevo método:", methodRows())
	case tokFieldDay:
		s.Field = FieldDay
		r.prompt(userID, "Nuevo día:", dayRows())
	case tokFieldAmount:
		s.Field = FieldAmount
		r.promptFreeText(userID, "Introduce el nuevo valor:")
	case tokFieldDesc:
		s.Field = FieldDescription
		r.promptFreeText(userID, "Introduce el nuevo valor:")
	default:
		return
	}

	s.Step = StepNewValue
	r.setState(userID, s)
}

// editApplySelection mutates the target's enumerable field directly from
// the pressed button, with no separate confirmation step.
func (r *Router) editApplySelection(userID int64, s *editState, token string) {
	target, ok := r.sched.Find(s.TargetID)
	if !ok {
		r.done(userID, "Programado no encontrado.")
		return
	}

	var confirmation string
	switch s.Field {
	case FieldKind:
		kind := ledger.Kind(token)
		if !kind.Valid() {
			return
		}
		target.Kind = kind
		confirmation = "Tipo actualizado."

	case FieldCategory:
		if !validCategory(target.Kind, token) {
			return
		}
		target.Category = token
		confirmation = "Categoría actualizada."

	case FieldMethod:
		if !validMethod(token) {
			return
		}
		target.Method = token
		confirmation = "Método actualizado."

	case FieldDay:
		day, err := strconv.Atoi(token)
		if err != nil || day < 1 || day > 31 {
			return
		}
		target.Day = day
		confirmation = "Día actualizado."

	default:
		return
	}

	r.saveEdit(userID, target, confirmation)
}

// editText mutates the target's free-form field from a typed reply.
func (r *Router) editText(userID int64, s *editState, text string) {
	if s.Step != StepNewValue {
		return
	}

	target, ok := r.sched.Find(s.TargetID)
	if !ok {
		r.done(userID, "Programado no encontrado.")
		return
	}

	switch s.Field {
	case FieldAmount:
		amount, err := ledger.ParseAmount(text)
		if err != nil {
			r.send(userID, "Importe inválido.")
			return
		}
		target.Amount = amount
		r.saveEdit(userID, target, "Importe actualizado.")

	case FieldDescription:
		target.Description = text
		r.saveEdit(userID, target, "Descripción actualizada.")
	}
}

func (r *Router) saveEdit(userID int64, target schedule.Entry, confirmation string) {
	if err := r.sched.Update(target); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			r.done(userID, "Programado no encontrado.")
			return
		}
		r.logger.Error("failed to save scheduled entry", "user_id", userID, "error", err)
		r.send(userID, "Error al guardar. Inténtalo de nuevo.")
		return
	}

	r.done(userID, confirmation)
}

// startScheduleDelete shows the single-step deletion picker.
func (r *Router) startScheduleDelete(userID int64) {
	entries := r.sched.List()
	if len(entries) == 0 {
		r.send(userID, "No hay programados.")
		return
	}

	rows := make([][]Option, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []Option{{
			Label: fmt.Sprintf("Eliminar ID %d", e.ID),
			Token: strconv.Itoa(e.ID),
		}})
	}

	r.setState(userID, &deleteState{})
	r.prompt(userID, "Selecciona:", rows)
}

// deleteSelection removes the picked entry immediately, no confirmation.
func (r *Router) deleteSelection(userID int64, token string) {
	id, err := strconv.Atoi(token)
	if err != nil {
		return
	}

	if err := r.sched.Delete(id); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			r.done(userID, "Programado no encontrado.")
			return
		}
		r.logger.Error("failed to delete scheduled entry", "user_id", userID, "error", err)
		r.send(userID, "Error al guardar. Inténtalo de nuevo.")
		return
	}

	r.done(userID, "Eliminado.")
}
