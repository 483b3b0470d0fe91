package conversation

import (
	"github.com/shopspring/decimal"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// Step names one position inside a wizard. Each state variant only ever
// holds the steps of its own wizard.
type Step int

const (
	StepNone Step = iota

	// Shared by the entry and schedule-creation wizards.
	StepAmount
	StepCategory
	StepMethod
	StepConfirm

	// Schedule-creation only.
	StepKind
	StepDescription
	StepDay

	// Schedule-edit only.
	StepSelectRecord
	StepSelectField
	StepNewValue
)

// Field identifies one editable field of a scheduled entry.
type Field int

const (
	FieldNone Field = iota
	FieldKind
	FieldAmount
	FieldCategory
	FieldMethod
	FieldDescription
	FieldDay
)

// state is the per-user conversation state, one variant per wizard mode.
// Absence from the state map means idle, awaiting /start. Completing or
// cancelling a wizard removes the variant entirely so no field can leak
// into the next run.
type state interface {
	step() Step
}

// entryState drives the "record one transaction now" wizard.
type entryState struct {
	Step     Step
	Kind     ledger.Kind
	Amount   decimal.Decimal
	Category string
	Method   string
}

func (s *entryState) step() Step { return s.Step }

// description is derived from category and method, never entered.
func (s *entryState) description() string {
	return s.Category + " · " + s.Method
}

// addState drives the schedule-creation wizard.
type addState struct {
	Step        Step
	Kind        ledger.Kind
	Amount      decimal.Decimal
	Category    string
	Method      string
	Description string
	Day         int
}

func (s *addState) step() Step { return s.Step }

// editState drives the schedule-edit wizard.
type editState struct {
	Step     Step
	TargetID int
	Field    Field
}

func (s *editState) step() Step { return s.Step }

// deleteState awaits the pick of a scheduled entry to remove.
type deleteState struct{}

func (s *deleteState) step() Step { return StepSelectRecord }
