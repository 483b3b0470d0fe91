// Package conversation implements the bot's dialogue core: a per-user
// state machine routing menu selections, button presses and free-text
// replies through the data-entry wizards.
package conversation

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/asanchezr/gastosbot/pkg/ledger"
	"github.com/asanchezr/gastosbot/pkg/schedule"
)

// Option is one selectable keyboard button: a visible label and the
// opaque token delivered back when pressed.
type Option struct {
	Label string
	Token string
}

// Chat is the outbound messaging capability the conversation core
// depends on. Rows are rendered as keyboard rows in the given order.
type Chat interface {
	// SendText delivers a plain message.
	SendText(userID int64, text string) error
	// PromptChoice delivers a message with a selection keyboard.
	PromptChoice(userID int64, text string, rows [][]Option) error
	// PromptFreeText delivers a message expecting a typed reply.
	PromptFreeText(userID int64, text string) error
}

// TokenMainMenu is the token of the back-to-menu button. The transport
// layer attaches it to free-text prompts so a wizard can always be
// abandoned.
const TokenMainMenu = "menu_main"

// Navigation and wizard tokens. Selection values (categories, methods,
// kinds, days, ids) travel as their own text, so only the fixed menu
// actions need named tokens.
const (
	tokMenuMain        = TokenMainMenu
	tokMenuData        = "menu_datos"
	tokMenuExpense     = "menu_gasto"
	tokMenuIncome      = "menu_ingreso"
	tokMenuScheduled   = "menu_programados"
	tokScheduledView   = "prog_ver"
	tokScheduledAdd    = "prog_add"
	tokScheduledEdit   = "prog_edit"
	tokScheduledDelete = "prog_del"
	tokDataRecent      = "vd_ultimos"
	tokDataExpenses    = "vd_gastos_mes"
	tokDataIncome      = "vd_ingresos_mes"
	tokDataBalance     = "vd_balance"
	tokConfirm         = "conf_si"
	tokCancel          = "conf_no"
	tokFieldKind       = "field_tipo"
	tokFieldAmount     = "field_importe"
	tokFieldCategory   = "field_categoria"
	tokFieldMethod     = "field_metodo"
	tokFieldDesc       = "field_desc"
	tokFieldDay        = "field_dia"
)

// recentMovementCount is how many movements the report view shows.
const recentMovementCount = 10

// Router owns the per-user conversation states and dispatches every
// inbound event to the active wizard, or to the menus when idle.
type Router struct {
	chat   Chat
	ledger ledger.Store
	sched  *schedule.Store
	logger *slog.Logger

	mu     sync.Mutex
	states map[int64]state
}

// NewRouter creates the conversation router.
func NewRouter(chat Chat, lgr ledger.Store, sched *schedule.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		chat:   chat,
		ledger: lgr,
		sched:  sched,
		logger: logger,
		states: make(map[int64]state),
	}
}

// HandleStart resets the user to idle and shows the main menu.
func (r *Router) HandleStart(ctx context.Context, userID int64) {
	r.resetState(userID)
	r.sendMainMenu(userID)
}

// HandleSelection routes one keyboard press. Tokens that make no sense
// for the current state are ignored without a transition.
func (r *Router) HandleSelection(ctx context.Context, userID int64, token string) {
	// The back-to-menu button works everywhere and abandons any wizard.
	if token == tokMenuMain {
		r.HandleStart(ctx, userID)
		return
	}

	switch s := r.state(userID).(type) {
	case *entryState:
		r.entrySelection(ctx, userID, s, token)
	case *addState:
		r.addSelection(userID, s, token)
	case *editState:
		r.editSelection(userID, s, token)
	case *deleteState:
		r.deleteSelection(userID, token)
	default:
		r.menuSelection(ctx, userID, token)
	}
}

// HandleText routes one free-text message to the step awaiting it.
func (r *Router) HandleText(ctx context.Context, userID int64, text string) {
	switch s := r.state(userID).(type) {
	case *entryState:
		r.entryText(userID, s, text)
	case *addState:
		r.addText(userID, s, text)
	case *editState:
		r.editText(userID, s, text)
	default:
		r.send(userID, "Usa /start para comenzar.")
	}
}

// menuSelection handles tokens arriving while no wizard is active.
func (r *Router) menuSelection(ctx context.Context, userID int64, token string) {
	switch token {
	case tokMenuData:
		r.prompt(userID, "Selecciona:", [][]Option{
			{{Label: "📅 Últimos movimientos", Token: tokDataRecent}},
			{{Label: "💸 Total gastos del mes", Token: tokDataExpenses}},
			{{Label: "💰 Total ingresos del mes", Token: tokDataIncome}},
			{{Label: "📈 Balance mensual", Token: tokDataBalance}},
		})

	case tokMenuExpense:
		r.startEntry(userID, ledger.Expense)

	case tokMenuIncome:
		r.startEntry(userID, ledger.Income)

	case tokMenuScheduled:
		r.prompt(userID, "Gestión de programados:", [][]Option{
			{{Label: "📄 Ver programados", Token: tokScheduledView}},
			{{Label: "➕ Añadir programado", Token: tokScheduledAdd}},
			{{Label: "📝 Editar programado", Token: tokScheduledEdit}},
			{{Label: "❌ Eliminar programado", Token: tokScheduledDelete}},
		})

	case tokScheduledView:
		r.showScheduled(userID)

	case tokScheduledAdd:
		r.startScheduleAdd(userID)

	case tokScheduledEdit:
		r.startScheduleEdit(userID)

	case tokScheduledDelete:
		r.startScheduleDelete(userID)

	case tokDataRecent, tokDataExpenses, tokDataIncome, tokDataBalance:
		r.showReport(ctx, userID, token)
	}
}

// state returns the user's current variant, or nil when idle.
func (r *Router) state(userID int64) state {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[userID]
}

func (r *Router) setState(userID int64, s state) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = s
}

func (r *Router) resetState(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}

func (r *Router) sendMainMenu(userID int64) {
	r.prompt(userID, "Menú principal:", [][]Option{
		{{Label: "📊 Ver datos", Token: tokMenuData}},
		{{Label: "➖ Registrar Gasto", Token: tokMenuExpense}},
		{{Label: "➕ Registrar Ingreso", Token: tokMenuIncome}},
		{{Label: "⚙ Programados", Token: tokMenuScheduled}},
	})
}

// done ends a wizard: reset to idle and confirm with a way back home.
func (r *Router) done(userID int64, text string) {
	r.resetState(userID)
	r.prompt(userID, text, [][]Option{
		{{Label: "⬅ Menú principal", Token: tokMenuMain}},
	})
}

func (r *Router) send(userID int64, text string) {
	if err := r.chat.SendText(userID, text); err != nil {
		r.logger.Error("failed to send message", "user_id", userID, "error", err)
	}
}

func (r *Router) prompt(userID int64, text string, rows [][]Option) {
	if err := r.chat.PromptChoice(userID, text, rows); err != nil {
		r.logger.Error("failed to send prompt", "user_id", userID, "error", err)
	}
}

func (r *Router) promptFreeText(userID int64, text string) {
	if err := r.chat.PromptFreeText(userID, text); err != nil {
		r.logger.Error("failed to send prompt", "user_id", userID, "error", err)
	}
}

// categoryRows renders one category per row, in catalog order.
func categoryRows(kind ledger.Kind) [][]Option {
	cats := ledger.CategoriesFor(kind)
	rows := make([][]Option, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []Option{{Label: c, Token: c}})
	}
	return rows
}

// methodRows renders one payment method per row.
func methodRows() [][]Option {
	rows := make([][]Option, 0, len(ledger.PaymentMethods))
	for _, m := range ledger.PaymentMethods {
		rows = append(rows, []Option{{Label: m, Token: m}})
	}
	return rows
}

// dayRows renders the 1..31 grid, seven buttons per row.
func dayRows() [][]Option {
	var rows [][]Option
	var row []Option
	for d := 1; d <= 31; d++ {
		tok := strconv.Itoa(d)
		row = append(row, Option{Label: tok, Token: tok})
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func kindRow() [][]Option {
	return [][]Option{{
		{Label: string(ledger.Expense), Token: string(ledger.Expense)},
		{Label: string(ledger.Income), Token: string(ledger.Income)},
	}}
}

func confirmRows() [][]Option {
	return [][]Option{
		{{Label: "✅ Confirmar", Token: tokConfirm}},
		{{Label: "❌ Cancelar", Token: tokCancel}},
	}
}

// validCategory reports whether c is in the catalog for kind.
func validCategory(kind ledger.Kind, c string) bool {
	for _, known := range ledger.CategoriesFor(kind) {
		if known == c {
			return true
		}
	}
	return false
}

func validMethod(m string) bool {
	for _, known := range ledger.PaymentMethods {
		if known == m {
			return true
		}
	}
	return false
}
