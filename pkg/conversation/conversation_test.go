package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asanchezr/gastosbot/pkg/ledger"
	"github.com/asanchezr/gastosbot/pkg/schedule"
)

const testUser int64 = 7

type sentMessage struct {
	userID int64
	text   string
	rows   [][]Option
}

type fakeChat struct {
	messages []sentMessage
}

func (c *fakeChat) SendText(userID int64, text string) error {
	c.messages = append(c.messages, sentMessage{userID: userID, text: text})
	return nil
}

func (c *fakeChat) PromptChoice(userID int64, text string, rows [][]Option) error {
	c.messages = append(c.messages, sentMessage{userID: userID, text: text, rows: rows})
	return nil
}

func (c *fakeChat) PromptFreeText(userID int64, text string) error {
	c.messages = append(c.messages, sentMessage{userID: userID, text: text})
	return nil
}

func (c *fakeChat) last(t *testing.T) sentMessage {
	t.Helper()
	if len(c.messages) == 0 {
		t.Fatal("no messages sent")
	}
	return c.messages[len(c.messages)-1]
}

type appendCall struct {
	kind        ledger.Kind
	date        time.Time
	amount      decimal.Decimal
	description string
	category    string
}

type fakeLedger struct {
	mu        sync.Mutex
	appends   []appendCall
	appendErr error
	expenses  []ledger.Row
	incomes   []ledger.Row
}

func (f *fakeLedger) Append(_ context.Context, kind ledger.Kind, date time.Time, amount decimal.Decimal, description, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{kind, date, amount, description, category})
	return nil
}

func (f *fakeLedger) ReadAll(context.Context) ([]ledger.Row, []ledger.Row, error) {
	return f.expenses, f.incomes, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (*Router, *fakeChat, *fakeLedger, *schedule.Store) {
	t.Helper()
	store := schedule.Open(filepath.Join(t.TempDir(), "programados.json"), testLogger())
	chat := &fakeChat{}
	lgr := &fakeLedger{}
	return NewRouter(chat, lgr, store, testLogger()), chat, lgr, store
}

// runEntryWizard walks the expense wizard up to the confirmation step.
func runEntryWizard(ctx context.Context, r *Router) {
	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokMenuExpense)
	r.HandleText(ctx, testUser, "12,50")
	r.HandleSelection(ctx, testUser, "Comida")
	r.HandleSelection(ctx, testUser, "Efectivo")
}

func TestEntryWizard_Commit(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, _ := newTestRouter(t)

	runEntryWizard(ctx, r)
	r.HandleSelection(ctx, testUser, tokConfirm)

	if len(lgr.appends) != 1 {
		t.Fatalf("got %d appends, want exactly 1", len(lgr.appends))
	}
	call := lgr.appends[0]
	if call.kind != ledger.Expense {
		t.Errorf("kind: got %q, want %q", call.kind, ledger.Expense)
	}
	if !call.amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount: got %s, want 12.5", call.amount)
	}
	if call.description != "Comida · Efectivo" {
		t.Errorf("description: got %q, want %q", call.description, "Comida · Efectivo")
	}
	if call.category != "Comida" {
		t.Errorf("category: got %q, want %q", call.category, "Comida")
	}
	if time.Since(call.date) > time.Minute {
		t.Errorf("append not dated at commit time: %v", call.date)
	}

	if r.state(testUser) != nil {
		t.Error("state not reset after commit")
	}
	if got := chat.last(t).text; got != "Guardado!" {
		t.Errorf("confirmation: got %q, want %q", got, "Guardado!")
	}
}

func TestEntryWizard_InvalidAmountReprompts(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, _ := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokMenuExpense)
	r.HandleText(ctx, testUser, "doce con cincuenta")

	if got := chat.last(t).text; got != "Importe inválido." {
		t.Errorf("got %q, want %q", got, "Importe inválido.")
	}
	s, ok := r.state(testUser).(*entryState)
	if !ok || s.Step != StepAmount {
		t.Fatalf("state after bad amount: %+v, want entry wizard at amount step", r.state(testUser))
	}

	// The step accepts a valid amount afterwards.
	r.HandleText(ctx, testUser, "12.50")
	if s.Step != StepCategory {
		t.Errorf("step after valid amount: %v, want StepCategory", s.Step)
	}
	if len(lgr.appends) != 0 {
		t.Errorf("got %d appends, want 0", len(lgr.appends))
	}
}

func TestEntryWizard_Cancel(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, store := newTestRouter(t)

	runEntryWizard(ctx, r)
	r.HandleSelection(ctx, testUser, tokCancel)

	if len(lgr.appends) != 0 {
		t.Errorf("got %d appends after cancel, want 0", len(lgr.appends))
	}
	if len(store.List()) != 0 {
		t.Error("store mutated by cancelled wizard")
	}
	if r.state(testUser) != nil {
		t.Error("state not reset after cancel")
	}
	if got := chat.last(t).text; got != "Cancelado." {
		t.Errorf("got %q, want %q", got, "Cancelado.")
	}
}

func TestEntryWizard_IgnoresUnknownTokenAtConfirm(t *testing.T) {
	ctx := context.Background()
	r, _, lgr, _ := newTestRouter(t)

	runEntryWizard(ctx, r)
	r.HandleSelection(ctx, testUser, "Comida")

	s, ok := r.state(testUser).(*entryState)
	if !ok || s.Step != StepConfirm {
		t.Fatal("unknown token must not transition the confirm step")
	}
	if len(lgr.appends) != 0 {
		t.Fatalf("got %d appends, want 0", len(lgr.appends))
	}

	r.HandleSelection(ctx, testUser, tokConfirm)
	if len(lgr.appends) != 1 {
		t.Errorf("got %d appends after confirm, want 1", len(lgr.appends))
	}
}

func TestEntryWizard_AppendFailureKeepsConfirmStep(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, _ := newTestRouter(t)
	lgr.appendErr = errors.New("sheet unavailable")

	runEntryWizard(ctx, r)
	r.HandleSelection(ctx, testUser, tokConfirm)

	if got := chat.last(t).text; got != "Error al guardar. Inténtalo de nuevo." {
		t.Errorf("got %q, want save error message", got)
	}
	s, ok := r.state(testUser).(*entryState)
	if !ok || s.Step != StepConfirm {
		t.Error("failed commit must keep the wizard at the confirm step")
	}

	// Retry succeeds once the ledger recovers.
	lgr.appendErr = nil
	r.HandleSelection(ctx, testUser, tokConfirm)
	if len(lgr.appends) != 1 {
		t.Errorf("got %d appends after retry, want 1", len(lgr.appends))
	}
}

func TestEntryWizard_IncomeCategories(t *testing.T) {
	ctx := context.Background()
	r, chat, _, _ := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokMenuIncome)
	r.HandleText(ctx, testUser, "1800")

	rows := chat.last(t).rows
	if len(rows) != len(ledger.IncomeCategories) {
		t.Fatalf("got %d category rows, want %d", len(rows), len(ledger.IncomeCategories))
	}
	if rows[0][0].Token != "Ahorro" {
		t.Errorf("first category: got %q, want %q", rows[0][0].Token, "Ahorro")
	}
}

func TestScheduleAdd_CreatesEntry(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledAdd)
	r.HandleSelection(ctx, testUser, string(ledger.Expense))
	r.HandleText(ctx, testUser, "12,50")
	r.HandleSelection(ctx, testUser, "Comida")
	r.HandleSelection(ctx, testUser, "Efectivo")
	r.HandleText(ctx, testUser, "lunch")
	r.HandleSelection(ctx, testUser, "15")
	r.HandleSelection(ctx, testUser, tokConfirm)

	entries := store.List()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != 1 {
		t.Errorf("id: got %d, want 1", e.ID)
	}
	if e.Kind != ledger.Expense {
		t.Errorf("kind: got %q, want %q", e.Kind, ledger.Expense)
	}
	if !e.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount: got %s, want 12.5", e.Amount)
	}
	if e.Category != "Comida" || e.Method != "Efectivo" || e.Description != "lunch" || e.Day != 15 {
		t.Errorf("fields: got %+v", e)
	}

	if got := chat.last(t).text; got != "Añadido (ID 1)" {
		t.Errorf("got %q, want %q", got, "Añadido (ID 1)")
	}
	if r.state(testUser) != nil {
		t.Error("state not reset after creation")
	}
}

func TestScheduleAdd_Cancel(t *testing.T) {
	ctx := context.Background()
	r, _, _, store := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledAdd)
	r.HandleSelection(ctx, testUser, string(ledger.Income))
	r.HandleText(ctx, testUser, "100")
	r.HandleSelection(ctx, testUser, "Sueldo")
	r.HandleSelection(ctx, testUser, "Bizum")
	r.HandleText(ctx, testUser, "paga")
	r.HandleSelection(ctx, testUser, "1")
	r.HandleSelection(ctx, testUser, tokCancel)

	if len(store.List()) != 0 {
		t.Error("cancelled wizard mutated the store")
	}
	if r.state(testUser) != nil {
		t.Error("state not reset after cancel")
	}
}

func seedEntry(t *testing.T, store *schedule.Store) schedule.Entry {
	t.Helper()
	entry, err := store.Insert(schedule.Entry{
		Kind:        ledger.Expense,
		Day:         15,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "lunch",
		Category:    "Comida",
		Method:      "Efectivo",
	})
	if err != nil {
		t.Fatal(err)
	}
	return entry
}

func TestScheduleEdit_FreeTextAmount(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seeded := seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)
	r.HandleSelection(ctx, testUser, "1")
	r.HandleSelection(ctx, testUser, tokFieldAmount)
	r.HandleText(ctx, testUser, "20,00")

	got, ok := store.Find(seeded.ID)
	if !ok {
		t.Fatal("entry disappeared")
	}
	if !got.Amount.Equal(decimal.RequireFromString("20")) {
		t.Errorf("amount: got %s, want 20", got.Amount)
	}
	if got.Kind != seeded.Kind || got.Day != seeded.Day || got.Description != seeded.Description ||
		got.Category != seeded.Category || got.Method != seeded.Method {
		t.Errorf("other fields changed: %+v", got)
	}
	if r.state(testUser) != nil {
		t.Error("state not reset after edit")
	}
	if chat.last(t).text != "Importe actualizado." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Importe actualizado.")
	}
}

func TestScheduleEdit_InvalidAmountReprompts(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seeded := seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)
	r.HandleSelection(ctx, testUser, "1")
	r.HandleSelection(ctx, testUser, tokFieldAmount)
	r.HandleText(ctx, testUser, "mucho")

	if chat.last(t).text != "Importe inválido." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Importe inválido.")
	}
	got, _ := store.Find(seeded.ID)
	if !got.Amount.Equal(seeded.Amount) {
		t.Errorf("amount changed by failed parse: %s", got.Amount)
	}
	if r.state(testUser) == nil {
		t.Error("failed parse must keep the wizard waiting for a value")
	}
}

func TestScheduleEdit_KindViaKeyboard(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seeded := seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)
	r.HandleSelection(ctx, testUser, "1")
	r.HandleSelection(ctx, testUser, tokFieldKind)
	r.HandleSelection(ctx, testUser, string(ledger.Income))

	got, _ := store.Find(seeded.ID)
	if got.Kind != ledger.Income {
		t.Errorf("kind: got %q, want %q", got.Kind, ledger.Income)
	}
	// Selection commits directly, no confirmation step.
	if r.state(testUser) != nil {
		t.Error("state not reset after keyboard edit")
	}
	if chat.last(t).text != "Tipo actualizado." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Tipo actualizado.")
	}
}

func TestScheduleEdit_DayViaKeyboard(t *testing.T) {
	ctx := context.Background()
	r, _, _, store := newTestRouter(t)
	seeded := seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)
	r.HandleSelection(ctx, testUser, "1")
	r.HandleSelection(ctx, testUser, tokFieldDay)
	r.HandleSelection(ctx, testUser, "28")

	got, _ := store.Find(seeded.ID)
	if got.Day != 28 {
		t.Errorf("day: got %d, want 28", got.Day)
	}
	if !got.Amount.Equal(seeded.Amount) {
		t.Errorf("amount changed: %s", got.Amount)
	}
}

func TestScheduleEdit_UnknownRecord(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)
	r.HandleSelection(ctx, testUser, "42")

	if chat.last(t).text != "Programado no encontrado." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Programado no encontrado.")
	}
	if r.state(testUser) != nil {
		t.Error("state not reset after missing record")
	}
}

func TestScheduleEdit_EmptyStore(t *testing.T) {
	ctx := context.Background()
	r, chat, _, _ := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledEdit)

	if chat.last(t).text != "No hay programados." {
		t.Errorf("got %q, want %q", chat.last(t).text, "No hay programados.")
	}
	if r.state(testUser) != nil {
		t.Error("empty store must not start the edit wizard")
	}
}

func TestScheduleDelete(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seedEntry(t, store)
	second, err := store.Insert(schedule.Entry{Kind: ledger.Income, Day: 1})
	if err != nil {
		t.Fatal(err)
	}

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledDelete)
	r.HandleSelection(ctx, testUser, "1")

	entries := store.List()
	if len(entries) != 1 || entries[0].ID != second.ID {
		t.Fatalf("after delete: got %+v, want only id %d", entries, second.ID)
	}
	if chat.last(t).text != "Eliminado." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Eliminado.")
	}
}

func TestScheduleDelete_Missing(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)
	seedEntry(t, store)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledDelete)
	r.HandleSelection(ctx, testUser, "99")

	if chat.last(t).text != "Programado no encontrado." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Programado no encontrado.")
	}
	if len(store.List()) != 1 {
		t.Error("missing-id delete must not touch the store")
	}
}

func TestIdleTextPointsToStart(t *testing.T) {
	ctx := context.Background()
	r, chat, _, _ := newTestRouter(t)

	r.HandleText(ctx, testUser, "hola")

	if chat.last(t).text != "Usa /start para comenzar." {
		t.Errorf("got %q, want %q", chat.last(t).text, "Usa /start para comenzar.")
	}
}

func TestMainMenuAbandonsWizard(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, _ := newTestRouter(t)

	runEntryWizard(ctx, r)
	r.HandleSelection(ctx, testUser, TokenMainMenu)

	if r.state(testUser) != nil {
		t.Error("main menu button must reset the wizard")
	}
	if chat.last(t).text != "Menú principal:" {
		t.Errorf("got %q, want main menu", chat.last(t).text)
	}
	if len(lgr.appends) != 0 {
		t.Errorf("got %d appends, want 0", len(lgr.appends))
	}
}

func TestShowScheduled(t *testing.T) {
	ctx := context.Background()
	r, chat, _, store := newTestRouter(t)

	r.HandleStart(ctx, testUser)
	r.HandleSelection(ctx, testUser, tokScheduledView)
	if chat.last(t).text != "No hay programados." {
		t.Errorf("empty store: got %q", chat.last(t).text)
	}

	seedEntry(t, store)
	r.HandleSelection(ctx, testUser, tokScheduledView)

	text := chat.last(t).text
	if !strings.Contains(text, "ID 1 — Gasto — 12.5€ — Día 15") {
		t.Errorf("listing missing header line: %q", text)
	}
	if !strings.Contains(text, "lunch (Comida · Efectivo)") {
		t.Errorf("listing missing detail line: %q", text)
	}
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	r, chat, lgr, _ := newTestRouter(t)

	thisMonth := time.Now().Format("2006-01")
	lgr.expenses = []ledger.Row{
		{Date: thisMonth + "-05", Amount: decimal.RequireFromString("10.5")},
		{Date: "2000-01-01", Amount: decimal.RequireFromString("999")},
	}
	lgr.incomes = []ledger.Row{
		{Date: thisMonth + "-01", Amount: decimal.RequireFromString("100")},
	}

	r.HandleStart(ctx, testUser)

	r.HandleSelection(ctx, testUser, tokDataExpenses)
	if got := chat.last(t).text; got != "Total gastos del mes: 10.5€" {
		t.Errorf("expense total: got %q", got)
	}

	r.HandleSelection(ctx, testUser, tokDataIncome)
	if got := chat.last(t).text; got != "Total ingresos del mes: 100€" {
		t.Errorf("income total: got %q", got)
	}

	r.HandleSelection(ctx, testUser, tokDataBalance)
	if got := chat.last(t).text; got != "Balance mensual: 89.5€" {
		t.Errorf("balance: got %q", got)
	}

	r.HandleSelection(ctx, testUser, tokDataRecent)
	if !strings.Contains(chat.last(t).text, "Últimos movimientos:") {
		t.Errorf("recent movements: got %q", chat.last(t).text)
	}
}

func TestIndependentUserStates(t *testing.T) {
	ctx := context.Background()
	r, _, lgr, _ := newTestRouter(t)

	const otherUser int64 = 8

	r.HandleSelection(ctx, testUser, tokMenuExpense)
	r.HandleSelection(ctx, otherUser, tokMenuIncome)

	r.HandleText(ctx, testUser, "5")
	r.HandleText(ctx, otherUser, "10")

	first, ok := r.state(testUser).(*entryState)
	if !ok || first.Kind != ledger.Expense || !first.Amount.Equal(decimal.RequireFromString("5")) {
		t.Errorf("first user state: %+v", r.state(testUser))
	}
	second, ok := r.state(otherUser).(*entryState)
	if !ok || second.Kind != ledger.Income || !second.Amount.Equal(decimal.RequireFromString("10")) {
		t.Errorf("second user state: %+v", r.state(otherUser))
	}
	if len(lgr.appends) != 0 {
		t.Errorf("got %d appends, want 0", len(lgr.appends))
	}
}
