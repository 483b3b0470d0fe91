// Package sheets implements ledger.Store on top of a Google Sheets
// spreadsheet. Expense rows live in Transacciones!B5:E and income rows
// in Transacciones!G5:J; every append lands on the first free row of
// its series.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// DefaultSheetName is the tab holding both transaction series.
const DefaultSheetName = "Transacciones"

// firstDataRow is where transaction data starts; rows above are headers.
const firstDataRow = 5

// series describes the column span of one transaction series.
type series struct {
	firstCol string
	lastCol  string
}

var (
	expenseSeries = series{firstCol: "B", lastCol: "E"}
	incomeSeries  = series{firstCol: "G", lastCol: "J"}
)

// Config holds configuration for the sheets ledger.
type Config struct {
	// SpreadsheetID is the ID of the spreadsheet holding the ledger.
	SpreadsheetID string
	// SheetName is the tab name. Defaults to DefaultSheetName.
	SheetName string
}

// Ledger reads and appends transaction rows in a Google Sheet.
type Ledger struct {
	client        *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// New creates a sheets-backed ledger using the given authenticated HTTP client.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}

	client, err := sheetsapi.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	logger.Info("sheets ledger initialized",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet_name", cfg.SheetName,
	)

	return &Ledger{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}, nil
}

// Append writes one row to the first free row of the series for kind.
func (l *Ledger) Append(ctx context.Context, kind ledger.Kind, date time.Time, amount decimal.Decimal, description, category string) error {
	s := seriesFor(kind)

	row, err := l.nextFreeRow(ctx, s)
	if err != nil {
		return fmt.Errorf("finding next free row: %w", err)
	}

	writeRange := fmt.Sprintf("%s!%s%d:%s%d", l.sheetName, s.firstCol, row, s.lastCol, row)
	writeReq := sheetsapi.ValueRange{
		Values: [][]any{
			{date.Format(ledger.DateFormat), amount.InexactFloat64(), description, category},
		},
	}

	err = retry.Do(
		func() error {
			_, err := l.client.Spreadsheets.Values.Update(l.spreadsheetID, writeRange, &writeReq).
				ValueInputOption("USER_ENTERED").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				l.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(60*time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("writing row to sheet: %w", err)
	}

	l.logger.Info("ledger row written",
		"kind", kind,
		"row", row,
		"category", category,
	)
	return nil
}

// ReadAll returns both series in sheet order.
func (l *Ledger) ReadAll(ctx context.Context) (expenses, incomes []ledger.Row, err error) {
	expenses, err = l.readSeries(ctx, expenseSeries)
	if err != nil {
		return nil, nil, fmt.Errorf("reading expense series: %w", err)
	}

	incomes, err = l.readSeries(ctx, incomeSeries)
	if err != nil {
		return nil, nil, fmt.Errorf("reading income series: %w", err)
	}

	return expenses, incomes, nil
}

// nextFreeRow counts the occupied cells of the series' first column.
func (l *Ledger) nextFreeRow(ctx context.Context, s series) (int, error) {
	readRange := fmt.Sprintf("%s!%s%d:%s", l.sheetName, s.firstCol, firstDataRow, s.firstCol)
	resp, err := l.client.Spreadsheets.Values.Get(l.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return firstDataRow + len(resp.Values), nil
}

func (l *Ledger) readSeries(ctx context.Context, s series) ([]ledger.Row, error) {
	readRange := fmt.Sprintf("%s!%s%d:%s", l.sheetName, s.firstCol, firstDataRow, s.lastCol)
	resp, err := l.client.Spreadsheets.Values.Get(l.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	rows := make([]ledger.Row, 0, len(resp.Values))
	for _, raw := range resp.Values {
		rows = append(rows, parseRow(raw))
	}
	return rows, nil
}

// parseRow maps one raw sheet row to a ledger.Row. Short or malformed
// rows degrade to empty fields instead of failing the whole read.
func parseRow(raw []any) ledger.Row {
	var row ledger.Row
	if len(raw) > 0 {
		row.Date = fmt.Sprint(raw[0])
	}
	if len(raw) > 1 {
		if amount, err := ledger.ParseAmount(fmt.Sprint(raw[1])); err == nil {
			row.Amount = amount
		}
	}
	if len(raw) > 2 {
		row.Description = fmt.Sprint(raw[2])
	}
	if len(raw) > 3 {
		row.Category = fmt.Sprint(raw[3])
	}
	return row
}

func seriesFor(kind ledger.Kind) series {
	if kind == ledger.Income {
		return incomeSeries
	}
	return expenseSeries
}
