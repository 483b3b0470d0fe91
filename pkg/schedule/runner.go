package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// Default fire time for the daily sweep, in the server's local time zone.
const (
	DefaultHour   = 7
	DefaultMinute = 0
)

// Runner posts every scheduled entry whose day-of-month matches the
// current date, once per day at a fixed time. There is no same-day
// dedupe: a restart after the fire time posts matching entries again.
type Runner struct {
	store  *Store
	ledger ledger.Store
	hour   int
	minute int
	logger *slog.Logger
}

// NewRunner creates a daily runner firing at the default 07:00.
func NewRunner(store *Store, lgr ledger.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:  store,
		ledger: lgr,
		hour:   DefaultHour,
		minute: DefaultMinute,
		logger: logger,
	}
}

// Run blocks until ctx is canceled, sweeping the store at every fire time.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("daily schedule runner started",
		"fire_time", fmt.Sprintf("%02d:%02d", r.hour, r.minute),
	)

	for {
		next := nextFireTime(time.Now(), r.hour, r.minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("daily schedule runner stopped")
			return ctx.Err()
		case now := <-timer.C:
			r.postDue(ctx, now)
		}
	}
}

// postDue appends one ledger row per entry scheduled for now's
// day-of-month. Failures are logged and skipped so one bad append does
// not starve the remaining entries.
func (r *Runner) postDue(ctx context.Context, now time.Time) {
	for _, e := range r.store.List() {
		if e.Day != now.Day() {
			continue
		}

		description := fmt.Sprintf("%s · %s", e.Description, e.Method)
		if err := r.ledger.Append(ctx, e.Kind, now, e.Amount, description, e.Category); err != nil {
			r.logger.Error("failed to post scheduled entry", "id", e.ID, "error", err)
			continue
		}

		r.logger.Info("scheduled entry posted", "id", e.ID, "kind", e.Kind, "day", e.Day)
	}
}

// nextFireTime returns the next hh:mm strictly after now.
func nextFireTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
