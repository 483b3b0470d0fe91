// Package schedule manages recurring transactions: a file-backed store of
// scheduled entries and the daily runner that posts them to the ledger.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/asanchezr/gastosbot/pkg/ledger"
)

// ErrNotFound is returned when no scheduled entry has the requested id.
var ErrNotFound = errors.New("scheduled entry not found")

// Entry is one recurring transaction template, auto-posted on Day of
// every month. The JSON field names match the persisted file layout.
type Entry struct {
	ID          int             `json:"id"`
	Kind        ledger.Kind     `json:"tipo"`
	Day         int             `json:"dia"`
	Amount      decimal.Decimal `json:"importe"`
	Description string          `json:"descripcion"`
	Category    string          `json:"categoria"`
	Method      string          `json:"metodo"`
}

// Load reads the entries file at path. A missing or unreadable file is
// treated as an empty collection, never an error.
func Load(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// Save overwrites the entries file at path with the full collection.
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding scheduled entries: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scheduled entries file: %w", err)
	}
	return nil
}

// NextID returns the id for a new entry: one past the highest existing
// id, or 1 for an empty collection. Ids are never reused after deletion.
func NextID(entries []Entry) int {
	maxID := 0
	for _, e := range entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

// Store holds the scheduled entries in memory and persists the whole
// collection after every mutation. Safe for use from the conversation
// handler and the daily runner concurrently.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries []Entry
}

// Open loads the store from path. Missing or corrupt data starts empty.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	entries := Load(path)
	logger.Info("scheduled entry store opened", "path", path, "entries", len(entries))

	return &Store{
		path:    path,
		logger:  logger,
		entries: entries,
	}
}

// List returns a copy of all entries in insertion order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Find returns the entry with the given id.
func (s *Store) Find(id int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Insert assigns a fresh id to e, appends it and persists. The stored
// entry is returned with its id filled in. Memory only changes once the
// file write succeeds, so a failed save leaves the store as it was.
func (s *Store) Insert(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = NextID(s.entries)
	updated := make([]Entry, 0, len(s.entries)+1)
	updated = append(updated, s.entries...)
	updated = append(updated, e)

	if err := Save(s.path, updated); err != nil {
		return Entry{}, err
	}
	s.entries = updated

	s.logger.Info("scheduled entry created", "id", e.ID, "kind", e.Kind, "day", e.Day)
	return e, nil
}

// Update replaces the stored entry with e.ID in place and persists.
// A failed save leaves the store as it was.
func (s *Store) Update(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == e.ID {
			updated := make([]Entry, len(s.entries))
			copy(updated, s.entries)
			updated[i] = e

			if err := Save(s.path, updated); err != nil {
				return err
			}
			s.entries = updated

			s.logger.Info("scheduled entry updated", "id", e.ID)
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the entry with the given id and persists. A failed
// save leaves the store as it was.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			updated := make([]Entry, 0, len(s.entries)-1)
			updated = append(updated, s.entries[:i]...)
			updated = append(updated, s.entries[i+1:]...)

			if err := Save(s.path, updated); err != nil {
				return err
			}
			s.entries = updated

			s.logger.Info("scheduled entry deleted", "id", id)
			return nil
		}
	}
	return ErrNotFound
}
