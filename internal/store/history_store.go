// Package store implements the date-indexed history store with whole-blob JSON
// persistence. Every mutation serializes and rewrites the entire store; the
// blob on disk is the same schema the browser app kept in local storage, so
// old exports import cleanly.
package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
)

// HistoryFileName is the history blob inside the data directory.
const HistoryFileName = "history.json"

// HistoryStore owns the mapping from calendar date to a fixed-length answer
// array. Single-writer by design; the mutex only guards against the HTTP
// handler goroutines and the fsnotify reload path.
type HistoryStore struct {
	path string

	mu      sync.RWMutex
	records map[string]inventory.DayRecord
	order   []string // date keys in persisted order; mutated dates move to the end
}

// Open loads the history blob from dataDir. A missing or malformed file is not
// an error: the store starts empty and logs a warning (fail-open read).
func Open(dataDir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, ierr.StorageError("failed to create data directory").
			WithContext("data_dir", dataDir).Build()
	}

	s := &HistoryStore{
		path:    filepath.Join(dataDir, HistoryFileName),
		records: make(map[string]inventory.DayRecord),
	}
	s.loadFromDisk()
	return s, nil
}

// loadFromDisk replaces the in-memory state with the file contents, failing
// open to an empty store.
func (s *HistoryStore) loadFromDisk() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Could not read history file, starting empty",
				logfields.Component("store"), logfields.Error(err))
		}
		s.records = make(map[string]inventory.DayRecord)
		s.order = nil
		return
	}

	records, order, err := decodeHistory(data)
	if err != nil {
		slog.Warn("History file is malformed, starting empty",
			logfields.Component("store"), logfields.Error(err))
		s.records = make(map[string]inventory.DayRecord)
		s.order = nil
		return
	}
	s.records = records
	s.order = order
}

// Reload re-reads the blob from disk, used when an external writer (a restored
// backup) replaced the file underneath the daemon.
func (s *HistoryStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadFromDisk()
	slog.Info("History reloaded from disk",
		logfields.Component("store"), logfields.Days(len(s.records)))
}

// Answers returns the record for date, or an all-unanswered record of canonical
// length when absent. The returned slice is a copy; it never aliases store state.
func (s *HistoryStore) Answers(date string) (inventory.DayRecord, error) {
	if _, err := inventory.ParseDateKey(date); err != nil {
		return nil, ierr.ValidationError(err.Error()).Build()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[date]; ok {
		return rec.Clone(), nil
	}
	return inventory.NewDayRecord(), nil
}

// SetAnswer records value at index for date, creating the day's record when
// absent, and persists the whole store synchronously. Writes to the header row
// are silently ignored: that row carries no answer by domain rule. A failed
// persist rolls the in-memory mutation back, so memory and disk never diverge.
func (s *HistoryStore) SetAnswer(date string, index int, value inventory.Answer) error {
	if _, err := inventory.ParseDateKey(date); err != nil {
		return ierr.ValidationError(err.Error()).Build()
	}
	if index < 0 || index >= inventory.RowCount() {
		return ierr.ValidationError("answer index out of range").
			WithContext("row", index).Build()
	}
	if index == inventory.HeaderRowIndex {
		return nil
	}
	if value != inventory.Left && value != inventory.Right {
		return ierr.ValidationError("answer must be left or right").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[date]
	prevOrder := s.orderIndex(date)

	rec := inventory.NewDayRecord()
	if existed {
		copy(rec, prev)
	}
	rec[index] = value

	s.records[date] = rec
	s.touchOrder(date)

	if err := s.persistLocked(); err != nil {
		// Roll back so the caller sees the same state a fresh load would.
		if existed {
			s.records[date] = prev
			s.restoreOrder(date, prevOrder)
		} else {
			delete(s.records, date)
			s.dropOrder(date)
		}
		return err
	}
	return nil
}

// Dates returns the stored date keys in persisted order.
func (s *HistoryStore) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of recorded days.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ExportAll serializes the full store in the original wire schema.
func (s *HistoryStore) ExportAll() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := encodeHistory(s.records, s.order)
	if err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryInternal, "failed to serialize history").Build()
	}
	return data, nil
}

// ImportAll parses blob and atomically replaces the entire store. A parse or
// schema failure leaves the existing store untouched and reports an
// ImportError; conflict resolution is last-write-wins at whole-store
// granularity, not a per-record merge.
func (s *HistoryStore) ImportAll(blob []byte) error {
	records, order, err := decodeHistory(blob)
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryImport, "invalid file format").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevRecords, prevOrder := s.records, s.order
	s.records = records
	s.order = order

	if err := s.persistLocked(); err != nil {
		s.records = prevRecords
		s.order = prevOrder
		return err
	}
	return nil
}

// ResetAll clears the store and removes the persisted blob unconditionally.
// Irreversible, and idempotent: resetting an empty store is a no-op.
func (s *HistoryStore) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]inventory.DayRecord)
	s.order = nil

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to remove history file").Build()
	}
	return nil
}

// persistLocked writes the whole blob atomically via a temp file rename.
// Caller holds the write lock.
func (s *HistoryStore) persistLocked() error {
	data, err := encodeHistory(s.records, s.order)
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryInternal, "failed to serialize history").Build()
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to persist history").Build()
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to replace history file").Build()
	}
	return nil
}

// Path returns the location of the history blob (watched by the daemon).
func (s *HistoryStore) Path() string { return s.path }

// order bookkeeping. The original app moved a mutated date to the end of the
// persisted array; keeping that quirk keeps exports byte-comparable.

func (s *HistoryStore) orderIndex(date string) int {
	for i, d := range s.order {
		if d == date {
			return i
		}
	}
	return -1
}

func (s *HistoryStore) touchOrder(date string) {
	s.dropOrder(date)
	s.order = append(s.order, date)
}

func (s *HistoryStore) dropOrder(date string) {
	if i := s.orderIndex(date); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func (s *HistoryStore) restoreOrder(date string, index int) {
	s.dropOrder(date)
	if index < 0 || index > len(s.order) {
		return
	}
	s.order = append(s.order[:index], append([]string{date}, s.order[index:]...)...)
}
