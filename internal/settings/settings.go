// Package settings persists app settings independently of the answer history:
// the daily reminder time and the once-only first-run reminder prompt flag.
// Same persistence discipline as the history store: load once at startup
// failing open, save the whole file after every mutation, atomic rename.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
)

// SettingsFileName is the settings blob inside the data directory.
const SettingsFileName = "settings.json"

// ReminderConfig is the persisted daily reminder time. At most one reminder is
// configured at a time; absence means the reminder is disabled.
type ReminderConfig struct {
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
	Enabled bool `json:"enabled"`
}

// TimeOfDay renders hh:mm for logs and the API.
func (r ReminderConfig) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// Validate rejects out-of-range clock values. The browser original let
// hour=25 roll the date over; here invalid input is a config error.
func (r ReminderConfig) Validate() error {
	if r.Hour < 0 || r.Hour > 23 {
		return ierr.ConfigError("reminder hour must be between 0 and 23").
			WithContext("hour", r.Hour).Build()
	}
	if r.Minute < 0 || r.Minute > 59 {
		return ierr.ConfigError("reminder minute must be between 0 and 59").
			WithContext("minute", r.Minute).Build()
	}
	return nil
}

type persisted struct {
	Reminder    *ReminderConfig `json:"reminder,omitempty"`
	PromptShown bool            `json:"prompt_shown"`
	LastExport  *time.Time      `json:"last_export,omitempty"`
}

// Store owns the settings blob.
type Store struct {
	path string

	mu   sync.RWMutex
	data persisted
}

// Open loads settings from dataDir, failing open to defaults on a missing or
// malformed file.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, ierr.StorageError("failed to create data directory").
			WithContext("data_dir", dataDir).Build()
	}

	s := &Store{path: filepath.Join(dataDir, SettingsFileName)}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Could not read settings file, using defaults",
				logfields.Component("settings"), logfields.Error(err))
		}
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		slog.Warn("Settings file is malformed, using defaults",
			logfields.Component("settings"), logfields.Error(err))
		s.data = persisted{}
	}
	return s, nil
}

// Reminder returns the configured reminder, if any.
func (s *Store) Reminder() (ReminderConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Reminder == nil || !s.data.Reminder.Enabled {
		return ReminderConfig{}, false
	}
	return *s.data.Reminder, true
}

// SetReminder validates and persists the reminder time, enabling it.
func (s *Store) SetReminder(hour, minute int) error {
	cfg := ReminderConfig{Hour: hour, Minute: minute, Enabled: true}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Reminder
	s.data.Reminder = &cfg
	if err := s.persistLocked(); err != nil {
		s.data.Reminder = prev
		return err
	}
	return nil
}

// ClearReminder removes the persisted reminder time. Safe when none is set.
func (s *Store) ClearReminder() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Reminder
	if prev == nil {
		return nil
	}
	s.data.Reminder = nil
	if err := s.persistLocked(); err != nil {
		s.data.Reminder = prev
		return err
	}
	return nil
}

// PromptShown reports whether the first-run reminder prompt was already offered.
func (s *Store) PromptShown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.PromptShown
}

// MarkPromptShown records that the first-run prompt has been offered, so it is
// shown at most once.
func (s *Store) MarkPromptShown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.PromptShown {
		return nil
	}
	s.data.PromptShown = true
	if err := s.persistLocked(); err != nil {
		s.data.PromptShown = false
		return err
	}
	return nil
}

// MarkExported records the time of the last successful export.
func (s *Store) MarkExported(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.LastExport
	s.data.LastExport = &at
	if err := s.persistLocked(); err != nil {
		s.data.LastExport = prev
		return err
	}
	return nil
}

// LastExport returns the time of the last successful export, if any.
func (s *Store) LastExport() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.LastExport == nil {
		return time.Time{}, false
	}
	return *s.data.LastExport, true
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryInternal, "failed to serialize settings").Build()
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to persist settings").Build()
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to replace settings file").Build()
	}
	return nil
}
