// Package journal keeps an append-only log of history mutations and reminder
// outcomes in SQLite. The journal is advisory: it powers the activity
// statistics and an audit trail, and losing it never affects the authoritative
// history blob.
package journal

import (
	"context"
	"time"
)

// EntryType classifies journal entries.
type EntryType string

const (
	EntryAnswerSet       EntryType = "answer_set"
	EntryHistoryImported EntryType = "history_imported"
	EntryHistoryReset    EntryType = "history_reset"
	EntryReminderArmed   EntryType = "reminder_armed"
	EntryReminderFired   EntryType = "reminder_fired"
	EntryReminderFailed  EntryType = "reminder_failed"
)

// Entry is one journal row.
type Entry struct {
	ID        int64          `json:"id"`
	Type      EntryType      `json:"type"`
	Date      string         `json:"date,omitempty"` // calendar day the entry concerns, when applicable
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// ActivityStats is the aggregate projection over the journal.
type ActivityStats struct {
	AnswersRecorded int `json:"answers_recorded"`
	Imports         int `json:"imports"`
	Resets          int `json:"resets"`
	RemindersFired  int `json:"reminders_fired"`
	RemindersFailed int `json:"reminders_failed"`
}

// Journal records mutation events. Implementations must tolerate concurrent
// appenders (HTTP handlers and the scheduler callback).
type Journal interface {
	Append(ctx context.Context, typ EntryType, date string, detail map[string]any) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ForDate(ctx context.Context, date string) ([]Entry, error)
	Stats(ctx context.Context) (ActivityStats, error)
	Close() error
}

// Noop discards everything (journal disabled in config).
type Noop struct{}

func (Noop) Append(context.Context, EntryType, string, map[string]any) error { return nil }
func (Noop) Recent(context.Context, int) ([]Entry, error)                    { return nil, nil }
func (Noop) ForDate(context.Context, string) ([]Entry, error)                { return nil, nil }
func (Noop) Stats(context.Context) (ActivityStats, error)                    { return ActivityStats{}, nil }
func (Noop) Close() error                                                    { return nil }
