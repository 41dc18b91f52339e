package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite opens (or creates) the journal database. Use ":memory:" for an
// ephemeral journal, or a file path for persistent storage.
func OpenSQLite(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A second pooled connection to ":memory:" would get its own empty
	// database; the journal serializes writes anyway.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_type TEXT NOT NULL,
		date TEXT,
		timestamp INTEGER NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_entry_type ON entries(entry_type);
	CREATE INDEX IF NOT EXISTS idx_date ON entries(date);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON entries(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append adds a new entry to the journal.
func (j *SQLiteJournal) Append(ctx context.Context, typ EntryType, date string, detail map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO entries (entry_type, date, timestamp, detail) VALUES (?, ?, ?, ?)",
		string(typ), date, time.Now().Unix(), detailJSON,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	return nil
}

// Recent returns the newest entries, most recent first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, entry_type, date, timestamp, detail FROM entries ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	return j.scanEntries(rows)
}

// ForDate returns all entries concerning a calendar day, oldest first.
func (j *SQLiteJournal) ForDate(ctx context.Context, date string) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, entry_type, date, timestamp, detail FROM entries WHERE date = ? ORDER BY id",
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	return j.scanEntries(rows)
}

// Stats aggregates the journal into activity counters.
func (j *SQLiteJournal) Stats(ctx context.Context) (ActivityStats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT entry_type, COUNT(*) FROM entries GROUP BY entry_type",
	)
	if err != nil {
		return ActivityStats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats ActivityStats
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return ActivityStats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch EntryType(typ) {
		case EntryAnswerSet:
			stats.AnswersRecorded = count
		case EntryHistoryImported:
			stats.Imports = count
		case EntryHistoryReset:
			stats.Resets = count
		case EntryReminderFired:
			stats.RemindersFired = count
		case EntryReminderFailed:
			stats.RemindersFailed = count
		}
	}
	if err := rows.Err(); err != nil {
		return ActivityStats{}, fmt.Errorf("iterate rows: %w", err)
	}

	return stats, nil
}

func (j *SQLiteJournal) scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ string
		var date sql.NullString
		var timestampUnix int64
		var detailJSON []byte

		if err := rows.Scan(&e.ID, &typ, &date, &timestampUnix, &detailJSON); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		e.Type = EntryType(typ)
		e.Date = date.String
		e.Timestamp = time.Unix(timestampUnix, 0)

		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal detail: %w", err)
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
