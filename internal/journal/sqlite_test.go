package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAndForDate(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", map[string]any{"row": 0, "answer": "left"}))
	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", map[string]any{"row": 1, "answer": "right"}))
	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-16", map[string]any{"row": 0, "answer": "left"}))

	entries, err := j.ForDate(ctx, "2024-01-15")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryAnswerSet, entries[0].Type)
	assert.Equal(t, "2024-01-15", entries[0].Date)
	assert.Equal(t, float64(0), entries[0].Detail["row"])
	assert.Equal(t, "right", entries[1].Detail["answer"])
}

func TestRecent_NewestFirst(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	require.NoError(t, j.Append(ctx, EntryHistoryReset, "", nil))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryHistoryReset, entries[0].Type)
	assert.Equal(t, EntryAnswerSet, entries[1].Type)
}

func TestRecent_Limit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	}

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStats(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	require.NoError(t, j.Append(ctx, EntryHistoryImported, "", map[string]any{"days": 3}))
	require.NoError(t, j.Append(ctx, EntryReminderFired, "2024-01-15", nil))
	require.NoError(t, j.Append(ctx, EntryReminderFailed, "2024-01-16", nil))

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.AnswersRecorded)
	assert.Equal(t, 1, stats.Imports)
	assert.Equal(t, 0, stats.Resets)
	assert.Equal(t, 1, stats.RemindersFired)
	assert.Equal(t, 1, stats.RemindersFailed)
}

func TestStats_Empty(t *testing.T) {
	j := newTestJournal(t)
	stats, err := j.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActivityStats{}, stats)
}

func TestPersistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	require.NoError(t, j.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNoop(t *testing.T) {
	var j Journal = Noop{}
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, EntryAnswerSet, "2024-01-15", nil))
	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
