package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inventoryd/internal/config"
	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/metrics"
	"git.home.luguber.info/inful/inventoryd/internal/notify"
	"git.home.luguber.info/inful/inventoryd/internal/reminder"
	"git.home.luguber.info/inful/inventoryd/internal/settings"
	"git.home.luguber.info/inful/inventoryd/internal/store"
)

// testNow is noon on the canonical test day; requests for later dates are
// future-dated.
var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)

type testEnv struct {
	server    *Server
	history   *store.HistoryStore
	hub       *notify.Hub
	scheduler *reminder.Scheduler
	clock     *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(testNow)

	history, err := store.Open(dir)
	require.NoError(t, err)
	st, err := settings.Open(dir)
	require.NoError(t, err)
	jnl, err := journal.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = jnl.Close() })

	hub := notify.NewHub()
	fanout := notify.NewFanout(notify.NewSlogSink(nil), hub)

	sched, err := reminder.New(fanout, st, jnl, nil, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	ctx := context.Background()
	_, err = sched.Initialize(ctx)
	require.NoError(t, err)
	_, err = sched.RequestPermission(ctx)
	require.NoError(t, err)

	cfg := config.Default()
	srv := New(cfg, history, st, jnl, sched, hub, nil, Options{Clock: clock})

	return &testEnv{server: srv, history: history, hub: hub, scheduler: sched, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestPutAnswer_RoundTrip(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/entries/2024-01-15/answers/0", map[string]int{"answer": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/entries/2024-01-15/answers/1", map[string]int{"answer": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/entries/2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decodeBody[entryResponse](t, rec)
	assert.Equal(t, "2024-01-15", entry.Date)
	require.Len(t, entry.Answers, inventory.RowCount())
	assert.Equal(t, inventory.Left, entry.Answers[0])
	assert.Equal(t, inventory.Right, entry.Answers[1])
	assert.Equal(t, 1, entry.Summary.Left)
	assert.Equal(t, 1, entry.Summary.Right)

	rec = e.do(t, http.MethodGet, "/api/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[entriesResponse](t, rec)
	assert.Equal(t, 1, list.Total)
}

func TestPutAnswer_FutureDateRejected(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPut, "/api/entries/2024-01-16/answers/0", map[string]int{"answer": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, e.history.Len())
}

func TestPutAnswer_TodayAllowed(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPut, "/api/entries/2024-01-15/answers/0", map[string]int{"answer": 1})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPutAnswer_Validation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"bad date", "/api/entries/nope/answers/0", map[string]int{"answer": 0}, http.StatusBadRequest},
		{"bad row", "/api/entries/2024-01-15/answers/notanumber", map[string]int{"answer": 0}, http.StatusBadRequest},
		{"row out of range", "/api/entries/2024-01-15/answers/99", map[string]int{"answer": 0}, http.StatusBadRequest},
		{"answer out of range", "/api/entries/2024-01-15/answers/0", map[string]int{"answer": 2}, http.StatusBadRequest},
		{"missing answer", "/api/entries/2024-01-15/answers/0", map[string]string{}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, 0, e.history.Len())
}

func TestPutAnswer_HeaderRowIgnored(t *testing.T) {
	e := newTestEnv(t)
	path := fmt.Sprintf("/api/entries/2024-01-15/answers/%d", inventory.HeaderRowIndex)
	rec := e.do(t, http.MethodPut, path, map[string]int{"answer": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, e.history.Len())
}

func TestGetEntry_AbsentDateIsAllUnanswered(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/entries/2020-05-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decodeBody[entryResponse](t, rec)
	assert.Equal(t, inventory.AnswerableRowCount(), entry.Summary.Remaining)
}

func TestGetEntrySummary(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))
	require.NoError(t, e.history.SetAnswer("2024-01-15", 1, inventory.Right))

	rec := e.do(t, http.MethodGet, "/api/entries/2024-01-15/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[store.DaySummary](t, rec)
	assert.Equal(t, 1, sum.Left)
	assert.Equal(t, 1, sum.Right)
	assert.Equal(t, inventory.AnswerableRowCount()-2, sum.Remaining)
	assert.False(t, sum.Complete)
}

func TestAverageSummary(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-14", 0, inventory.Left))
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Right))
	require.NoError(t, e.history.SetAnswer("2024-01-15", 1, inventory.Right))

	rec := e.do(t, http.MethodGet, "/api/summary/average", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	avg := decodeBody[store.AverageSummary](t, rec)
	assert.Equal(t, 2, avg.Days)
	assert.InDelta(t, 0.5, avg.AvgLeft, 1e-9)
	assert.InDelta(t, 1.0, avg.AvgRight, 1e-9)
}

func TestResetEntries(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))

	rec := e.do(t, http.MethodDelete, "/api/entries", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, e.history.Len())

	rec = e.do(t, http.MethodDelete, "/api/entries?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, e.history.Len())
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))

	rec := e.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="daily-inventory-2024-01-15.json"`,
		rec.Header().Get("Content-Disposition"))

	var entries []map[string][]*int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
}

func TestImport(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))

	req := httptest.NewRequest(http.MethodPost, "/api/import",
		strings.NewReader(`[{"2023-06-01":[1,null,0]}]`))
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"days":1}`, rec.Body.String())
	assert.Equal(t, []string{"2023-06-01"}, e.history.Dates())
}

func TestImport_MalformedRejected(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "invalid file format", body["error"])
	// The prior history is untouched.
	assert.Equal(t, []string{"2024-01-15"}, e.history.Dates())
}

func TestReminderLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/reminder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[reminder.Status](t, rec)
	assert.Equal(t, reminder.StateIdle, status.State)

	rec = e.do(t, http.MethodPut, "/api/reminder", map[string]int{"hour": 21, "minute": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeBody[reminder.Status](t, rec)
	assert.Equal(t, reminder.StateScheduled, status.State)
	assert.Equal(t, "21:00", status.Time)
	require.NotNil(t, status.NextRun)

	rec = e.do(t, http.MethodDelete, "/api/reminder", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/reminder", nil)
	status = decodeBody[reminder.Status](t, rec)
	assert.Equal(t, reminder.StateIdle, status.State)
}

func TestPutReminder_Validation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/reminder", map[string]int{"hour": 25, "minute": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/reminder", map[string]int{"hour": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestReminder_DeliversToHub(t *testing.T) {
	e := newTestEnv(t)
	ch, unsubscribe := e.hub.Subscribe()
	defer unsubscribe()

	rec := e.do(t, http.MethodPost, "/api/reminder/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case n := <-ch:
		assert.Equal(t, "Test Notification", n.Title)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered to hub")
	}
}

func TestTestReminder_RequiresPermission(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(testNow)

	history, err := store.Open(dir)
	require.NoError(t, err)
	st, err := settings.Open(dir)
	require.NoError(t, err)

	hub := notify.NewHub()
	sched, err := reminder.New(notify.NewFanout(hub), st, nil, nil, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	// Initialized but permission never requested.
	_, err = sched.Initialize(context.Background())
	require.NoError(t, err)

	srv := New(config.Default(), history, st, nil, sched, hub, nil, Options{Clock: clock})

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	req := httptest.NewRequest(http.MethodPost, "/api/reminder/test", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	select {
	case n := <-ch:
		t.Fatalf("notification delivered without granted permission: %s", n.Title)
	default:
	}
}

func TestGetReminder_FirstRunPromptOnce(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/status", nil)
	status := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, status["prompt_shown"])

	rec = e.do(t, http.MethodGet, "/api/reminder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, first["prompt"])

	rec = e.do(t, http.MethodGet, "/api/reminder", nil)
	second := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, second["prompt"])

	rec = e.do(t, http.MethodGet, "/api/status", nil)
	status = decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, status["prompt_shown"])
}

func TestRequestPermission(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/reminder/permission", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, string(reminder.StateIdle), body["state"])
}

func TestStatus(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.history.SetAnswer("2024-01-15", 0, inventory.Left))

	rec := e.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["days_recorded"])
	assert.Contains(t, body, "reminder")
	assert.Contains(t, body, "version")
}

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Contains(t, body, "average")
	assert.Contains(t, body, "activity")
}

func TestJournalEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/entries/2024-01-15/answers/0", map[string]int{"answer": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPut, "/api/entries/2024-01-14/answers/1", map[string]int{"answer": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/journal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[journalResponse](t, rec)
	require.Equal(t, 2, resp.Total)
	// Newest first.
	assert.Equal(t, journal.EntryAnswerSet, resp.Entries[0].Type)
	assert.Equal(t, "2024-01-14", resp.Entries[0].Date)

	rec = e.do(t, http.MethodGet, "/api/journal?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[journalResponse](t, rec)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "2024-01-15", resp.Entries[0].Date)

	rec = e.do(t, http.MethodGet, "/api/journal?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[journalResponse](t, rec)
	assert.Equal(t, 1, resp.Total)

	rec = e.do(t, http.MethodGet, "/api/journal?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/journal?date=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournalEndpoint_EmptyJournal(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/journal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[journalResponse](t, rec)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Entries)
}

func TestIndexAndHelpPages(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inventoryd")

	rec = e.do(t, http.MethodGet, "/help", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/entries")
}

func TestUnknownRouteAnd405(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/entries/2024-01-15/answers/0", map[string]int{"answer": 0})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var event sseEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, "connected", event.Type)
}

func TestPanicRecovery(t *testing.T) {
	chain := Chain(slog.Default(), ierr.NewHTTPErrorAdapter(nil), metrics.NoopRecorder{})
	handler := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
