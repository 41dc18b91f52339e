package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
	"git.home.luguber.info/inful/inventoryd/internal/notify"
	"git.home.luguber.info/inful/inventoryd/internal/reminder"
	"git.home.luguber.info/inful/inventoryd/internal/store"
	"git.home.luguber.info/inful/inventoryd/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type statusResponse struct {
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	DaysRecorded  int             `json:"days_recorded"`
	Reminder      reminder.Status `json:"reminder"`
	Subscribers   int             `json:"subscribers"`
	PromptShown   bool            `json:"prompt_shown"`
	LastExport    *time.Time      `json:"last_export,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:       version.Version,
		UptimeSeconds: int64(s.clock.Now().Sub(s.startTime).Seconds()),
		DaysRecorded:  s.history.Len(),
		Reminder:      s.scheduler.Status(),
		Subscribers:   s.hub.SubscriberCount(),
		PromptShown:   s.settings.PromptShown(),
	}
	if at, ok := s.settings.LastExport(); ok {
		resp.LastExport = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Average      store.AverageSummary  `json:"average"`
	CompleteDays int                   `json:"complete_days"`
	Activity     journal.ActivityStats `json:"activity"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	activity, err := s.journal.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Average:      s.history.Average(),
		CompleteDays: s.history.CompleteDays(),
		Activity:     activity,
	})
}

type journalResponse struct {
	Entries []journal.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// handleJournal serves the audit trail: recent entries, or everything
// concerning one calendar day when ?date= is given.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	var (
		entries []journal.Entry
		err     error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		if _, perr := inventory.ParseDateKey(date); perr != nil {
			s.writeError(w, r, ierr.ValidationError(perr.Error()).Build())
			return
		}
		entries, err = s.journal.ForDate(r.Context(), date)
	} else {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				s.writeError(w, r, ierr.ValidationError("limit must be a positive integer").Build())
				return
			}
		}
		entries, err = s.journal.Recent(r.Context(), limit)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, journalResponse{Entries: entries, Total: len(entries)})
}

// sseEvent is the wire envelope on the event stream.
type sseEvent struct {
	Type         string               `json:"type"` // connected, notification
	Timestamp    time.Time            `json:"timestamp"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

const sseHeartbeat = 30 * time.Second

// handleEvents streams reminder notifications to the client as Server-Sent
// Events until it disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorStatus(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, unsubscribe := s.hub.Subscribe()
	defer func() {
		unsubscribe()
		s.recorder.SetEventSubscribers(s.hub.SubscriberCount())
	}()
	s.recorder.SetEventSubscribers(s.hub.SubscriberCount())

	s.logger.Info("Event stream opened", logfields.RemoteAddr(r.RemoteAddr))

	s.sendSSE(w, flusher, sseEvent{Type: "connected", Timestamp: s.clock.Now()})

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("Event stream closed", logfields.RemoteAddr(r.RemoteAddr))
			return
		case <-heartbeat.C:
			// Comment line keeps proxies from timing the stream out.
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case n, open := <-ch:
			if !open {
				return
			}
			s.sendSSE(w, flusher, sseEvent{
				Type:         "notification",
				Timestamp:    n.Timestamp,
				Notification: &n,
			})
		}
	}
}

func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal SSE event", logfields.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

var helpOnce sync.Once
var helpHTML []byte

// handleHelp serves the usage document, rendered from Markdown once.
func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	helpOnce.Do(func() {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(helpMarkdown), &buf); err != nil {
			s.logger.Error("Failed to render help page", logfields.Error(err))
			helpHTML = []byte("<pre>" + helpMarkdown + "</pre>")
			return
		}
		helpHTML = buf.Bytes()
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pageHeader))
	_, _ = w.Write(helpHTML)
	_, _ = w.Write([]byte(pageFooter))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}
