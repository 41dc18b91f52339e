package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
	"git.home.luguber.info/inful/inventoryd/internal/metrics"
	"git.home.luguber.info/inful/inventoryd/internal/store"
)

// maxImportSize bounds import request bodies. Years of daily history stay
// well under a megabyte.
const maxImportSize = 10 << 20

type entryResponse struct {
	Date    string              `json:"date"`
	Answers inventory.DayRecord `json:"answers"`
	Summary store.DaySummary    `json:"summary"`
}

type entriesResponse struct {
	Days  []store.DaySummary `json:"days"`
	Total int                `json:"total"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	dates := s.history.Dates()
	days := make([]store.DaySummary, 0, len(dates))
	for _, date := range dates {
		sum, err := s.history.Summary(date)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		days = append(days, sum)
	}
	writeJSON(w, http.StatusOK, entriesResponse{Days: days, Total: len(days)})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")

	rec, err := s.history.Answers(date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.history.Summary(date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Date: date, Answers: rec, Summary: sum})
}

func (s *Server) handleGetEntrySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.history.Summary(r.PathValue("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAverageSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Average())
}

type putAnswerRequest struct {
	Answer *int `json:"answer"`
}

func (s *Server) handlePutAnswer(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		s.writeError(w, r, ierr.ValidationError("row must be an integer").Build())
		return
	}

	future, err := inventory.IsFutureDate(date, s.clock.Now())
	if err != nil {
		s.writeError(w, r, ierr.ValidationError(err.Error()).Build())
		return
	}
	if future {
		writeErrorStatus(w, http.StatusUnprocessableEntity, "cannot record answers for a future date")
		return
	}

	var req putAnswerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		s.writeError(w, r, ierr.ValidationError("request body must be JSON with an answer field").Build())
		return
	}
	if req.Answer == nil {
		s.writeError(w, r, ierr.ValidationError("answer is required (0 = left, 1 = right)").Build())
		return
	}
	answer, err := inventory.AnswerFromWire(*req.Answer)
	if err != nil {
		s.writeError(w, r, ierr.ValidationError(err.Error()).Build())
		return
	}

	if err := s.history.SetAnswer(date, row, answer); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The header row carries no answer; the write above was a no-op and the
	// journal and counters stay untouched.
	if row != inventory.HeaderRowIndex {
		s.recorder.IncAnswerRecorded(metrics.AnswerLabel(answer.String()))
		s.recorder.SetHistoryDays(s.history.Len())
		if err := s.journal.Append(r.Context(), journal.EntryAnswerSet, date, map[string]any{
			"row":    row,
			"answer": answer.String(),
		}); err != nil {
			s.logger.Warn("Failed to journal answer", logfields.Error(err))
		}
	}

	sum, err := s.history.Summary(date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"row":     row,
		"answer":  answer.String(),
		"summary": sum,
	})
}

func (s *Server) handleResetEntries(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.writeError(w, r, ierr.ValidationError("reset requires confirm=true").Build())
		return
	}

	if err := s.history.ResetAll(); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.recorder.IncReset()
	s.recorder.SetHistoryDays(0)
	if err := s.journal.Append(r.Context(), journal.EntryHistoryReset, "", nil); err != nil {
		s.logger.Warn("Failed to journal reset", logfields.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.history.ExportAll()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.clock.Now()
	if err := s.settings.MarkExported(now); err != nil {
		s.logger.Warn("Failed to record export time", logfields.Error(err))
	}

	filename := fmt.Sprintf("daily-inventory-%s.json", inventory.DateKey(now))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		s.writeError(w, r, ierr.ImportError("failed to read import body").Build())
		return
	}

	if err := s.history.ImportAll(blob); err != nil {
		s.writeError(w, r, err)
		return
	}

	days := s.history.Len()
	s.recorder.IncImport()
	s.recorder.SetHistoryDays(days)
	if err := s.journal.Append(r.Context(), journal.EntryHistoryImported, "", map[string]any{
		"days": days,
	}); err != nil {
		s.logger.Warn("Failed to journal import", logfields.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]int{"days": days})
}
