package server

import (
	"encoding/json"
	"io"
	"net/http"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
	"git.home.luguber.info/inful/inventoryd/internal/reminder"
)

type reminderResponse struct {
	reminder.Status
	// Prompt is true exactly once: the first time the reminder state is
	// fetched, so the client can offer enabling the daily reminder.
	Prompt bool `json:"prompt"`
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	resp := reminderResponse{Status: s.scheduler.Status()}
	if !s.settings.PromptShown() {
		resp.Prompt = true
		if err := s.settings.MarkPromptShown(); err != nil {
			s.logger.Warn("Failed to persist prompt flag", logfields.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type putReminderRequest struct {
	Hour   *int `json:"hour"`
	Minute *int `json:"minute"`
}

func (s *Server) handlePutReminder(w http.ResponseWriter, r *http.Request) {
	var req putReminderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		s.writeError(w, r, ierr.ValidationError("request body must be JSON with hour and minute fields").Build())
		return
	}
	if req.Hour == nil || req.Minute == nil {
		s.writeError(w, r, ierr.ValidationError("hour and minute are required").Build())
		return
	}

	if err := s.scheduler.ScheduleDaily(r.Context(), *req.Hour, *req.Minute); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.Cancel(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.FireNow(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	state, err := s.scheduler.RequestPermission(r.Context())
	if err != nil {
		// Denied is a state, not a server failure: report it with the state
		// attached so the client can present the retry option.
		writeJSON(w, s.adapter.StatusCodeFor(err), map[string]string{
			"state": string(state),
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}
