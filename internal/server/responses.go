package server

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps classified errors onto status codes via the adapter.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.adapter.WriteErrorResponse(w, r, err)
}

// writeErrorStatus writes an error payload with an explicit status, for cases
// the category mapping does not cover (422 on future dates).
func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
