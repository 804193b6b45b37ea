package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/adalundhe/dirsentry/core/sink"
)

// DefaultEventLimit is used when /api/events has no limit parameter.
const DefaultEventLimit = 50

// Status is the /api/status document.
type Status struct {
	State      monitor.State   `json:"state"`
	Roots      []string        `json:"roots"`
	Interval   string          `json:"interval"`
	Cycles     uint64          `json:"cycles"`
	LastReport *monitor.Report `json:"last_report"`
	Time       time.Time       `json:"time"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines, err := sink.ReadLines(s.cfg.LogPath)
	if err != nil {
		s.logger.Error("read change log", "path", s.cfg.LogPath, "error", err)
		writeError(w, http.StatusInternalServerError, "change log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := []change.Event{}
	if s.cfg.Events != nil {
		events = s.cfg.Events.Recent(limit)
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		State:    monitor.StateIdle,
		Roots:    s.cfg.Roots,
		Interval: s.cfg.Interval.String(),
		Time:     time.Now(),
	}
	if s.cfg.Status != nil {
		status.State = s.cfg.Status.State()
		status.Cycles = s.cfg.Status.Cycles()
		status.LastReport = s.cfg.Status.LastReport()
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
