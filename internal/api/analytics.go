package api

import (
	"encoding/json"
	"net/http"
)

type trackRequest struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// GET /api/analytics/summary
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.tracker.Summary()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": s.tracker.SessionID(),
		"summary":   sum,
	})
}

// GET /api/analytics/events?name=&limit=
func (s *Server) handleAnalyticsEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	events, err := s.tracker.Events(r.URL.Query().Get("name"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// POST /api/analytics/events {"name": "...", "metadata": {...}}
func (s *Server) handleAnalyticsTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	var meta any
	if len(req.Metadata) > 0 {
		meta = req.Metadata
	}
	if err := s.tracker.Track(req.Name, meta); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// DELETE /api/analytics/events
func (s *Server) handleAnalyticsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Clear(); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/analytics/export.csv?limit=
func (s *Server) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 1000)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="analytics.csv"`)
	if err := s.tracker.ExportCSV(w, limit); err != nil {
		s.logger.Warn("csv export failed", "error", err)
	}
}
