// Package api provides the HTTP server for dopamind: a JSON API over the
// gamification engine, an event stream for celebration overlays and the
// analytics dashboard endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/attnlab/dopamind/internal/app/analytics"
	"github.com/attnlab/dopamind/internal/app/gamification"
	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/health"
	"github.com/attnlab/dopamind/internal/infra/metrics"
)

// Server is the dopamind HTTP API server.
type Server struct {
	engine         *gamification.Engine
	ranking        domain.RankingProvider
	rankingLimit   int
	tracker        *analytics.Tracker
	checker        *health.Checker
	hub            *EventHub
	metricsEnabled bool
	corsOrigins    []string
	version        string
	logger         *slog.Logger
}

// NewServer creates a server over engine.
func NewServer(engine *gamification.Engine, version string) *Server {
	return &Server{
		engine:      engine,
		version:     version,
		corsOrigins: []string{"*"},
		logger:      slog.Default().With("component", "api"),
	}
}

// SetVersion sets the version reported by /api/status.
func (s *Server) SetVersion(v string) { s.version = v }

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRanking sets the leaderboard provider. limit <= 0 keeps the provider default.
func (s *Server) SetRanking(p domain.RankingProvider, limit int) {
	s.ranking = p
	s.rankingLimit = limit
}

// SetAnalytics sets the analytics tracker.
func (s *Server) SetAnalytics(t *analytics.Tracker) { s.tracker = t }

// SetHealth sets the health checker behind /health.
func (s *Server) SetHealth(c *health.Checker) { s.checker = c }

// SetEventHub sets the SSE hub.
func (s *Server) SetEventHub(h *EventHub) { s.hub = h }

// SetCORSOrigins replaces the allowed origins (default "*").
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// SetLogger sets the request logger.
func (s *Server) SetLogger(l *slog.Logger) { s.logger = l.With("component", "api") }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "dopamind is running",
			"version": s.version,
		})
	})

	r.Route("/api/gamification", func(r chi.Router) {
		// The event stream is long-lived; only the request/response routes get a timeout.
		if s.hub != nil {
			r.Get("/events", s.hub.HandleSSE)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/state", s.handleState)
			r.Get("/points", s.handlePoints)
			r.Get("/badges", s.handleBadges)
			r.Get("/badges/{id}", s.handleBadge)
			r.Get("/milestones", s.handleMilestones)
			r.Get("/milestones/{threshold}", s.handleMilestone)
			r.Get("/challenge", s.handleChallenge)
			r.Get("/progress", s.handleProgress)
			r.Get("/ranking", s.handleRanking)

			r.Post("/visit", s.handleVisit)
			r.Post("/points", s.handleAddPoints)
			r.Post("/quiz", s.handleQuiz)
			r.Post("/challenge/claim", s.handleClaim)
			r.Post("/challenge/reset", s.handleChallengeReset)
			r.Post("/reset", s.handleReset)
			r.Post("/sync", s.handleSync)
		})
	})

	if s.tracker != nil {
		r.Route("/api/analytics", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/summary", s.handleAnalyticsSummary)
			r.Get("/events", s.handleAnalyticsEvents)
			r.Post("/events", s.handleAnalyticsTrack)
			r.Delete("/events", s.handleAnalyticsClear)
			r.Get("/export.csv", s.handleAnalyticsExport)
		})
	}

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.checker.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.checker.Statuses(),
	})
}

// observe records request latency by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveRequest(route, strconv.Itoa(status/100)+"xx", time.Since(start))
		if status >= 500 {
			s.logger.Warn("request failed", "route", route, "status", status,
				"request_id", middleware.GetReqID(r.Context()))
		}
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// writeDomainError maps error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.InvalidArgument("decode", "invalid request body: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.InvalidArgument("query", "%s must be an integer", name)
	}
	return n, nil
}
