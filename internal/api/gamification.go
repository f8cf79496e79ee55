package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/attnlab/dopamind/internal/domain"
)

// ─── Request Types ──────────────────────────────────────────────────────────

type visitRequest struct {
	PageID string `json:"pageId"`
}

type addPointsRequest struct {
	Amount     int    `json:"amount"`
	SourceType string `json:"sourceType"`
}

type quizRequest struct {
	ScorePercent *int `json:"scorePercent"`
}

// ─── Response Types ─────────────────────────────────────────────────────────

type badgeView struct {
	domain.BadgeDefinition
	Unlocked bool `json:"unlocked"`
}

type milestoneView struct {
	domain.MilestoneDefinition
	Reached bool `json:"reached"`
}

type stateResponse struct {
	domain.ProgressState
	Multiplier float64 `json:"multiplier"`
}

// ─── Queries ────────────────────────────────────────────────────────────────

// GET /api/gamification/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	writeJSON(w, http.StatusOK, stateResponse{ProgressState: st, Multiplier: st.Multiplier()})
}

// GET /api/gamification/points
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"points": s.engine.Points()})
}

// GET /api/gamification/badges
func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	defs := s.engine.BadgeDefinitions()
	out := make([]badgeView, len(defs))
	for i, d := range defs {
		out[i] = badgeView{BadgeDefinition: d, Unlocked: st.HasBadge(d.ID)}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"badges":   out,
		"unlocked": s.engine.UnlockedBadges(),
	})
}

// GET /api/gamification/badges/{id}
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	id := domain.BadgeID(chi.URLParam(r, "id"))
	def, ok := s.engine.Badge(id)
	if !ok {
		writeDomainError(w, &domain.Error{Op: "Badge", Kind: domain.ErrNotFound})
		return
	}
	writeJSON(w, http.StatusOK, badgeView{BadgeDefinition: def, Unlocked: s.engine.State().HasBadge(id)})
}

// GET /api/gamification/milestones
func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	defs := s.engine.MilestoneDefinitions()
	out := make([]milestoneView, len(defs))
	for i, m := range defs {
		out[i] = milestoneView{MilestoneDefinition: m, Reached: st.HasMilestone(m.Threshold)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"milestones": out})
}

// GET /api/gamification/milestones/{threshold}
func (s *Server) handleMilestone(w http.ResponseWriter, r *http.Request) {
	threshold, err := strconv.Atoi(chi.URLParam(r, "threshold"))
	if err != nil {
		writeDomainError(w, domain.InvalidArgument("Milestone", "threshold must be an integer"))
		return
	}
	m, ok := s.engine.Milestone(threshold)
	if !ok {
		writeDomainError(w, &domain.Error{Op: "Milestone", Kind: domain.ErrNotFound})
		return
	}
	writeJSON(w, http.StatusOK, milestoneView{MilestoneDefinition: m, Reached: s.engine.State().HasMilestone(threshold)})
}

// GET /api/gamification/challenge
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.DailyChallengeStatus())
}

// GET /api/gamification/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"progressPercent": s.engine.ProgressPercent(),
		"unlockedBadges":  len(st.Badges),
		"totalBadges":     len(s.engine.BadgeDefinitions()),
		"points":          st.Points,
	})
}

// GET /api/gamification/ranking?limit=N
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	if s.ranking == nil {
		writeError(w, http.StatusServiceUnavailable, "ranking not configured")
		return
	}
	limit, err := queryInt(r, "limit", s.rankingLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entries, err := s.ranking.Ranking(r.Context(), s.engine.Points(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ranking": entries})
}

// ─── Commands ───────────────────────────────────────────────────────────────

// POST /api/gamification/visit {"pageId": "..."}
func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	isNew, err := s.engine.VisitPage(req.PageID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"new":         isNew,
		"totalPoints": s.engine.Points(),
	})
}

// POST /api/gamification/points {"amount": N, "sourceType": "..."}
func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	var req addPointsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := s.engine.AddPoints(req.Amount, req.SourceType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/gamification/quiz {"scorePercent": N}
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.ScorePercent == nil {
		writeDomainError(w, domain.InvalidArgument("CompleteQuiz", "scorePercent is required"))
		return
	}
	awarded, err := s.engine.CompleteQuiz(*req.ScorePercent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"pointsAwarded": awarded,
		"totalPoints":   s.engine.Points(),
	})
}

// POST /api/gamification/challenge/claim
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	ok := s.engine.CompleteDailyChallenge()
	writeJSON(w, http.StatusOK, map[string]any{
		"completed": ok,
		"challenge": s.engine.DailyChallengeStatus(),
	})
}

// POST /api/gamification/challenge/reset
func (s *Server) handleChallengeReset(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetDailyChallenge()
	writeJSON(w, http.StatusOK, s.engine.DailyChallengeStatus())
}

// POST /api/gamification/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetAll()
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/gamification/sync
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Sync(); err != nil {
		writeDomainError(w, err)
		return
	}
	st := s.engine.State()
	writeJSON(w, http.StatusOK, stateResponse{ProgressState: st, Multiplier: st.Multiplier()})
}
