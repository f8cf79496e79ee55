// Package domain holds the gamification model shared by every layer:
// progress state, static catalogs, bus events, error kinds and the
// storage/ranking boundaries. It has no infrastructure dependency.
package domain

import (
	"fmt"
	"slices"
)

// ─── Identifiers ────────────────────────────────────────────────────────────

// BadgeID is the canonical identifier of a badge.
type BadgeID string

const (
	BadgeVisitor    BadgeID = "visitor"
	BadgeExplorer   BadgeID = "explorer"
	BadgeMaster     BadgeID = "master"
	BadgeSpecialist BadgeID = "specialist"
	BadgeGuru       BadgeID = "guru"
	BadgeDefender   BadgeID = "defender"
	BadgeQuizMaster BadgeID = "quiz_master"
)

// Source tags passed to AddPoints.
const (
	SourcePageVisit      = "page_visit"
	SourceInteraction    = "interaction"
	SourceQuiz           = "quiz"
	SourceDailyChallenge = "daily_challenge"
	SourceGeneral        = "general"
)

// CountsTowardChallenge reports whether points from this source advance
// the daily challenge counter.
func CountsTowardChallenge(sourceType string) bool {
	return sourceType == SourcePageVisit || sourceType == SourceInteraction
}

// ─── Catalog Types ──────────────────────────────────────────────────────────

// BadgeBonusPoints is granted once when any badge unlocks.
const BadgeBonusPoints = 50

// BadgeDefinition describes one unlockable badge.
type BadgeDefinition struct {
	ID                     BadgeID `json:"id"`
	DisplayName            string  `json:"displayName"`
	Icon                   string  `json:"icon"`
	RequirementDescription string  `json:"requirementDescription"`
}

// MilestoneDefinition is a point threshold that pays a one-time bonus.
type MilestoneDefinition struct {
	Threshold   int    `json:"threshold"`
	Message     string `json:"message"`
	BonusPoints int    `json:"bonusPoints"`
}

// ─── Progress State ─────────────────────────────────────────────────────────

// DefaultRequiredPages is the daily challenge target.
const DefaultRequiredPages = 3

// Multiplier bounds, in tenths.
const (
	MultiplierMinTenths  = 10
	MultiplierMaxTenths  = 20
	MultiplierStepTenths = 1
)

// DateLayout is the calendar date format used for lastResetDate.
const DateLayout = "2006-01-02"

// DailyChallenge is the per-calendar-day "visit N pages" objective.
type DailyChallenge struct {
	VisitedToday  int    `json:"visitedToday"`
	Required      int    `json:"required"`
	Completed     bool   `json:"completed"`
	LastResetDate string `json:"lastResetDate"`
}

// ChallengePhase is the daily challenge state machine position.
type ChallengePhase string

const (
	PhasePending   ChallengePhase = "pending"
	PhaseClaimable ChallengePhase = "claimable"
	PhaseCompleted ChallengePhase = "completed"
)

// Phase derives the state machine position from the counters.
func (c DailyChallenge) Phase() ChallengePhase {
	switch {
	case c.Completed:
		return PhaseCompleted
	case c.VisitedToday >= c.Required:
		return PhaseClaimable
	default:
		return PhasePending
	}
}

// CanClaim is true while the challenge is Claimable.
func (c DailyChallenge) CanClaim() bool {
	return c.Phase() == PhaseClaimable
}

// ProgressPercent returns min(100, visitedToday/required*100).
func (c DailyChallenge) ProgressPercent() float64 {
	if c.Required <= 0 {
		return 100
	}
	pct := float64(c.VisitedToday) / float64(c.Required) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressState is the single aggregate owned by the engine.
// Slices are sets kept in insertion order.
type ProgressState struct {
	Points         int            `json:"points"`
	Badges         []BadgeID      `json:"badges"`
	Milestones     []int          `json:"milestones"`
	PagesVisited   []string       `json:"pagesVisited"`
	QuizCompleted  bool           `json:"quizCompleted"`
	QuizScore      int            `json:"quizScore"`
	DailyChallenge DailyChallenge `json:"dailyChallenge"`
	// MultiplierTenths holds the multiplier ×10 (10..20).
	MultiplierTenths int `json:"-"`
}

// NewProgressState returns the zero state for the given calendar date.
func NewProgressState(today string, required int) ProgressState {
	if required <= 0 {
		required = DefaultRequiredPages
	}
	return ProgressState{
		Badges:       []BadgeID{},
		Milestones:   []int{},
		PagesVisited: []string{},
		DailyChallenge: DailyChallenge{
			Required:      required,
			LastResetDate: today,
		},
		MultiplierTenths: MultiplierMinTenths,
	}
}

// Multiplier returns the point multiplier as a real number.
func (s ProgressState) Multiplier() float64 {
	return float64(s.MultiplierTenths) / 10
}

// HasBadge reports membership in the badge set.
func (s ProgressState) HasBadge(id BadgeID) bool {
	return slices.Contains(s.Badges, id)
}

// HasMilestone reports membership in the milestone set.
func (s ProgressState) HasMilestone(threshold int) bool {
	return slices.Contains(s.Milestones, threshold)
}

// HasVisited reports membership in the visited-page set.
func (s ProgressState) HasVisited(pageID string) bool {
	return slices.Contains(s.PagesVisited, pageID)
}

// Clone returns a deep copy.
func (s ProgressState) Clone() ProgressState {
	cp := s
	cp.Badges = append([]BadgeID{}, s.Badges...)
	cp.Milestones = append([]int{}, s.Milestones...)
	cp.PagesVisited = append([]string{}, s.PagesVisited...)
	return cp
}

// Validate checks the invariants a decoded state must satisfy.
func (s ProgressState) Validate() error {
	if s.Points < 0 {
		return fmt.Errorf("points %d < 0", s.Points)
	}
	if s.QuizScore < 0 || s.QuizScore > 100 {
		return fmt.Errorf("quiz score %d out of range", s.QuizScore)
	}
	if s.MultiplierTenths < MultiplierMinTenths || s.MultiplierTenths > MultiplierMaxTenths {
		return fmt.Errorf("multiplier %.1f out of range", s.Multiplier())
	}
	if s.DailyChallenge.VisitedToday < 0 {
		return fmt.Errorf("visitedToday %d < 0", s.DailyChallenge.VisitedToday)
	}
	return nil
}

// ─── Ranking ────────────────────────────────────────────────────────────────

// RankingEntry is one row of a leaderboard.
type RankingEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Rank      int    `json:"rank"`
	IsCurrent bool   `json:"isCurrent"`
}
