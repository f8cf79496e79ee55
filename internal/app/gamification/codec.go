package gamification

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/attnlab/dopamind/internal/domain"
)

// Storage keys.
const (
	StateKey  = "gamification-state"
	LegacyKey = "userProgress"
)

// SchemaVersion is written into every canonical record.
// Version 0 (field absent) is the browser-era layout; version 1 is the
// legacy userProgress shape, which lives under LegacyKey.
const SchemaVersion = 2

// stateRecord is the canonical on-disk layout.
type stateRecord struct {
	Version        int                   `json:"version"`
	Points         int                   `json:"points"`
	Badges         []domain.BadgeID      `json:"badges"`
	Milestones     []int                 `json:"milestones"`
	PagesVisited   []string              `json:"pagesVisited"`
	QuizCompleted  bool                  `json:"quizCompleted"`
	QuizScore      int                   `json:"quizScore"`
	DailyChallenge domain.DailyChallenge `json:"dailyChallenge"`
	Multiplier     float64               `json:"multiplier"`
}

// rawRecord accepts every known version of the canonical key.
type rawRecord struct {
	Version        int          `json:"version"`
	Points         int          `json:"points"`
	Badges         []string     `json:"badges"`
	Milestones     []int        `json:"milestones"`
	PagesVisited   []string     `json:"pagesVisited"`
	QuizCompleted  bool         `json:"quizCompleted"`
	QuizScore      int          `json:"quizScore"`
	DailyChallenge rawChallenge `json:"dailyChallenge"`
	Multiplier     *float64     `json:"multiplier"`
}

type rawChallenge struct {
	VisitedToday  int    `json:"visitedToday"`
	Required      int    `json:"required"`
	Completed     bool   `json:"completed"`
	LastResetDate string `json:"lastResetDate"`

	// version 0 names
	PagesVisitedToday int    `json:"pagesVisitedToday"`
	RequiredPages     int    `json:"requiredPages"`
	LastReset         string `json:"lastReset"`
}

// Encode serializes s as a canonical record.
func Encode(s domain.ProgressState) (string, error) {
	rec := stateRecord{
		Version:        SchemaVersion,
		Points:         s.Points,
		Badges:         nonNil(s.Badges),
		Milestones:     nonNil(s.Milestones),
		PagesVisited:   nonNil(s.PagesVisited),
		QuizCompleted:  s.QuizCompleted,
		QuizScore:      s.QuizScore,
		DailyChallenge: s.DailyChallenge,
		Multiplier:     float64(s.MultiplierTenths) / 10,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a canonical record of any supported version.
// Failures wrap domain.ErrCorruptRecord.
func Decode(payload string) (domain.ProgressState, error) {
	var raw rawRecord
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return domain.ProgressState{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}

	var s domain.ProgressState
	switch raw.Version {
	case 0:
		s = migrateV0(raw)
	case SchemaVersion:
		s = fromRecord(raw)
	default:
		return domain.ProgressState{}, fmt.Errorf("%w: unsupported version %d", domain.ErrCorruptRecord, raw.Version)
	}

	if err := s.Validate(); err != nil {
		return domain.ProgressState{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	return s, nil
}

func fromRecord(raw rawRecord) domain.ProgressState {
	s := domain.ProgressState{
		Points:        raw.Points,
		Badges:        canonicalBadges(raw.Badges),
		Milestones:    canonicalMilestones(raw.Milestones),
		PagesVisited:  uniqueStrings(raw.PagesVisited),
		QuizCompleted: raw.QuizCompleted,
		QuizScore:     raw.QuizScore,
		DailyChallenge: domain.DailyChallenge{
			VisitedToday:  raw.DailyChallenge.VisitedToday,
			Required:      raw.DailyChallenge.Required,
			Completed:     raw.DailyChallenge.Completed,
			LastResetDate: raw.DailyChallenge.LastResetDate,
		},
		MultiplierTenths: domain.MultiplierMinTenths,
	}
	if s.DailyChallenge.Required <= 0 {
		s.DailyChallenge.Required = domain.DefaultRequiredPages
	}
	if raw.Multiplier != nil {
		s.MultiplierTenths = int(math.Round(*raw.Multiplier * 10))
	}
	return s
}

// ─── Set Helpers ────────────────────────────────────────────────────────────

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func uniqueStrings(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x != "" && !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// canonicalBadges drops unknown ids and duplicates.
func canonicalBadges(ids []string) []domain.BadgeID {
	out := make([]domain.BadgeID, 0, len(ids))
	for _, id := range ids {
		b := domain.BadgeID(id)
		if IsKnownBadge(b) && !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	return out
}

// canonicalMilestones drops unknown thresholds and duplicates, keeping
// ascending order.
func canonicalMilestones(ts []int) []int {
	out := make([]int, 0, len(ts))
	for _, t := range ts {
		if IsKnownMilestone(t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
