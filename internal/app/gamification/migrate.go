package gamification

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/attnlab/dopamind/internal/domain"
)

// browserDateLayout is the Date.toDateString format of version 0 records.
const browserDateLayout = "Mon Jan 02 2006"

// migrateV0 upgrades a browser-era record. Unparseable reset dates are
// left empty so the next daily-reset check rolls the challenge over.
func migrateV0(raw rawRecord) domain.ProgressState {
	s := fromRecord(raw)

	dc := raw.DailyChallenge
	if dc.VisitedToday == 0 {
		s.DailyChallenge.VisitedToday = dc.PagesVisitedToday
	}
	if dc.Required == 0 && dc.RequiredPages > 0 {
		s.DailyChallenge.Required = dc.RequiredPages
	}
	if dc.LastResetDate == "" {
		s.DailyChallenge.LastResetDate = ""
		if t, err := time.Parse(browserDateLayout, dc.LastReset); err == nil {
			s.DailyChallenge.LastResetDate = t.Format(domain.DateLayout)
		}
	}
	return s
}

// ─── Legacy userProgress ────────────────────────────────────────────────────

// LegacyProgress is the userProgress record of the first site version.
type LegacyProgress struct {
	Points        int             `json:"points"`
	VisitedPages  map[string]bool `json:"visitedPages"`
	Badges        []string        `json:"badges"`
	QuizCompleted bool            `json:"quizCompleted"`
	QuizScore     int             `json:"quizScore"`
}

// legacyBadgeKeys maps legacy human-readable keys to canonical ids.
var legacyBadgeKeys = map[string]domain.BadgeID{
	"home-visit":         domain.BadgeVisitor,
	"dopamine-explorer":  domain.BadgeExplorer,
	"mechanisms-master":  domain.BadgeMaster,
	"tools-expert":       domain.BadgeSpecialist,
	"gamification-guru":  domain.BadgeGuru,
	"awareness-advocate": domain.BadgeDefender,
	"quiz-master":        domain.BadgeQuizMaster,
}

// CanonicalBadgeID resolves a legacy badge key.
func CanonicalBadgeID(legacyKey string) (domain.BadgeID, bool) {
	id, ok := legacyBadgeKeys[legacyKey]
	return id, ok
}

// LegacyBadgeKey is the inverse of CanonicalBadgeID.
func LegacyBadgeKey(id domain.BadgeID) (string, bool) {
	for k, v := range legacyBadgeKeys {
		if v == id {
			return k, true
		}
	}
	return "", false
}

// DecodeLegacy parses a userProgress payload.
func DecodeLegacy(payload string) (LegacyProgress, error) {
	var lp LegacyProgress
	if err := json.Unmarshal([]byte(payload), &lp); err != nil {
		return LegacyProgress{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	return lp, nil
}

// MigrateLegacy converts a userProgress record into a canonical state
// dated today. Thresholds already below the legacy total are recorded
// as reached without paying their bonus again. Unknown badge keys are
// dropped. The function is pure: the same input always yields the same
// state.
func MigrateLegacy(lp LegacyProgress, today string, required int) (domain.ProgressState, error) {
	s := domain.NewProgressState(today, required)
	s.Points = max(lp.Points, 0)
	s.QuizCompleted = lp.QuizCompleted
	s.QuizScore = min(max(lp.QuizScore, 0), 100)

	pages := make([]string, 0, len(lp.VisitedPages))
	for page, seen := range lp.VisitedPages {
		if seen && page != "" {
			pages = append(pages, page)
		}
	}
	slices.Sort(pages)
	s.PagesVisited = pages

	for _, key := range lp.Badges {
		id, ok := legacyBadgeKeys[key]
		if !ok {
			// Records written after the rename may already hold canonical ids.
			id = domain.BadgeID(key)
			if !IsKnownBadge(id) {
				continue
			}
		}
		if !s.HasBadge(id) {
			s.Badges = append(s.Badges, id)
		}
	}

	for _, m := range AllMilestones() {
		if m.Threshold <= s.Points {
			s.Milestones = append(s.Milestones, m.Threshold)
		}
	}

	if err := s.Validate(); err != nil {
		return domain.ProgressState{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	return s, nil
}

// EncodeLegacy renders s in the userProgress shape for readers that have
// not moved to the canonical key.
func EncodeLegacy(s domain.ProgressState) (string, error) {
	lp := LegacyProgress{
		Points:        s.Points,
		VisitedPages:  make(map[string]bool, len(s.PagesVisited)),
		Badges:        make([]string, 0, len(s.Badges)),
		QuizCompleted: s.QuizCompleted,
		QuizScore:     s.QuizScore,
	}
	for _, p := range s.PagesVisited {
		lp.VisitedPages[p] = true
	}
	for _, id := range s.Badges {
		if key, ok := LegacyBadgeKey(id); ok {
			lp.Badges = append(lp.Badges, key)
		}
	}
	b, err := json.Marshal(lp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
