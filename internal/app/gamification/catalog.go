package gamification

import (
	"fmt"

	"github.com/attnlab/dopamind/internal/domain"
)

// badgeStats is the snapshot a badge predicate is checked against.
type badgeStats struct {
	Points int
	Pages  int
}

// badgeRule pairs a definition with its automatic unlock predicate.
// A nil predicate means the badge is only granted by an explicit command.
type badgeRule struct {
	Def       domain.BadgeDefinition
	Predicate func(badgeStats) bool
}

// ─── Badge Catalog ──────────────────────────────────────────────────────────

func allBadgeRules() []badgeRule {
	return []badgeRule{
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeVisitor, DisplayName: "Visitor", Icon: "👋",
				RequirementDescription: "Visit your first page",
			},
			Predicate: func(s badgeStats) bool { return s.Pages >= 1 },
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeExplorer, DisplayName: "Explorer", Icon: "🔍",
				RequirementDescription: "Visit 3 pages",
			},
			Predicate: func(s badgeStats) bool { return s.Pages >= 3 },
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeMaster, DisplayName: "Master", Icon: "🎓",
				RequirementDescription: "Complete the quiz",
			},
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeSpecialist, DisplayName: "Specialist", Icon: "🔬",
				RequirementDescription: "Earn 150 points",
			},
			Predicate: func(s badgeStats) bool { return s.Points >= 150 },
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeGuru, DisplayName: "Guru", Icon: "🧠",
				RequirementDescription: "Earn 300 points",
			},
			Predicate: func(s badgeStats) bool { return s.Points >= 300 },
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeDefender, DisplayName: "Defender", Icon: "🛡️",
				RequirementDescription: "Earn 500 points",
			},
			Predicate: func(s badgeStats) bool { return s.Points >= 500 },
		},
		{
			Def: domain.BadgeDefinition{
				ID: domain.BadgeQuizMaster, DisplayName: "Quiz Master", Icon: "🏆",
				RequirementDescription: "Score 100% on the quiz",
			},
		},
	}
}

// ─── Milestone Catalog ──────────────────────────────────────────────────────

// AllMilestones returns the milestone catalog in ascending threshold order.
func AllMilestones() []domain.MilestoneDefinition {
	bonuses := []struct{ threshold, bonus int }{
		{100, 50},
		{250, 75},
		{500, 100},
		{750, 150},
		{1000, 200},
	}
	out := make([]domain.MilestoneDefinition, len(bonuses))
	for i, b := range bonuses {
		out[i] = domain.MilestoneDefinition{
			Threshold:   b.threshold,
			Message:     fmt.Sprintf("You reached %d points!", b.threshold),
			BonusPoints: b.bonus,
		}
	}
	return out
}

// IsKnownBadge reports whether id is in the catalog.
func IsKnownBadge(id domain.BadgeID) bool {
	for _, r := range allBadgeRules() {
		if r.Def.ID == id {
			return true
		}
	}
	return false
}

// IsKnownMilestone reports whether threshold is in the catalog.
func IsKnownMilestone(threshold int) bool {
	for _, m := range AllMilestones() {
		if m.Threshold == threshold {
			return true
		}
	}
	return false
}
