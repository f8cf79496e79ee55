package gamification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attnlab/dopamind/internal/domain"
)

func TestEncode_Layout(t *testing.T) {
	s := domain.NewProgressState("2026-10-18", 3)
	s.Points = 42
	s.MultiplierTenths = 13

	payload, err := Encode(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	assert.Equal(t, float64(SchemaVersion), m["version"])
	assert.Equal(t, 1.3, m["multiplier"])
	assert.Equal(t, []any{}, m["badges"])
	dc := m["dailyChallenge"].(map[string]any)
	assert.Equal(t, "2026-10-18", dc["lastResetDate"])
	assert.Equal(t, float64(3), dc["required"])
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "{"},
		{"future version", `{"version":9}`},
		{"negative points", `{"version":2,"points":-1,"multiplier":1}`},
		{"score out of range", `{"version":2,"quizScore":140,"multiplier":1}`},
		{"multiplier out of range", `{"version":2,"multiplier":3.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			assert.ErrorIs(t, err, domain.ErrCorruptRecord)
		})
	}
}

func TestDecode_DropsUnknownIDs(t *testing.T) {
	s, err := Decode(`{"version":2,"badges":["visitor","ghost","visitor"],"milestones":[250,100,42],"pagesVisited":["a","a",""],"multiplier":1}`)
	require.NoError(t, err)
	assert.Equal(t, []domain.BadgeID{domain.BadgeVisitor}, s.Badges)
	assert.Equal(t, []int{100, 250}, s.Milestones)
	assert.Equal(t, []string{"a"}, s.PagesVisited)
	assert.Equal(t, domain.DefaultRequiredPages, s.DailyChallenge.Required)
}

func TestDecode_VersionZero(t *testing.T) {
	payload := `{
		"points": 180,
		"badges": ["visitor", "explorer", "specialist"],
		"milestones": [100],
		"pagesVisited": ["home", "mechanisms", "tools"],
		"dailyChallenge": {"pagesVisitedToday": 2, "requiredPages": 3, "completed": false, "lastReset": "Sun Oct 18 2026"},
		"multiplier": 1.2,
		"sessionStartTime": 1792300000000,
		"totalSessions": 4
	}`
	s, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, 180, s.Points)
	assert.Equal(t, 2, s.DailyChallenge.VisitedToday)
	assert.Equal(t, 3, s.DailyChallenge.Required)
	assert.Equal(t, "2026-10-18", s.DailyChallenge.LastResetDate)
	assert.Equal(t, 12, s.MultiplierTenths)
}

func TestDecode_VersionZeroWithoutMultiplier(t *testing.T) {
	s, err := Decode(`{"points":10,"dailyChallenge":{"lastReset":"garbage"}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.MultiplierMinTenths, s.MultiplierTenths)
	assert.Empty(t, s.DailyChallenge.LastResetDate)
}

// ─── Legacy ─────────────────────────────────────────────────────────────────

func TestMigrateLegacy_BadgeTable(t *testing.T) {
	tests := []struct {
		legacy string
		want   domain.BadgeID
	}{
		{"home-visit", domain.BadgeVisitor},
		{"dopamine-explorer", domain.BadgeExplorer},
		{"mechanisms-master", domain.BadgeMaster},
		{"tools-expert", domain.BadgeSpecialist},
		{"gamification-guru", domain.BadgeGuru},
		{"awareness-advocate", domain.BadgeDefender},
		{"quiz-master", domain.BadgeQuizMaster},
	}
	for _, tt := range tests {
		id, ok := CanonicalBadgeID(tt.legacy)
		assert.True(t, ok, tt.legacy)
		assert.Equal(t, tt.want, id)

		back, ok := LegacyBadgeKey(tt.want)
		assert.True(t, ok)
		assert.Equal(t, tt.legacy, back)
	}
	_, ok := CanonicalBadgeID("unknown")
	assert.False(t, ok)
}

func TestMigrateLegacy_Deterministic(t *testing.T) {
	lp := LegacyProgress{
		Points:       560,
		VisitedPages: map[string]bool{"home": true, "tools": true, "skipped": false},
		Badges:       []string{"tools-expert", "bogus", "guru", "tools-expert"},
		QuizScore:    80,
	}
	a, err := MigrateLegacy(lp, "2026-10-18", 3)
	require.NoError(t, err)
	b, err := MigrateLegacy(lp, "2026-10-18", 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"home", "tools"}, a.PagesVisited)
	assert.Equal(t, []domain.BadgeID{domain.BadgeSpecialist, domain.BadgeGuru}, a.Badges)
	assert.Equal(t, []int{100, 250, 500}, a.Milestones)
	assert.Equal(t, domain.MultiplierMinTenths, a.MultiplierTenths)
}

func TestMigrateLegacy_ClampsValues(t *testing.T) {
	s, err := MigrateLegacy(LegacyProgress{Points: -20, QuizScore: 300}, "2026-10-18", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Points)
	assert.Equal(t, 100, s.QuizScore)
	assert.Equal(t, domain.DefaultRequiredPages, s.DailyChallenge.Required)
}

func TestEncodeLegacy_RoundTrip(t *testing.T) {
	s := domain.NewProgressState("2026-10-18", 3)
	s.Points = 300
	s.PagesVisited = []string{"home"}
	s.Badges = []domain.BadgeID{domain.BadgeVisitor, domain.BadgeGuru}
	s.Milestones = []int{100, 250}

	payload, err := EncodeLegacy(s)
	require.NoError(t, err)
	lp, err := DecodeLegacy(payload)
	require.NoError(t, err)

	back, err := MigrateLegacy(lp, "2026-10-18", 3)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}
