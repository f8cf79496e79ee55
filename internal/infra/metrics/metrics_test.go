package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestObserve_PointsEarned(t *testing.T) {
	before := testutil.ToFloat64(PointsEarned.WithLabelValues(domain.SourcePageVisit))
	Observe(domain.PointsEarned{Points: 25, SourceType: domain.SourcePageVisit, TotalPoints: 75})

	got := testutil.ToFloat64(PointsEarned.WithLabelValues(domain.SourcePageVisit))
	if got-before != 25 {
		t.Errorf("points_earned_total delta = %v, want 25", got-before)
	}
	if v := testutil.ToFloat64(PointsTotal); v != 75 {
		t.Errorf("points_current = %v, want 75", v)
	}
}

func TestObserve_Unlocks(t *testing.T) {
	badges := testutil.ToFloat64(BadgesUnlocked.WithLabelValues("guru"))
	milestones := testutil.ToFloat64(MilestonesReached)
	challenges := testutil.ToFloat64(DailyChallengesCompleted)

	Observe(domain.BadgeUnlocked{Badge: domain.BadgeDefinition{ID: domain.BadgeGuru}, TotalPoints: 350})
	Observe(domain.MilestoneReached{Milestone: domain.MilestoneDefinition{Threshold: 250}, TotalPoints: 425})
	Observe(domain.DailyChallengeCompleted{PointsAwarded: 100})
	Observe(domain.QuizCompleted{ScorePercent: 90})

	if d := testutil.ToFloat64(BadgesUnlocked.WithLabelValues("guru")) - badges; d != 1 {
		t.Errorf("badges delta = %v", d)
	}
	if d := testutil.ToFloat64(MilestonesReached) - milestones; d != 1 {
		t.Errorf("milestones delta = %v", d)
	}
	if d := testutil.ToFloat64(DailyChallengesCompleted) - challenges; d != 1 {
		t.Errorf("challenges delta = %v", d)
	}
	if v := testutil.ToFloat64(PointsTotal); v != 425 {
		t.Errorf("points_current = %v, want 425", v)
	}
}

func TestAttach_CountsBusEvents(t *testing.T) {
	bus := eventbus.New(nil)
	unsub, err := Attach(bus)
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	before := testutil.ToFloat64(BusEvents.WithLabelValues(string(domain.EventQuizCompleted)))
	bus.Publish(domain.QuizCompleted{ScorePercent: 40, PointsAwarded: 20})
	after := testutil.ToFloat64(BusEvents.WithLabelValues(string(domain.EventQuizCompleted)))
	if after-before != 1 {
		t.Errorf("bus_events_total delta = %v, want 1", after-before)
	}
}

func TestHTTPAndHealthMetrics(t *testing.T) {
	ObserveRequest("/api/gamification/state", "2xx", 3*time.Millisecond)
	SSEClients.Set(2)
	HealthCheckStatus.WithLabelValues("store").Set(1)
	HealthRecoveries.WithLabelValues("store").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"dopamind_http_request_duration_seconds",
		"dopamind_sse_clients",
		"dopamind_health_check_status",
		"dopamind_health_recoveries_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	if _, err := prometheus.DefaultGatherer.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}
