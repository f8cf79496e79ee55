// Package metrics provides Prometheus metrics for dopamind.
// Collectors are fed from the notification bus, plus HTTP and health
// instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
)

// ─── Progress ───────────────────────────────────────────────────────────────

// PointsEarned counts points awarded through AddPoints, by source.
var PointsEarned = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "points_earned_total",
	Help:      "Points awarded, by source type (multiplier applied).",
}, []string{"source"})

// PointsTotal tracks the user's running total.
var PointsTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dopamind",
	Name:      "points_current",
	Help:      "Current point total.",
})

// BadgesUnlocked counts badge unlocks by badge id.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "badges_unlocked_total",
	Help:      "Badge unlocks by badge id.",
}, []string{"badge"})

// MilestonesReached counts milestone crossings.
var MilestonesReached = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "milestones_reached_total",
	Help:      "Milestones reached.",
})

// QuizScore observes submitted quiz scores.
var QuizScore = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dopamind",
	Name:      "quiz_score_percent",
	Help:      "Submitted quiz scores.",
	Buckets:   []float64{25, 50, 75, 90, 100},
})

// DailyChallengesCompleted counts successful daily challenge claims.
var DailyChallengesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "daily_challenges_completed_total",
	Help:      "Daily challenges claimed.",
})

// ─── Bus ────────────────────────────────────────────────────────────────────

// BusEvents counts events seen by the metrics subscriber, by kind.
var BusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "bus_events_total",
	Help:      "Events published on the notification bus.",
}, []string{"kind"})

// BusHandlerFailures mirrors the bus failure counter.
var BusHandlerFailures = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dopamind",
	Name:      "bus_handler_failures",
	Help:      "Subscriber errors and panics since start.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests tracks API request duration by route and status class.
var HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "dopamind",
	Name:      "http_request_duration_seconds",
	Help:      "API request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
}, []string{"route", "code"})

// SSEClients tracks connected event-stream clients.
var SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dopamind",
	Name:      "sse_clients",
	Help:      "Connected event-stream clients.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "dopamind",
	Name:      "health_check_status",
	Help:      "Health check status (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries counts auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dopamind",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts.",
}, []string{"check"})

// ─── Wiring ─────────────────────────────────────────────────────────────────

// Attach feeds the progress collectors from bus events.
func Attach(bus *eventbus.Bus) (func(), error) {
	return bus.SubscribeAll(func(ev domain.Event) error {
		Observe(ev)
		BusHandlerFailures.Set(float64(bus.Stats().Failed))
		return nil
	})
}

// Observe records one event.
func Observe(ev domain.Event) {
	BusEvents.WithLabelValues(string(ev.Kind())).Inc()
	switch ev := ev.(type) {
	case domain.PointsEarned:
		PointsEarned.WithLabelValues(ev.SourceType).Add(float64(ev.Points))
		PointsTotal.Set(float64(ev.TotalPoints))
	case domain.BadgeUnlocked:
		BadgesUnlocked.WithLabelValues(string(ev.Badge.ID)).Inc()
		PointsTotal.Set(float64(ev.TotalPoints))
	case domain.MilestoneReached:
		MilestonesReached.Inc()
		PointsTotal.Set(float64(ev.TotalPoints))
	case domain.QuizCompleted:
		QuizScore.Observe(float64(ev.ScorePercent))
	case domain.DailyChallengeCompleted:
		DailyChallengesCompleted.Inc()
	}
}

// ObserveRequest records one API request.
func ObserveRequest(route, code string, d time.Duration) {
	HTTPRequests.WithLabelValues(route, code).Observe(d.Seconds())
}
