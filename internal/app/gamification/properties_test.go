package gamification

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attnlab/dopamind/internal/domain"
)

// runRandomSession drives the engine with n random commands (no ResetAll)
// and checks the monotonic invariants after each one.
func runRandomSession(t *testing.T, seed uint64, n int) *harness {
	t.Helper()
	h := newHarness(t)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	e := h.engine

	prev := e.State()
	for i := range n {
		switch rng.IntN(7) {
		case 0, 1:
			e.VisitPage(fmt.Sprintf("page-%d", rng.IntN(12)))
		case 2:
			e.AddPoints(1+rng.IntN(80), []string{
				domain.SourceInteraction, domain.SourceGeneral, domain.SourcePageVisit,
			}[rng.IntN(3)])
		case 3:
			e.CompleteQuiz(rng.IntN(101))
		case 4:
			e.CompleteDailyChallenge()
		case 5:
			h.clock.AddDays(1)
		case 6:
			e.ResetDailyChallenge()
		}

		cur := e.State()
		require.GreaterOrEqual(t, cur.Points, prev.Points, "points decreased at step %d", i)
		require.GreaterOrEqual(t, len(cur.Badges), len(prev.Badges))
		require.GreaterOrEqual(t, len(cur.Milestones), len(prev.Milestones))
		require.GreaterOrEqual(t, len(cur.PagesVisited), len(prev.PagesVisited))
		require.GreaterOrEqual(t, cur.MultiplierTenths, domain.MultiplierMinTenths)
		require.LessOrEqual(t, cur.MultiplierTenths, domain.MultiplierMaxTenths)
		for _, m := range cur.Milestones {
			require.LessOrEqual(t, m, cur.Points, "milestone %d recorded below threshold", m)
		}
		prev = cur
	}
	return h
}

func TestProperty_MonotonicAndBounded(t *testing.T) {
	for seed := range uint64(20) {
		runRandomSession(t, seed, 200)
	}
}

func TestProperty_AtMostOnceUnlock(t *testing.T) {
	for seed := range uint64(20) {
		h := runRandomSession(t, seed, 200)

		badges := map[domain.BadgeID]int{}
		milestones := map[int]int{}
		var order []int
		for _, ev := range h.rec.events {
			switch ev := ev.(type) {
			case domain.BadgeUnlocked:
				badges[ev.Badge.ID]++
			case domain.MilestoneReached:
				milestones[ev.Milestone.Threshold]++
				order = append(order, ev.Milestone.Threshold)
			}
		}
		for id, n := range badges {
			assert.Equal(t, 1, n, "seed %d badge %s", seed, id)
		}
		for th, n := range milestones {
			assert.Equal(t, 1, n, "seed %d milestone %d", seed, th)
		}
		assert.IsIncreasing(t, order, "seed %d milestone order", seed)
		assert.Equal(t, nonNil(order), h.engine.State().Milestones)
	}
}

func TestProperty_RoundTripReachableStates(t *testing.T) {
	for seed := range uint64(10) {
		h := runRandomSession(t, seed, 100)
		want := h.engine.State()

		payload, err := Encode(want)
		require.NoError(t, err)
		got, err := Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, want, got, "seed %d", seed)
	}
}

func TestProperty_MultiplierBounds(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	page := 0
	visit3 := func() {
		for range 3 {
			page++
			e.VisitPage(fmt.Sprintf("p%d", page))
		}
	}

	for range 15 {
		visit3()
		e.CompleteDailyChallenge()
		h.clock.AddDays(1)
		e.AddPoints(1, domain.SourceGeneral)
		visit3()
		e.CompleteDailyChallenge()
	}
	assert.Equal(t, domain.MultiplierMaxTenths, e.State().MultiplierTenths)

	for range 15 {
		e.ResetDailyChallenge()
	}
	assert.Equal(t, domain.MultiplierMinTenths, e.State().MultiplierTenths)
}
