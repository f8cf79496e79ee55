package ranking

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
	"github.com/attnlab/dopamind/internal/infra/redis"
)

// ─── Static ─────────────────────────────────────────────────────────────────

func TestStatic_SortedAndCapped(t *testing.T) {
	p := NewStatic(nil, "Me")
	got, err := p.Ranking(context.Background(), 500, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Points < got[i].Points {
			t.Errorf("not sorted at %d: %d < %d", i, got[i-1].Points, got[i].Points)
		}
		if got[i].Rank != i+1 {
			t.Errorf("Rank[%d] = %d", i, got[i].Rank)
		}
	}
	if got[2].ID != CurrentUserID || !got[2].IsCurrent || got[2].Name != "Me" {
		t.Errorf("row 3 = %+v, want current user", got[2])
	}
}

func TestStatic_UserOutsideCut(t *testing.T) {
	p := NewStatic(nil, "")
	got, _ := p.Ranking(context.Background(), 10, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	last := got[2]
	if !last.IsCurrent || last.Rank != 7 || last.Name != "You" {
		t.Errorf("last = %+v, want current user ranked 7", last)
	}
}

func TestStatic_RosterNotMutated(t *testing.T) {
	roster := []Competitor{{ID: "z", Name: "Zed", Points: 1}, {ID: "y", Name: "Yan", Points: 9}}
	p := NewStatic(roster, "Me")
	p.Ranking(context.Background(), 5, 10)
	if roster[0].ID != "z" {
		t.Error("caller roster reordered")
	}
}

// ─── Redis (fake board) ─────────────────────────────────────────────────────

type fakeBoard struct {
	mu     sync.Mutex
	scores map[string]int
	names  map[string]string
	fail   error
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{scores: map[string]int{}, names: map[string]string{}}
}

func (b *fakeBoard) Upsert(_ context.Context, member, name string, points int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.scores[member] = points
	b.names[member] = name
	return nil
}

func (b *fakeBoard) sorted() []redis.LeaderboardRow {
	rows := make([]redis.LeaderboardRow, 0, len(b.scores))
	for m, p := range b.scores {
		rows = append(rows, redis.LeaderboardRow{Member: m, Name: b.names[m], Points: p})
	}
	slices.SortFunc(rows, func(a, b redis.LeaderboardRow) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Member, b.Member)
	})
	return rows
}

func (b *fakeBoard) Top(_ context.Context, n int) ([]redis.LeaderboardRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := b.sorted()
	return rows[:min(n, len(rows))], nil
}

func (b *fakeBoard) Rank(_ context.Context, member string) (int, int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.sorted() {
		if r.Member == member {
			return i, r.Points, true, nil
		}
	}
	return 0, 0, false, nil
}

func (b *fakeBoard) Remove(_ context.Context, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	delete(b.scores, member)
	delete(b.names, member)
	return nil
}

func TestRedis_ForgetScore(t *testing.T) {
	board := newFakeBoard()
	board.Upsert(context.Background(), "a", "a", 100)
	p := NewRedis(board, "me", "Me")
	p.RecordScore(context.Background(), 300)

	if err := p.ForgetScore(context.Background()); err != nil {
		t.Fatalf("ForgetScore() error: %v", err)
	}
	if _, _, ok, _ := board.Rank(context.Background(), "me"); ok {
		t.Error("user still on the board after ForgetScore")
	}
	if _, _, ok, _ := board.Rank(context.Background(), "a"); !ok {
		t.Error("other members should stay on the board")
	}
}

func TestRedis_RecordsAndRanks(t *testing.T) {
	board := newFakeBoard()
	for i, name := range []string{"a", "b", "c", "d"} {
		board.Upsert(context.Background(), name, name, (i+1)*100)
	}
	p := NewRedis(board, "me", "Me")

	got, err := p.Ranking(context.Background(), 250, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != "d" || got[2].ID != "me" || !got[2].IsCurrent {
		t.Errorf("ranking = %+v", got)
	}
}

func TestRedis_UserOutsideTop(t *testing.T) {
	board := newFakeBoard()
	for i, name := range []string{"a", "b", "c", "d"} {
		board.Upsert(context.Background(), name, name, (i+1)*100)
	}
	p := NewRedis(board, "me", "Me")

	got, _ := p.Ranking(context.Background(), 5, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[1].IsCurrent || got[1].Rank != 5 || got[1].Points != 5 {
		t.Errorf("last = %+v, want me at rank 5", got[1])
	}
}

func TestRedis_BoardFailure(t *testing.T) {
	board := newFakeBoard()
	board.fail = errors.New("down")
	p := NewRedis(board, "me", "")
	if _, err := p.Ranking(context.Background(), 5, 2); err == nil {
		t.Error("Ranking() error = nil, want failure")
	}
}

// ─── Recorder ───────────────────────────────────────────────────────────────

type scoreLog struct {
	mu     sync.Mutex
	scores []int
}

func (s *scoreLog) RecordScore(_ context.Context, points int) error {
	s.mu.Lock()
	s.scores = append(s.scores, points)
	s.mu.Unlock()
	return nil
}

func TestAttachRecorder(t *testing.T) {
	bus := eventbus.New(nil)
	log := &scoreLog{}
	if _, err := AttachRecorder(bus, log, nil); err != nil {
		t.Fatal(err)
	}

	bus.Publish(domain.BadgeUnlocked{TotalPoints: 75})
	bus.Publish(domain.PointsEarned{TotalPoints: 75})
	bus.Publish(domain.QuizCompleted{ScorePercent: 50})
	bus.Publish(domain.MilestoneReached{TotalPoints: 160})

	want := []int{75, 75, 160}
	if !slices.Equal(log.scores, want) {
		t.Errorf("scores = %v, want %v", log.scores, want)
	}
}
