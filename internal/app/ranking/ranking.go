// Package ranking builds the leaderboard shown next to the user's progress.
// Providers are deterministic: a configured roster, or a shared Redis
// sorted set fed by engine events.
package ranking

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
	"github.com/attnlab/dopamind/internal/infra/redis"
)

// DefaultLimit is the leaderboard size when the caller passes none.
const DefaultLimit = 5

// CurrentUserID identifies the local user's row.
const CurrentUserID = "current-user"

// Competitor is a fixed roster entry.
type Competitor struct {
	ID     string `toml:"id" json:"id"`
	Name   string `toml:"name" json:"name"`
	Points int    `toml:"points" json:"points"`
}

// DefaultRoster is used when the configuration lists no competitors.
func DefaultRoster() []Competitor {
	return []Competitor{
		{ID: "ana", Name: "Ana", Points: 820},
		{ID: "bruno", Name: "Bruno", Points: 610},
		{ID: "carla", Name: "Carla", Points: 450},
		{ID: "diego", Name: "Diego", Points: 275},
		{ID: "elisa", Name: "Elisa", Points: 140},
		{ID: "felipe", Name: "Felipe", Points: 60},
	}
}

// ─── Static Provider ────────────────────────────────────────────────────────

// StaticProvider ranks the user against a fixed roster.
type StaticProvider struct {
	roster   []Competitor
	userName string
}

// NewStatic returns a provider over roster (DefaultRoster when empty).
func NewStatic(roster []Competitor, userName string) *StaticProvider {
	if len(roster) == 0 {
		roster = DefaultRoster()
	}
	if userName == "" {
		userName = "You"
	}
	return &StaticProvider{roster: slices.Clone(roster), userName: userName}
}

// Ranking implements domain.RankingProvider.
func (p *StaticProvider) Ranking(_ context.Context, currentPoints, limit int) ([]domain.RankingEntry, error) {
	entries := make([]domain.RankingEntry, 0, len(p.roster)+1)
	for _, c := range p.roster {
		entries = append(entries, domain.RankingEntry{ID: c.ID, Name: c.Name, Points: c.Points})
	}
	entries = append(entries, domain.RankingEntry{
		ID: CurrentUserID, Name: p.userName, Points: currentPoints, IsCurrent: true,
	})
	return capRanking(entries, limit), nil
}

// capRanking sorts by points descending, assigns ranks and keeps limit
// rows. A current user who falls outside the cut takes the last row with
// their true rank.
func capRanking(entries []domain.RankingEntry, limit int) []domain.RankingEntry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	slices.SortStableFunc(entries, func(a, b domain.RankingEntry) int {
		return cmp.Compare(b.Points, a.Points)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if len(entries) <= limit {
		return entries
	}

	out := slices.Clone(entries[:limit])
	if !slices.ContainsFunc(out, func(e domain.RankingEntry) bool { return e.IsCurrent }) {
		if i := slices.IndexFunc(entries, func(e domain.RankingEntry) bool { return e.IsCurrent }); i >= 0 {
			out[limit-1] = entries[i]
		}
	}
	return out
}

// ─── Redis Provider ─────────────────────────────────────────────────────────

// Board is the sorted-set view the Redis provider needs.
type Board interface {
	Upsert(ctx context.Context, member, name string, points int) error
	Top(ctx context.Context, n int) ([]redis.LeaderboardRow, error)
	Rank(ctx context.Context, member string) (rank, points int, ok bool, err error)
	Remove(ctx context.Context, member string) error
}

// RedisProvider ranks the user among everyone sharing a Redis leaderboard.
type RedisProvider struct {
	board    Board
	member   string
	userName string
}

// NewRedis returns a provider writing the user's score as member.
func NewRedis(board Board, member, userName string) *RedisProvider {
	if userName == "" {
		userName = member
	}
	return &RedisProvider{board: board, member: member, userName: userName}
}

// RecordScore implements domain.ScoreRecorder.
func (p *RedisProvider) RecordScore(ctx context.Context, points int) error {
	return p.board.Upsert(ctx, p.member, p.userName, points)
}

// ForgetScore takes the user off the shared board.
func (p *RedisProvider) ForgetScore(ctx context.Context) error {
	return p.board.Remove(ctx, p.member)
}

// Ranking implements domain.RankingProvider.
func (p *RedisProvider) Ranking(ctx context.Context, currentPoints, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if err := p.RecordScore(ctx, currentPoints); err != nil {
		return nil, fmt.Errorf("record score: %w", err)
	}
	rows, err := p.board.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RankingEntry, len(rows))
	found := false
	for i, r := range rows {
		out[i] = domain.RankingEntry{
			ID: r.Member, Name: r.Name, Points: r.Points, Rank: i + 1,
			IsCurrent: r.Member == p.member,
		}
		found = found || out[i].IsCurrent
	}
	if found || len(out) == 0 {
		return out, nil
	}

	rank, points, ok, err := p.board.Rank(ctx, p.member)
	if err != nil || !ok {
		return out, err
	}
	out[len(out)-1] = domain.RankingEntry{
		ID: p.member, Name: p.userName, Points: points, Rank: rank + 1, IsCurrent: true,
	}
	return out, nil
}

// ─── Score Updater ──────────────────────────────────────────────────────────

// AttachRecorder pushes the running total to rec after every event that
// carries one. Failures are logged by the bus.
func AttachRecorder(bus *eventbus.Bus, rec domain.ScoreRecorder, logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	return bus.SubscribeAll(func(ev domain.Event) error {
		var total int
		switch ev := ev.(type) {
		case domain.PointsEarned:
			total = ev.TotalPoints
		case domain.BadgeUnlocked:
			total = ev.TotalPoints
		case domain.MilestoneReached:
			total = ev.TotalPoints
		default:
			return nil
		}
		if err := rec.RecordScore(context.Background(), total); err != nil {
			logger.Debug("score update failed", "points", total, "error", err)
			return err
		}
		return nil
	})
}
