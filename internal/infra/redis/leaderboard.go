package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//   - Sorted Set "{prefix}leaderboard:{board}" member -> points
//   - Hash       "{prefix}leaderboard:{board}:names" member -> display name
const keyLeaderboard = "leaderboard:"

// LeaderboardRow is a raw sorted-set row.
type LeaderboardRow struct {
	Member string
	Name   string
	Points int
}

// Leaderboard is a named sorted set of player scores.
type Leaderboard struct {
	c     *Client
	board string
}

// NewLeaderboard returns the leaderboard called board.
func NewLeaderboard(c *Client, board string) *Leaderboard {
	return &Leaderboard{c: c, board: board}
}

func (l *Leaderboard) scoresKey() string { return l.c.key(keyLeaderboard + l.board) }
func (l *Leaderboard) namesKey() string  { return l.c.key(keyLeaderboard + l.board + ":names") }

// Upsert sets member's score and display name.
func (l *Leaderboard) Upsert(ctx context.Context, member, name string, points int) error {
	ctx, cancel := l.c.opContext(ctx)
	defer cancel()

	pipe := l.c.rdb.TxPipeline()
	pipe.ZAdd(ctx, l.scoresKey(), redis.Z{Score: float64(points), Member: member})
	pipe.HSet(ctx, l.namesKey(), member, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard upsert: %w", err)
	}
	return nil
}

// Top returns the n highest scores, best first.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]LeaderboardRow, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := l.c.opContext(ctx)
	defer cancel()

	zs, err := l.c.rdb.ZRevRangeWithScores(ctx, l.scoresKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	members := make([]string, len(zs))
	for i, z := range zs {
		members[i] = fmt.Sprint(z.Member)
	}
	names, err := l.c.rdb.HMGet(ctx, l.namesKey(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard names: %w", err)
	}

	rows := make([]LeaderboardRow, len(zs))
	for i, z := range zs {
		rows[i] = LeaderboardRow{Member: members[i], Points: int(z.Score)}
		if s, ok := names[i].(string); ok {
			rows[i].Name = s
		} else {
			rows[i].Name = members[i]
		}
	}
	return rows, nil
}

// Rank returns member's 0-based position, best first, and its score.
// ok is false when member is not on the board.
func (l *Leaderboard) Rank(ctx context.Context, member string) (rank, points int, ok bool, err error) {
	ctx, cancel := l.c.opContext(ctx)
	defer cancel()

	r, err := l.c.rdb.ZRevRank(ctx, l.scoresKey(), member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("leaderboard rank: %w", err)
	}
	score, err := l.c.rdb.ZScore(ctx, l.scoresKey(), member).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("leaderboard score: %w", err)
	}
	return int(r), int(score), true, nil
}

// Remove deletes member from the board.
func (l *Leaderboard) Remove(ctx context.Context, member string) error {
	ctx, cancel := l.c.opContext(ctx)
	defer cancel()

	pipe := l.c.rdb.TxPipeline()
	pipe.ZRem(ctx, l.scoresKey(), member)
	pipe.HDel(ctx, l.namesKey(), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard remove: %w", err)
	}
	return nil
}
