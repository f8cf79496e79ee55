package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// Infrastructure implements these; the engine and its consumers depend on them.

// KVStore is the string→string persistent store holding serialized state.
// Get returns "" with a nil error when the key is absent.
type KVStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Publisher is the engine's view of the notification bus.
type Publisher interface {
	Publish(event Event) error
}

// RankingProvider produces a leaderboard including the current user.
// Entries are sorted by points descending and capped at limit.
type RankingProvider interface {
	Ranking(ctx context.Context, currentPoints, limit int) ([]RankingEntry, error)
}

// ScoreRecorder is implemented by ranking providers that keep the user's
// score in shared storage.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, points int) error
}
