package kraken

import (
	"context"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper pauses the caller for d or until ctx ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// MatchSource lists and downloads matches from the remote API.
type MatchSource interface {
	MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)
	Match(ctx context.Context, matchID string) ([]byte, error)
}

// RankSource reports a player's solo-queue tier. ok is false when the player
// has no ranked entry.
type RankSource interface {
	RankedTier(ctx context.Context, puuid string) (tier string, ok bool, err error)
}

// PutResult describes the outcome of a MatchStore write.
type PutResult struct {
	Path    string
	Digest  string
	Created bool
}

// MatchStore persists raw match records keyed by match id.
type MatchStore interface {
	Exists(matchID string) (bool, error)
	Put(ctx context.Context, matchID string, raw []byte) (PutResult, error)
}

// MatchRecord is the metadata recorded for each newly stored match.
type MatchRecord struct {
	MatchID      string
	QueueID      int
	GameCreation time.Time
	Digest       string
	Path         string
	RunID        string
	StoredAt     time.Time
}

// Catalog indexes stored matches outside the file corpus.
type Catalog interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
}
