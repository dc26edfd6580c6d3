package extract

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/matchstore"
	"github.com/JakeFAU/kraken/internal/riot"
)

// Corpus lists stored matches.
type Corpus interface {
	List() iter.Seq2[matchstore.Entry, error]
}

// Stats counts what a pass over the corpus saw.
type Stats struct {
	Scanned     int
	ParseErrors int
	Rows        int
}

// Extractor projects a corpus into rows. Every pass reads the corpus afresh,
// so repeated runs over an unchanged corpus return identical rows.
type Extractor struct {
	corpus Corpus
	read   func(matchstore.Entry) ([]byte, error)
	logger *zap.Logger
}

// New returns an Extractor over corpus.
func New(corpus Corpus, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{corpus: corpus, read: matchstore.ReadFile, logger: logger.Named("extract")}
}

// Each decodes every stored match in listing order and calls fn. Malformed
// matches are logged, counted and skipped; storage failures abort.
func (e *Extractor) Each(ctx context.Context, fn func(*riot.Match)) (Stats, error) {
	var stats Stats
	for entry, err := range e.corpus.List() {
		if err != nil {
			return stats, err
		}
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("extract: %w", err)
		}
		stats.Scanned++
		raw, err := e.read(entry)
		if err != nil {
			return stats, err
		}
		m, err := riot.DecodeMatch(raw, entry.MatchID)
		if err != nil {
			stats.ParseErrors++
			e.logger.Warn("skipping malformed match", zap.String("path", entry.Path), zap.Error(err))
			continue
		}
		fn(m)
	}
	return stats, nil
}

// Basic returns puuid's rows ordered by game creation then match id.
func (e *Extractor) Basic(ctx context.Context, puuid string) ([]BasicRow, Stats, error) {
	if puuid == "" {
		return nil, Stats{}, kraken.Configf("extract.puuid", "a player identifier is required")
	}
	var rows []BasicRow
	stats, err := e.Each(ctx, func(m *riot.Match) {
		if row, ok := BasicRowFor(m, puuid); ok {
			rows = append(rows, row)
		}
	})
	if err != nil {
		return nil, stats, err
	}
	slices.SortStableFunc(rows, func(a, b BasicRow) int {
		return cmp.Or(cmp.Compare(a.GameCreation, b.GameCreation), cmp.Compare(a.MatchID, b.MatchID))
	})
	stats.Rows = len(rows)
	return rows, stats, nil
}

// Players returns participant rows ordered by match id, team id and then
// payload order.
func (e *Extractor) Players(ctx context.Context) ([]PlayerRow, Stats, error) {
	var rows []PlayerRow
	stats, err := e.Each(ctx, func(m *riot.Match) {
		rows = append(rows, PlayerRows(m)...)
	})
	if err != nil {
		return nil, stats, err
	}
	slices.SortStableFunc(rows, func(a, b PlayerRow) int {
		return cmp.Or(cmp.Compare(a.MatchID, b.MatchID), cmp.Compare(a.TeamID, b.TeamID))
	})
	stats.Rows = len(rows)
	return rows, stats, nil
}

// Teams returns side rows ordered by match id and team id.
func (e *Extractor) Teams(ctx context.Context) ([]TeamRow, Stats, error) {
	var rows []TeamRow
	stats, err := e.Each(ctx, func(m *riot.Match) {
		rows = append(rows, TeamRows(m)...)
	})
	if err != nil {
		return nil, stats, err
	}
	slices.SortStableFunc(rows, func(a, b TeamRow) int {
		return cmp.Or(cmp.Compare(a.MatchID, b.MatchID), cmp.Compare(a.TeamID, b.TeamID))
	})
	stats.Rows = len(rows)
	return rows, stats, nil
}
