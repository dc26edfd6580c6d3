// Package frontier tracks which player identifiers a harvest run has
// visited, which are still queued, and how many matches each has yielded.
package frontier

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/kraken"
)

// State is the lifecycle position of an identifier.
type State string

// Identifier states.
const (
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StateExhausted  State = "exhausted"
	StateRejected   State = "rejected"
	// StateDrained: every listed match was walked below the per-player cap.
	StateDrained State = "drained"
	// StateInterrupted: processing stopped before the listed matches were
	// walked, because the run stopped or the listing failed.
	StateInterrupted State = "interrupted"
)

// Rejection reasons recorded on rejected entries.
const (
	ReasonMode     = "mode"
	ReasonFocusCap = "focus_cap"
	ReasonRole     = "role"
	ReasonRank     = "rank"
)

const (
	rankCacheSize     = 10_000
	bloomCapacity     = 1_000_000
	bloomFalsePosRate = 0.001
	compactThreshold  = 1024
)

// Participant is one player observed in a match.
type Participant struct {
	PUUID string
	Role  string
}

// Entry is a snapshot of one identifier's bookkeeping.
type Entry struct {
	ID      string
	State   State
	Seed    bool
	Matches int
	Reason  string
}

// Stats summarizes the frontier.
type Stats struct {
	Queued   int
	Visited  int
	Rejected map[string]int
	// Observed is the approximate number of distinct participants seen in
	// processed matches.
	Observed int
}

// ObserveResult reports what ObserveMatch did with a match's participants.
type ObserveResult struct {
	Enqueued     []string
	Rejected     int
	AlreadyKnown int
}

// Frontier is safe for concurrent use.
type Frontier struct {
	mu      sync.Mutex
	policy  Policy
	roles   map[string]struct{}
	ranks   map[string]struct{}
	entries []Entry
	index   map[string]int
	queue   []int
	head    int
	pending int

	rejected map[string]int
	observed *bloom.BloomFilter
	distinct int

	rankSource kraken.RankSource
	rankCache  *lru.Cache[string, rankResult]
	logger     *zap.Logger
}

type rankResult struct {
	tier  string
	known bool
}

// New builds a Frontier. rankSource may be nil when the policy has no rank
// allow-list.
func New(policy Policy, rankSource kraken.RankSource, logger *zap.Logger) (*Frontier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseMode(string(policy.Mode))
	policy.Mode = mode
	if policy.FocusNewPerMatch == 0 {
		policy.FocusNewPerMatch = DefaultFocusNewPerMatch
	}
	if len(policy.AllowRanks) > 0 && rankSource == nil {
		return nil, kraken.Configf("harvest.allow_ranks", "a rank source is required when ranks are filtered")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, rankResult](rankCacheSize)
	if err != nil {
		return nil, err
	}
	return &Frontier{
		policy:     policy,
		roles:      toSet(policy.Roles),
		ranks:      toSet(policy.AllowRanks),
		index:      make(map[string]int),
		rejected:   make(map[string]int),
		observed:   bloom.NewWithEstimates(bloomCapacity, bloomFalsePosRate),
		rankSource: rankSource,
		rankCache:  cache,
		logger:     logger,
	}, nil
}

// Policy returns the normalized policy in effect.
func (f *Frontier) Policy() Policy {
	return f.policy
}

// EnqueueSeed enqueues a seed identifier. Seeds bypass role, rank and mode
// filters. It reports false for blank or already known identifiers.
func (f *Frontier) EnqueueSeed(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.index[id]; ok {
		return false
	}
	f.enqueueLocked(id, true)
	return true
}

// Next dequeues the oldest queued identifier and marks it in progress.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.head < len(f.queue) {
		idx := f.queue[f.head]
		f.head++
		e := &f.entries[idx]
		if e.State != StateQueued {
			continue
		}
		e.State = StateInProgress
		f.pending--
		f.compactLocked()
		return e.ID, true
	}
	return "", false
}

// Len reports how many identifiers are waiting.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Remaining reports how many more matches may be credited to id. It returns
// -1 when there is no per-player cap.
func (f *Frontier) Remaining(id string) int {
	if f.policy.MaxMatchesPerPlayer == 0 {
		return -1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.index[id]
	if !ok {
		return f.policy.MaxMatchesPerPlayer
	}
	return max(0, f.policy.MaxMatchesPerPlayer-f.entries[idx].Matches)
}

// Credit records one stored match against id and returns how many more it
// may take, or -1 when there is no per-player cap. An identifier reaching
// the cap is exhausted.
func (f *Frontier) Credit(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.index[id]
	if !ok {
		return 0
	}
	e := &f.entries[idx]
	e.Matches++
	if f.policy.MaxMatchesPerPlayer == 0 {
		return -1
	}
	if e.Matches >= f.policy.MaxMatchesPerPlayer {
		e.State = StateExhausted
	}
	return max(0, f.policy.MaxMatchesPerPlayer-e.Matches)
}

// Finish records that the harvester is done with id. An identifier that
// reached its cap stays exhausted. Otherwise walked selects drained over
// interrupted.
func (f *Frontier) Finish(id string, walked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.index[id]
	if !ok {
		return
	}
	e := &f.entries[idx]
	switch {
	case e.State == StateExhausted:
	case walked:
		e.State = StateDrained
	default:
		e.State = StateInterrupted
	}
}

// Entry returns the bookkeeping for id.
func (f *Frontier) Entry(id string) (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.index[id]
	if !ok {
		return Entry{}, false
	}
	return f.entries[idx], true
}

// Visited returns the sorted identifiers that were ever enqueued.
func (f *Frontier) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		if e.State != StateRejected {
			out = append(out, e.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of the frontier counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	rejected := make(map[string]int, len(f.rejected))
	total := 0
	for k, v := range f.rejected {
		rejected[k] = v
		total += v
	}
	return Stats{
		Queued:   f.pending,
		Visited:  len(f.entries) - total,
		Rejected: rejected,
		Observed: f.distinct,
	}
}

// ObserveMatch applies the expansion policy to the participants of a match
// processed on behalf of seed. Each identifier is decided at most once.
func (f *Frontier) ObserveMatch(ctx context.Context, seed string, participants []Participant) ObserveResult {
	var obs ObserveResult
	added := 0
	for _, p := range participants {
		id := strings.TrimSpace(p.PUUID)
		if id == "" {
			continue
		}
		f.mu.Lock()
		if !f.observed.TestAndAddString(id) {
			f.distinct++
		}
		if _, known := f.index[id]; known {
			f.mu.Unlock()
			obs.AlreadyKnown++
			continue
		}
		if reason := f.preRankReasonLocked(p, added); reason != "" {
			f.rejectLocked(id, reason)
			f.mu.Unlock()
			obs.Rejected++
			continue
		}
		f.mu.Unlock()

		reason := ""
		if !f.rankAllowed(ctx, id) {
			reason = ReasonRank
		}

		f.mu.Lock()
		if _, known := f.index[id]; known {
			f.mu.Unlock()
			obs.AlreadyKnown++
			continue
		}
		if reason != "" {
			f.rejectLocked(id, reason)
			obs.Rejected++
		} else {
			f.enqueueLocked(id, false)
			obs.Enqueued = append(obs.Enqueued, id)
			added++
		}
		f.mu.Unlock()
	}
	if len(obs.Enqueued) > 0 {
		f.logger.Debug("frontier expanded",
			zap.String("seed", seed),
			zap.Int("enqueued", len(obs.Enqueued)),
			zap.Int("rejected", obs.Rejected))
	}
	return obs
}

func (f *Frontier) preRankReasonLocked(p Participant, added int) string {
	switch f.policy.Mode {
	case ModeSeedOnly:
		return ReasonMode
	case ModeFocus:
		if added >= f.policy.FocusNewPerMatch {
			return ReasonFocusCap
		}
	}
	if f.roles != nil {
		if _, ok := f.roles[normalize(p.Role)]; !ok {
			return ReasonRole
		}
	}
	return ""
}

func (f *Frontier) rankAllowed(ctx context.Context, id string) bool {
	if f.ranks == nil {
		return true
	}
	res, ok := f.rankCache.Get(id)
	if !ok {
		tier, known, err := f.rankSource.RankedTier(ctx, id)
		if err != nil {
			f.logger.Warn("rank lookup failed; accepting player",
				zap.String("puuid", id), zap.Error(err))
			return true
		}
		res = rankResult{tier: normalize(tier), known: known && tier != ""}
		f.rankCache.Add(id, res)
	}
	if !res.known {
		return true
	}
	_, allowed := f.ranks[res.tier]
	return allowed
}

func (f *Frontier) enqueueLocked(id string, seed bool) {
	f.index[id] = len(f.entries)
	f.entries = append(f.entries, Entry{ID: id, State: StateQueued, Seed: seed})
	f.queue = append(f.queue, len(f.entries)-1)
	f.pending++
}

func (f *Frontier) rejectLocked(id, reason string) {
	f.index[id] = len(f.entries)
	f.entries = append(f.entries, Entry{ID: id, State: StateRejected, Reason: reason})
	f.rejected[reason]++
}

func (f *Frontier) compactLocked() {
	if f.head < compactThreshold || f.head*2 < len(f.queue) {
		return
	}
	n := copy(f.queue, f.queue[f.head:])
	f.queue = f.queue[:n]
	f.head = 0
}
