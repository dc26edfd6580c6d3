package harvester

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/clock/system"
	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/metrics"
	"github.com/JakeFAU/kraken/internal/progress"
	"github.com/JakeFAU/kraken/internal/riot"
)

// State is the lifecycle position of a Harvester.
type State string

// Harvester states.
const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// StopReason explains why a run ended.
type StopReason string

// Stop reasons.
const (
	StopDuration      StopReason = "duration_elapsed"
	StopIdle          StopReason = "idle_timeout"
	StopTotalCap      StopReason = "total_cap"
	StopFrontierEmpty StopReason = "frontier_empty"
	StopCanceled      StopReason = "canceled"
	StopFailed        StopReason = "failed"
)

// Deps are the collaborators of a Harvester. Ranks is required only when the
// policy filters on rank; Catalog and Progress are optional.
type Deps struct {
	Source   kraken.MatchSource
	Store    kraken.MatchStore
	Ranks    kraken.RankSource
	Catalog  kraken.Catalog
	Progress progress.Emitter
	Clock    kraken.Clock
	Sleeper  kraken.Sleeper
	RunID    string
}

// storedReader is implemented by stores that can return a saved match, which
// lets the frontier grow from matches a previous run already downloaded.
type storedReader interface {
	Get(matchID string) ([]byte, error)
}

// Summary is the final report of a run.
type Summary struct {
	RunID              string         `json:"run_id"`
	Reason             StopReason     `json:"reason"`
	Started            time.Time      `json:"started"`
	Elapsed            time.Duration  `json:"elapsed"`
	MatchesSaved       int            `json:"matches_saved"`
	AlreadyStored      int            `json:"already_stored"`
	IdentifiersVisited int            `json:"identifiers_visited"`
	IdentifiersDrained int            `json:"identifiers_drained"`
	FrontierRemaining  int            `json:"frontier_remaining"`
	ParticipantsSeen   int            `json:"participants_seen"`
	Rejected           map[string]int `json:"rejected"`
	Requests           int            `json:"requests"`
	TransientErrors    int            `json:"transient_errors"`
	ParseErrors        int            `json:"parse_errors"`
	NotFound           int            `json:"not_found"`
	FetchErrors        int            `json:"fetch_errors"`
	CatalogFailures    int            `json:"catalog_failures"`
}

// SkippedErrors totals every per-item failure that was absorbed.
func (s Summary) SkippedErrors() int {
	return s.TransientErrors + s.ParseErrors + s.NotFound + s.FetchErrors
}

type counters struct {
	saved         int
	alreadyStored int
	drained       int
	requests      int
	transient     int
	parse         int
	notFound      int
	fetch         int
	catalog       int
}

// Harvester executes one run. It is not reusable.
type Harvester struct {
	deps     Deps
	policy   Policy
	frontier *frontier.Frontier
	retry    RetryPolicy
	logger   *zap.Logger

	state       atomic.Value
	seenMatches map[string]struct{}
	c           counters
	started     time.Time
	lastSave    time.Time
	lastReport  time.Time
	stopReason  StopReason
}

var errStop = errors.New("harvest stop condition reached")

// New validates policy and wires a Harvester.
func New(deps Deps, policy Policy, logger *zap.Logger) (*Harvester, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		return nil, kraken.Configf("harvester.source", "match source is required")
	}
	if deps.Store == nil {
		return nil, kraken.Configf("harvester.store", "match store is required")
	}
	if deps.RunID == "" {
		return nil, kraken.Configf("harvester.run_id", "run id is required")
	}
	if deps.Clock == nil || deps.Sleeper == nil {
		sys := system.New()
		if deps.Clock == nil {
			deps.Clock = sys
		}
		if deps.Sleeper == nil {
			deps.Sleeper = sys
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("harvester").With(zap.String("run_id", deps.RunID))
	f, err := frontier.New(policy.Frontier(), deps.Ranks, logger)
	if err != nil {
		return nil, err
	}
	h := &Harvester{
		deps:        deps,
		policy:      policy,
		frontier:    f,
		retry:       NewRetryPolicy(policy.FetchAttempts),
		logger:      logger,
		seenMatches: make(map[string]struct{}),
	}
	h.state.Store(StateStarting)
	return h, nil
}

// State reports the current lifecycle state.
func (h *Harvester) State() State {
	return h.state.Load().(State)
}

// Frontier exposes the run's frontier for inspection.
func (h *Harvester) Frontier() *frontier.Frontier {
	return h.frontier
}

// Run crawls from seeds until a stop condition is reached. Per-item fetch and
// parse failures are counted and skipped; storage and configuration failures
// end the run with an error. Cancellation of ctx is a normal stop.
func (h *Harvester) Run(ctx context.Context, seeds []string) (Summary, error) {
	if h.State() != StateStarting {
		return Summary{}, errors.New("harvester already ran")
	}
	for _, s := range seeds {
		h.frontier.EnqueueSeed(s)
	}
	if h.frontier.Len() == 0 {
		h.state.Store(StateStopped)
		return Summary{}, kraken.Configf("harvest.seeds", "at least one seed identifier is required")
	}

	h.started = h.deps.Clock.Now()
	h.lastSave = h.started
	h.lastReport = h.started
	h.state.Store(StateRunning)
	h.logger.Info("harvest started",
		zap.Int("seeds", h.frontier.Len()),
		zap.String("mode", string(h.frontier.Policy().Mode)),
		zap.Duration("duration", h.policy.Duration),
		zap.Int("max_matches_total", h.policy.MaxMatchesTotal))
	h.emit(progress.StageStart)

	reason, err := h.loop(ctx)
	h.state.Store(StateStopped)
	h.stopReason = reason

	summary := h.summary()
	metrics.ObserveHarvestRun(string(reason))
	h.emit(progress.StageStop)
	fields := []zap.Field{
		zap.String("reason", string(reason)),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Int("matches_saved", summary.MatchesSaved),
		zap.Int("already_stored", summary.AlreadyStored),
		zap.Int("identifiers_visited", summary.IdentifiersVisited),
		zap.Int("errors_skipped", summary.SkippedErrors()),
	}
	if err != nil {
		h.logger.Error("harvest aborted", append(fields, zap.Error(err))...)
		return summary, err
	}
	h.logger.Info("harvest finished", fields...)
	return summary, nil
}

func (h *Harvester) loop(ctx context.Context) (StopReason, error) {
	for {
		if reason, stop := h.shouldStop(ctx); stop {
			return reason, nil
		}
		id, ok := h.frontier.Next()
		if !ok {
			return StopFrontierEmpty, nil
		}
		walked, err := h.drain(ctx, id)
		h.frontier.Finish(id, walked)
		h.c.drained++
		metrics.ObserveIdentifierDrained()
		metrics.SetFrontierSize(h.frontier.Len())
		switch {
		case err == nil:
		case errors.Is(err, errStop):
			return h.stopReason, nil
		case ctx.Err() != nil:
			return StopCanceled, nil
		default:
			return StopFailed, err
		}
		h.maybeReport()
	}
}

// shouldStop evaluates the run-level termination conditions.
func (h *Harvester) shouldStop(ctx context.Context) (StopReason, bool) {
	if ctx.Err() != nil {
		return StopCanceled, true
	}
	if h.policy.MaxMatchesTotal > 0 && h.c.saved >= h.policy.MaxMatchesTotal {
		return StopTotalCap, true
	}
	now := h.deps.Clock.Now()
	if now.Sub(h.started) >= h.policy.Duration {
		return StopDuration, true
	}
	if h.policy.IdleExitAfter > 0 && now.Sub(h.lastSave) >= h.policy.IdleExitAfter {
		return StopIdle, true
	}
	return "", false
}

// drain walks puuid's listed matches and reports whether the listing was
// walked to its end or the player's cap.
func (h *Harvester) drain(ctx context.Context, puuid string) (bool, error) {
	remaining := h.frontier.Remaining(puuid)
	if remaining == 0 {
		return true, nil
	}
	log := h.logger.With(zap.String("puuid", puuid))
	ids, err := retry(ctx, h.retry, h.deps.Sleeper, h.onRetry("match_ids"),
		func(ctx context.Context) ([]string, error) {
			h.c.requests++
			return h.deps.Source.MatchIDs(ctx, puuid, 0, h.policy.MatchPageSize)
		})
	if err != nil {
		return false, h.absorb(ctx, log, "match_ids", err)
	}
	log.Debug("listed matches", zap.Int("count", len(ids)))

	for _, matchID := range ids {
		if remaining == 0 {
			break
		}
		if reason, stop := h.shouldStop(ctx); stop {
			h.stopReason = reason
			return false, errStop
		}
		saved, err := h.processMatch(ctx, puuid, matchID)
		if err != nil {
			return false, err
		}
		if saved {
			remaining = h.frontier.Credit(puuid)
		}
		h.maybeReport()
	}
	return true, nil
}

// processMatch handles one listed match and reports whether this run saved it.
func (h *Harvester) processMatch(ctx context.Context, seed, matchID string) (bool, error) {
	if _, dup := h.seenMatches[matchID]; dup {
		return false, nil
	}
	h.seenMatches[matchID] = struct{}{}
	log := h.logger.With(zap.String("match_id", matchID))

	exists, err := h.deps.Store.Exists(matchID)
	if err != nil {
		return false, h.absorb(ctx, log, "exists", err)
	}
	if exists {
		h.c.alreadyStored++
		metrics.ObserveMatchSkipped("already_stored")
		h.expandFromStored(ctx, seed, matchID, log)
		return false, nil
	}

	raw, err := retry(ctx, h.retry, h.deps.Sleeper, h.onRetry("match"),
		func(ctx context.Context) ([]byte, error) {
			h.c.requests++
			return h.deps.Source.Match(ctx, matchID)
		})
	if err != nil {
		return false, h.absorb(ctx, log, "match", err)
	}
	m, err := riot.DecodeMatch(raw, matchID)
	if err != nil {
		return false, h.absorb(ctx, log, "decode", err)
	}
	res, err := h.deps.Store.Put(ctx, matchID, raw)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("store match %s: %w", matchID, err)
	}
	if res.Created {
		h.c.saved++
		h.lastSave = h.deps.Clock.Now()
		metrics.ObserveMatchSaved()
		h.record(ctx, m, res, log)
	} else {
		h.c.alreadyStored++
		metrics.ObserveMatchSkipped("already_stored")
	}
	h.frontier.ObserveMatch(ctx, seed, participantsOf(m))
	metrics.SetFrontierSize(h.frontier.Len())
	return res.Created, nil
}

func (h *Harvester) expandFromStored(ctx context.Context, seed, matchID string, log *zap.Logger) {
	reader, ok := h.deps.Store.(storedReader)
	if !ok {
		return
	}
	raw, err := reader.Get(matchID)
	if err != nil {
		log.Warn("read stored match failed", zap.Error(err))
		return
	}
	m, err := riot.DecodeMatch(raw, matchID)
	if err != nil {
		log.Debug("stored match not expandable", zap.Error(err))
		return
	}
	h.frontier.ObserveMatch(ctx, seed, participantsOf(m))
}

func (h *Harvester) record(ctx context.Context, m *riot.Match, res kraken.PutResult, log *zap.Logger) {
	if h.deps.Catalog == nil {
		return
	}
	rec := kraken.MatchRecord{
		MatchID:  m.Metadata.MatchID,
		QueueID:  m.Info.QueueID,
		Digest:   res.Digest,
		Path:     res.Path,
		RunID:    h.deps.RunID,
		StoredAt: h.deps.Clock.Now(),
	}
	if m.Info.GameCreation > 0 {
		rec.GameCreation = time.UnixMilli(m.Info.GameCreation).UTC()
	}
	if err := h.deps.Catalog.RecordMatch(ctx, rec); err != nil {
		h.c.catalog++
		metrics.ObserveCatalogFailure()
		log.Warn("catalog record failed", zap.Error(err))
	}
}

// absorb classifies a per-item failure. Fatal and cancellation errors are
// returned; everything else is counted, logged and swallowed.
func (h *Harvester) absorb(ctx context.Context, log *zap.Logger, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if kraken.IsFatal(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	reason := "fetch"
	switch {
	case errors.Is(err, kraken.ErrTransientFetch):
		h.c.transient++
		reason = "transient"
	case errors.Is(err, kraken.ErrParse):
		h.c.parse++
		reason = "parse"
	case errors.Is(err, kraken.ErrNotFound):
		h.c.notFound++
		reason = "not_found"
	default:
		h.c.fetch++
	}
	metrics.ObserveMatchSkipped(reason)
	log.Warn("skipping after failure", zap.String("op", op), zap.String("reason", reason), zap.Error(err))
	return nil
}

func (h *Harvester) onRetry(op string) func(error, int, time.Duration) {
	return func(err error, attempt int, wait time.Duration) {
		h.logger.Debug("retrying transient failure",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
}

func (h *Harvester) maybeReport() {
	now := h.deps.Clock.Now()
	if now.Sub(h.lastReport) < h.policy.LogInterval {
		return
	}
	h.lastReport = now
	h.emit(progress.StageProgress)
}

func (h *Harvester) emit(stage progress.Stage) {
	if h.deps.Progress == nil {
		return
	}
	snap := h.snapshot(stage)
	h.deps.Progress.Emit(snap)
}

func (h *Harvester) snapshot(stage progress.Stage) progress.Snapshot {
	now := h.deps.Clock.Now()
	stats := h.frontier.Stats()
	snap := progress.Snapshot{
		RunID:              h.deps.RunID,
		TS:                 now,
		Stage:              stage,
		Elapsed:            now.Sub(h.started),
		MatchesSaved:       h.c.saved,
		AlreadyStored:      h.c.alreadyStored,
		IdentifiersVisited: stats.Visited,
		FrontierSize:       stats.Queued,
		ParticipantsSeen:   stats.Observed,
		TransientErrors:    h.c.transient,
		ParseErrors:        h.c.parse,
	}
	if stage == progress.StageStop {
		snap.Reason = string(h.stopReason)
	}
	return snap
}

func (h *Harvester) summary() Summary {
	stats := h.frontier.Stats()
	return Summary{
		RunID:              h.deps.RunID,
		Reason:             h.stopReason,
		Started:            h.started,
		Elapsed:            h.deps.Clock.Now().Sub(h.started),
		MatchesSaved:       h.c.saved,
		AlreadyStored:      h.c.alreadyStored,
		IdentifiersVisited: stats.Visited,
		IdentifiersDrained: h.c.drained,
		FrontierRemaining:  stats.Queued,
		ParticipantsSeen:   stats.Observed,
		Rejected:           stats.Rejected,
		Requests:           h.c.requests,
		TransientErrors:    h.c.transient,
		ParseErrors:        h.c.parse,
		NotFound:           h.c.notFound,
		FetchErrors:        h.c.fetch,
		CatalogFailures:    h.c.catalog,
	}
}

func participantsOf(m *riot.Match) []frontier.Participant {
	out := make([]frontier.Participant, 0, len(m.Info.Participants))
	for _, p := range m.Info.Participants {
		out = append(out, frontier.Participant{PUUID: p.PUUID, Role: p.Role()})
	}
	return out
}
