package harvester

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kraken/internal/clock/fake"
	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/matchstore"
	"github.com/JakeFAU/kraken/internal/progress"
)

func testPolicy() Policy {
	p := AbsorbPolicy()
	p.Duration = time.Hour
	p.IdleExitAfter = 0
	p.MaxMatchesPerPlayer = 0
	return p
}

func newHarvester(t *testing.T, deps Deps, p Policy) *Harvester {
	t.Helper()
	if deps.RunID == "" {
		deps.RunID = "run-1"
	}
	h, err := New(deps, p, nil)
	require.NoError(t, err)
	return h
}

func TestRunEndToEndNoDoubleDownload(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("A", "M1", "M2", "M3")
	src.add("B", "M1", "M4", "M5")
	src.matches["M1"] = matchJSON("M1", "A", "B", "c", "d")
	src.matches["M2"] = matchJSON("M2", "A", "c", "e")
	src.matches["M3"] = matchJSON("M3", "A", "f")
	src.matches["M4"] = matchJSON("M4", "B", "g")
	src.matches["M5"] = matchJSON("M5", "B", "d", "h")

	store, err := matchstore.New(matchstore.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	h := newHarvester(t, Deps{Source: src, Store: store, Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, StopFrontierEmpty, summary.Reason)
	assert.Equal(t, StateStopped, h.State())
	assert.Equal(t, 5, summary.MatchesSaved)
	for id, n := range src.matchCalls {
		assert.Equal(t, 1, n, "match %s downloaded more than once", id)
	}
	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.Equal(t, []string{"A", "B", "c", "d", "e", "f", "g", "h"}, h.Frontier().Visited())
	assert.Equal(t, 8, summary.IdentifiersVisited)
	assert.Equal(t, 8, summary.IdentifiersDrained)
	assert.Equal(t, 8, summary.ParticipantsSeen)
	assert.Equal(t, 8+5, summary.Requests)
}

func TestRunStopsOnIdleBeforeDuration(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Minute)
	src.add("S", "M1", "M2", "M3")
	for i := 1; i <= 3; i++ {
		players := []string{"S"}
		for j := range 9 {
			players = append(players, fmt.Sprintf("p%d-%d", i, j))
		}
		id := fmt.Sprintf("M%d", i)
		src.matches[id] = matchJSON(id, players...)
	}

	p := testPolicy()
	p.Duration = time.Hour
	p.IdleExitAfter = 10 * time.Minute
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, StopIdle, summary.Reason)
	assert.Equal(t, 3, summary.MatchesSaved)
	// last save at +4m, idle limit 10m, one call of slack
	assert.LessOrEqual(t, summary.Elapsed, 15*time.Minute)
	assert.GreaterOrEqual(t, summary.Elapsed, 14*time.Minute)
	assert.Positive(t, summary.FrontierRemaining)
}

func TestRunIdleTimerStartsAtRunStart(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, 30*time.Second)
	src.add("S", "M1")
	src.add("T", "M2")
	src.failures["M1"] = []error{errBoom}

	p := testPolicy()
	p.IdleExitAfter = time.Minute
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"S", "T"})
	require.NoError(t, err)
	assert.Equal(t, StopIdle, summary.Reason)
	assert.Zero(t, summary.MatchesSaved)
	assert.Equal(t, 1, summary.FetchErrors)
	assert.Zero(t, src.idCalls["T"])
}

func TestRunStopsAtTotalCap(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	for i := range 5 {
		id := fmt.Sprintf("M%d", i)
		src.add("S", id)
		src.matches[id] = matchJSON(id, "S")
	}
	p := testPolicy()
	p.MaxMatchesTotal = 2
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, StopTotalCap, summary.Reason)
	assert.Equal(t, 2, summary.MatchesSaved)
	assert.Len(t, src.matchCalls, 2)
}

func TestRunStopsAtDuration(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Minute)
	for i := range 10 {
		id := fmt.Sprintf("M%d", i)
		src.add("S", id)
		src.matches[id] = matchJSON(id, "S")
	}
	p := testPolicy()
	p.Duration = 4 * time.Minute
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, StopDuration, summary.Reason)
	assert.Equal(t, 3, summary.MatchesSaved)
	assert.Equal(t, 4*time.Minute, summary.Elapsed)
}

func TestRunHonorsPerPlayerCap(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	for i := range 5 {
		id := fmt.Sprintf("M%d", i)
		src.add("S", id)
		src.matches[id] = matchJSON(id, "S", fmt.Sprintf("x%d", i))
	}
	p := testPolicy()
	p.MaxMatchesPerPlayer = 2
	p.Mode = frontier.ModeSeedOnly
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, StopFrontierEmpty, summary.Reason)
	assert.Equal(t, 2, summary.MatchesSaved)
	assert.Equal(t, map[string]int{frontier.ReasonMode: 2}, summary.Rejected)

	e, ok := h.Frontier().Entry("S")
	require.True(t, ok)
	assert.Equal(t, frontier.StateExhausted, e.State)
	assert.Equal(t, 2, e.Matches)
}

func TestRunRecordsHowEachPlayerEnded(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("A", "M1", "M2")
	src.add("B", "M3", "M4", "M5")
	for _, id := range []string{"M1", "M2", "M3", "M4", "M5"} {
		src.matches[id] = matchJSON(id, "A", "B")
	}
	p := testPolicy()
	p.Mode = frontier.ModeSeedOnly
	p.MaxMatchesTotal = 3
	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, p)

	summary, err := h.Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, StopTotalCap, summary.Reason)

	a, ok := h.Frontier().Entry("A")
	require.True(t, ok)
	assert.Equal(t, frontier.StateDrained, a.State)
	assert.Equal(t, 2, a.Matches)

	b, ok := h.Frontier().Entry("B")
	require.True(t, ok)
	assert.Equal(t, frontier.StateInterrupted, b.State)
	assert.Equal(t, 1, b.Matches)
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("S", "M1", "M2")
	src.matches["M1"] = matchJSON("M1", "S")
	src.matches["M2"] = matchJSON("M2", "S")
	store := newMemStore()
	store.putErr = &kraken.StorageError{Op: "rename", Path: "/full", Err: errBoom}

	h := newHarvester(t, Deps{Source: src, Store: store, Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"S"})
	require.Error(t, err)
	require.ErrorIs(t, err, kraken.ErrStorage)
	assert.Equal(t, StopFailed, summary.Reason)
	assert.Len(t, src.matchCalls, 1)
}

func TestRunSkipsMalformedMatches(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("S", "M1", "BAD", "M2", "GONE")
	src.matches["M1"] = matchJSON("M1", "S")
	src.matches["BAD"] = []byte(`{"metadata":`)
	src.matches["M2"] = matchJSON("M2", "S")
	store := newMemStore()

	h := newHarvester(t, Deps{Source: src, Store: store, Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MatchesSaved)
	assert.Equal(t, 1, summary.ParseErrors)
	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 2, summary.SkippedErrors())
	_, stored := store.data["BAD"]
	assert.False(t, stored)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, 0)
	src.add("S", "M1", "M2")
	src.matches["M1"] = matchJSON("M1", "S")
	src.matches["M2"] = matchJSON("M2", "S")
	src.failures["M1"] = []error{
		&kraken.TransientFetchError{Op: "match", StatusCode: 429, RetryAfter: 7 * time.Second, Err: errBoom},
	}
	transient := &kraken.TransientFetchError{Op: "match", StatusCode: 503, Err: errBoom}
	src.failures["M2"] = []error{transient, transient, transient}

	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MatchesSaved)
	assert.Equal(t, 1, summary.TransientErrors)
	assert.Equal(t, 2, src.matchCalls["M1"])
	assert.Equal(t, 3, src.matchCalls["M2"])
	assert.Equal(t, 1+2+3, summary.Requests)

	slept, sleeps := clock.Slept()
	assert.Equal(t, 3, sleeps)
	assert.GreaterOrEqual(t, slept, 7*time.Second)
}

func TestRunConfigurationErrorFromSourceIsFatal(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, 0)
	src.add("S", "M1")
	src.failures["M1"] = []error{kraken.Configf("riot.api_key", "rejected")}

	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, testPolicy())
	_, err := h.Run(context.Background(), []string{"S"})
	require.ErrorIs(t, err, kraken.ErrConfiguration)
}

func TestRunCatalogFailuresAreCounted(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("S", "M1", "M2")
	src.matches["M1"] = matchJSON("M1", "S")
	src.matches["M2"] = matchJSON("M2", "S")
	catalog := &failingCatalog{err: errBoom}

	h := newHarvester(t, Deps{
		Source: src, Store: newMemStore(), Catalog: catalog, Clock: clock, Sleeper: clock, RunID: "run-42",
	}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MatchesSaved)
	assert.Equal(t, 2, summary.CatalogFailures)
	require.Len(t, catalog.records, 2)
	rec := catalog.records[0]
	assert.Equal(t, "M1", rec.MatchID)
	assert.Equal(t, 420, rec.QueueID)
	assert.Equal(t, "run-42", rec.RunID)
	assert.True(t, rec.GameCreation.Equal(epoch))
}

func TestRunExpandsFromStoredMatches(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	src.add("S", "M1")

	store, err := matchstore.New(matchstore.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "M1", matchJSON("M1", "S", "x", "y"))
	require.NoError(t, err)

	h := newHarvester(t, Deps{Source: src, Store: store, Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)
	assert.Zero(t, summary.MatchesSaved)
	assert.Equal(t, 1, summary.AlreadyStored)
	assert.Empty(t, src.matchCalls)

	visited := h.Frontier().Visited()
	sort.Strings(visited)
	assert.Equal(t, []string{"S", "x", "y"}, visited)
}

func TestRunCanceledContextIsCleanStop(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Clock: clock, Sleeper: clock}, testPolicy())
	summary, err := h.Run(ctx, []string{"S"})
	require.NoError(t, err)
	assert.Equal(t, StopCanceled, summary.Reason)
	assert.Empty(t, src.idCalls)
}

func TestRunRequiresSeeds(t *testing.T) {
	clock := fake.New(epoch)
	h := newHarvester(t, Deps{Source: newFakeSource(clock, 0), Store: newMemStore(), Clock: clock, Sleeper: clock}, testPolicy())
	_, err := h.Run(context.Background(), []string{"", "  "})
	require.ErrorIs(t, err, kraken.ErrConfiguration)

	_, err = h.Run(context.Background(), []string{"S"})
	require.Error(t, err)
}

func TestRunEmitsProgress(t *testing.T) {
	clock := fake.New(epoch)
	src := newFakeSource(clock, time.Minute)
	for i := range 4 {
		id := fmt.Sprintf("M%d", i)
		src.add("S", id)
		src.matches[id] = matchJSON(id, "S")
	}
	rec := &snapshotRecorder{}
	p := testPolicy()
	p.LogInterval = 2 * time.Minute

	h := newHarvester(t, Deps{Source: src, Store: newMemStore(), Progress: rec, Clock: clock, Sleeper: clock}, p)
	_, err := h.Run(context.Background(), []string{"S"})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rec.snaps), 3)
	first, last := rec.snaps[0], rec.snaps[len(rec.snaps)-1]
	assert.Equal(t, progress.StageStart, first.Stage)
	assert.Equal(t, progress.StageStop, last.Stage)
	assert.Equal(t, string(StopFrontierEmpty), last.Reason)
	assert.Equal(t, 4, last.MatchesSaved)
	for _, s := range rec.snaps {
		require.NoError(t, s.Validate())
	}
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(Deps{Store: newMemStore(), RunID: "r"}, testPolicy(), nil)
	require.ErrorIs(t, err, kraken.ErrConfiguration)
	_, err = New(Deps{Source: &fakeSource{}, RunID: "r"}, testPolicy(), nil)
	require.ErrorIs(t, err, kraken.ErrConfiguration)
	_, err = New(Deps{Source: &fakeSource{}, Store: newMemStore()}, testPolicy(), nil)
	require.ErrorIs(t, err, kraken.ErrConfiguration)

	p := testPolicy()
	p.AllowRanks = []string{"GOLD"}
	_, err = New(Deps{Source: &fakeSource{}, Store: newMemStore(), RunID: "r"}, p, nil)
	require.ErrorIs(t, err, kraken.ErrConfiguration)
}
