package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kraken/internal/clock/fake"
	"github.com/JakeFAU/kraken/internal/kraken"
)

var epoch = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestGovernor(t *testing.T, clk *fake.Clock, burst int, windows ...Window) *Governor {
	t.Helper()
	g, err := New(Config{Windows: windows, BurstPerSecond: burst, Clock: clk, Sleeper: clk})
	require.NoError(t, err)
	return g
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"no windows", Config{}},
		{"zero limit", Config{Windows: []Window{{Limit: 0, Period: time.Minute}}}},
		{"zero period", Config{Windows: []Window{{Limit: 5}}}},
		{"negative burst", Config{Windows: []Window{{Limit: 5, Period: time.Second}}, BurstPerSecond: -1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			require.ErrorIs(t, err, kraken.ErrConfiguration)
		})
	}
}

func TestAcquireNeverExceedsCeiling(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	period := 2 * time.Minute
	limit := 10
	g := newTestGovernor(t, clk, 0, Window{Limit: limit, Period: period})

	var admitted []time.Time
	for i := 0; i < 95; i++ {
		require.NoError(t, g.Acquire(context.Background()))
		admitted = append(admitted, clk.Now())
		// Jitter the caller's own work between requests.
		clk.Advance(time.Duration(i%7) * time.Second)
	}

	for i, at := range admitted {
		inWindow := 0
		for _, other := range admitted[:i+1] {
			if other.After(at.Add(-period)) {
				inWindow++
			}
		}
		assert.LessOrEqualf(t, inWindow, limit, "admission %d at %s", i, at)
	}
	assert.Equal(t, int64(95), g.Stats().Admitted)
}

func TestAcquireWaitsForOldestToExpire(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	g := newTestGovernor(t, clk, 0, Window{Limit: 3, Period: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Acquire(context.Background()))
		clk.Advance(10 * time.Second)
	}
	assert.Equal(t, epoch.Add(30*time.Second), clk.Now())
	assert.Equal(t, 3, g.InFlight())

	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, epoch.Add(time.Minute), clk.Now(), "fourth call should wait until the first leaves the window")

	stats := g.Stats()
	assert.Equal(t, int64(4), stats.Admitted)
	assert.Equal(t, int64(1), stats.Waits)
	assert.Equal(t, 30*time.Second, stats.Waited)
}

func TestAcquireAppliesBurstLimiter(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	g := newTestGovernor(t, clk, 2, Window{Limit: 100, Period: 2 * time.Minute})

	var offsets []time.Duration
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Acquire(context.Background()))
		offsets = append(offsets, clk.Now().Sub(epoch))
	}

	want := []time.Duration{0, 0, 500 * time.Millisecond, time.Second, 1500 * time.Millisecond}
	for i := range want {
		assert.InDelta(t, want[i].Seconds(), offsets[i].Seconds(), 0.01, "call %d", i)
	}
}

func TestAcquireHonorsMultipleWindows(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	g := newTestGovernor(t, clk, 0,
		Window{Limit: 2, Period: time.Second},
		Window{Limit: 5, Period: time.Minute},
	)
	for i := 0; i < 6; i++ {
		require.NoError(t, g.Acquire(context.Background()))
	}
	// The sixth request is gated by the minute window, not the second window.
	assert.Equal(t, epoch.Add(time.Minute), clk.Now())
}

func TestAcquireReturnsOnCancel(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	g := newTestGovernor(t, clk, 0, Window{Limit: 1, Period: time.Hour})
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), g.Stats().Admitted)
}

func TestAcquireConcurrentCallers(t *testing.T) {
	t.Parallel()

	clk := fake.New(epoch)
	g := newTestGovernor(t, clk, 0, Window{Limit: 4, Period: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(32), g.Stats().Admitted)
	assert.LessOrEqual(t, g.InFlight(), 4)
}
