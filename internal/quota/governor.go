// Package quota paces outbound API requests against rolling request ceilings.
//
// A Governor admits a request only when doing so keeps every configured
// window at or below its limit: for a window of period P and limit N, any
// half-open interval (t-P, t] contains at most N admissions. Callers that
// would exceed a ceiling are delayed, never rejected.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/kraken/internal/clock/system"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/metrics"
)

// Window is one rolling ceiling.
type Window struct {
	Limit  int
	Period time.Duration
}

// Config holds governor configuration.
type Config struct {
	// Windows are enforced together; all must admit a request.
	Windows []Window
	// BurstPerSecond smooths short spikes with a token bucket. Zero disables it.
	BurstPerSecond int
	Clock          kraken.Clock
	Sleeper        kraken.Sleeper
	Logger         *zap.Logger
}

// Stats summarizes governor activity.
type Stats struct {
	Admitted int64
	Waits    int64
	Waited   time.Duration
}

type window struct {
	Window
	stamps []time.Time
}

// Governor is safe for concurrent use; every caller funnels through one mutex
// so admissions are globally ordered.
type Governor struct {
	mu      sync.Mutex
	windows []*window
	burst   *rate.Limiter
	clock   kraken.Clock
	sleeper kraken.Sleeper
	logger  *zap.Logger
	stats   Stats
}

// New validates cfg and builds a Governor.
func New(cfg Config) (*Governor, error) {
	if len(cfg.Windows) == 0 {
		return nil, kraken.Configf("quota.windows", "must contain at least one window")
	}
	g := &Governor{
		clock:   cfg.Clock,
		sleeper: cfg.Sleeper,
		logger:  cfg.Logger,
	}
	for _, w := range cfg.Windows {
		if w.Limit <= 0 {
			return nil, kraken.Configf("quota.requests_per_window", "must be > 0, got %d", w.Limit)
		}
		if w.Period <= 0 {
			return nil, kraken.Configf("quota.window", "must be > 0, got %s", w.Period)
		}
		g.windows = append(g.windows, &window{Window: w, stamps: make([]time.Time, 0, w.Limit)})
	}
	if cfg.BurstPerSecond < 0 {
		return nil, kraken.Configf("quota.burst_per_second", "must be >= 0, got %d", cfg.BurstPerSecond)
	}
	if cfg.BurstPerSecond > 0 {
		g.burst = rate.NewLimiter(rate.Limit(cfg.BurstPerSecond), cfg.BurstPerSecond)
	}
	if g.clock == nil || g.sleeper == nil {
		sys := system.New()
		if g.clock == nil {
			g.clock = sys
		}
		if g.sleeper == nil {
			g.sleeper = sys
		}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

// Acquire blocks until one request may be issued, then records it. It only
// fails when ctx ends while waiting.
func (g *Governor) Acquire(ctx context.Context) error {
	var waited time.Duration
	for {
		g.mu.Lock()
		wait := g.tryAdmitLocked(g.clock.Now())
		if wait == 0 {
			g.stats.Admitted++
			if waited > 0 {
				g.stats.Waits++
				g.stats.Waited += waited
			}
			g.mu.Unlock()
			if waited > time.Millisecond {
				metrics.ObserveQuotaWait(waited)
			}
			return nil
		}
		g.mu.Unlock()

		g.logger.Debug("quota ceiling reached, pausing", zap.Duration("wait", wait))
		if err := g.sleeper.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("quota acquire: %w", err)
		}
		waited += wait
	}
}

// tryAdmitLocked returns zero and records an admission at now, or returns how
// long to wait before trying again.
func (g *Governor) tryAdmitLocked(now time.Time) time.Duration {
	var wait time.Duration
	for _, w := range g.windows {
		w.prune(now)
		if len(w.stamps) >= w.Limit {
			if d := w.stamps[0].Add(w.Period).Sub(now); d > wait {
				wait = d
			}
		}
	}
	if wait > 0 {
		return wait
	}
	if g.burst != nil && !g.burst.AllowN(now, 1) {
		deficit := 1 - g.burst.TokensAt(now)
		d := time.Duration(deficit / float64(g.burst.Limit()) * float64(time.Second))
		if d <= 0 {
			d = time.Millisecond
		}
		return d
	}
	for _, w := range g.windows {
		w.stamps = append(w.stamps, now)
	}
	return 0
}

// prune drops admissions at or before now-Period.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.Period)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Stats returns a copy of the governor counters.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// InFlight reports how many admissions currently count against the first
// window.
func (g *Governor) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	w := g.windows[0]
	w.prune(g.clock.Now())
	return len(w.stamps)
}
