package harvester

import (
	"time"

	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/quota"
)

// MaxMatchPageSize is the largest page match-v5 serves.
const MaxMatchPageSize = 100

// Policy holds every knob of a harvest run. Both CLI modes run the same loop
// and differ only in these values.
type Policy struct {
	Duration            time.Duration
	MaxMatchesPerPlayer int
	// MaxMatchesTotal stops the run once this many matches were saved. Zero
	// means no cap.
	MaxMatchesTotal int
	// IdleExitAfter stops the run when nothing was saved for this long. Zero
	// disables the check.
	IdleExitAfter time.Duration
	Mode          frontier.Mode
	RoleFocus     []string
	AllowRanks    []string
	LogInterval   time.Duration
	MatchPageSize int
	FetchAttempts int

	RequestsPerWindow int
	Window            time.Duration
	BurstPerSecond    int
}

// AbsorbPolicy returns the full-control defaults.
func AbsorbPolicy() Policy {
	return Policy{
		Duration:            60 * time.Minute,
		MaxMatchesPerPlayer: 100,
		IdleExitAfter:       15 * time.Minute,
		Mode:                frontier.ModeExplore,
		LogInterval:         30 * time.Second,
		MatchPageSize:       MaxMatchPageSize,
		FetchAttempts:       3,
		RequestsPerWindow:   100,
		Window:              2 * time.Minute,
		BurstPerSecond:      20,
	}
}

// EatPolicy returns the conservative preset used to smoke-test a key.
func EatPolicy() Policy {
	p := AbsorbPolicy()
	p.Duration = 10 * time.Minute
	p.MaxMatchesPerPlayer = 20
	p.MaxMatchesTotal = 1000
	p.IdleExitAfter = 10 * time.Minute
	p.Mode = frontier.ModeFocus
	p.LogInterval = 45 * time.Second
	p.RequestsPerWindow = 60
	return p
}

// Validate checks the policy before a run starts.
func (p Policy) Validate() error {
	switch {
	case p.Duration <= 0:
		return kraken.Configf("harvest.duration", "must be > 0, got %s", p.Duration)
	case p.MaxMatchesTotal < 0:
		return kraken.Configf("harvest.max_matches_total", "must be >= 0, got %d", p.MaxMatchesTotal)
	case p.IdleExitAfter < 0:
		return kraken.Configf("harvest.idle_exit_after", "must be >= 0, got %s", p.IdleExitAfter)
	case p.LogInterval <= 0:
		return kraken.Configf("harvest.log_interval", "must be > 0, got %s", p.LogInterval)
	case p.MatchPageSize < 1 || p.MatchPageSize > MaxMatchPageSize:
		return kraken.Configf("harvest.match_page_size", "must be in [1,%d], got %d", MaxMatchPageSize, p.MatchPageSize)
	case p.FetchAttempts < 1:
		return kraken.Configf("harvest.fetch_attempts", "must be >= 1, got %d", p.FetchAttempts)
	case p.RequestsPerWindow <= 0:
		return kraken.Configf("quota.requests_per_window", "must be > 0, got %d", p.RequestsPerWindow)
	case p.Window <= 0:
		return kraken.Configf("quota.window", "must be > 0, got %s", p.Window)
	case p.BurstPerSecond < 0:
		return kraken.Configf("quota.burst_per_second", "must be >= 0, got %d", p.BurstPerSecond)
	}
	return p.Frontier().Validate()
}

// Frontier derives the frontier acceptance policy.
func (p Policy) Frontier() frontier.Policy {
	return frontier.Policy{
		Mode:                p.Mode,
		Roles:               p.RoleFocus,
		AllowRanks:          p.AllowRanks,
		MaxMatchesPerPlayer: p.MaxMatchesPerPlayer,
	}
}

// Quota derives the governor configuration. Clock, sleeper and logger are
// left for the caller.
func (p Policy) Quota() quota.Config {
	return quota.Config{
		Windows:        []quota.Window{{Limit: p.RequestsPerWindow, Period: p.Window}},
		BurstPerSecond: p.BurstPerSecond,
	}
}
