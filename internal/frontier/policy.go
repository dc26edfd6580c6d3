package frontier

import (
	"sort"
	"strings"

	"github.com/JakeFAU/kraken/internal/kraken"
)

// Mode selects how aggressively matches expand the frontier.
type Mode string

// Supported expansion modes.
const (
	// ModeExplore enqueues every accepted participant, breadth-first.
	ModeExplore Mode = "explore"
	// ModeFocus enqueues at most FocusNewPerMatch new participants per match.
	ModeFocus Mode = "focus"
	// ModeSeedOnly records participants as seen but only crawls the seeds.
	ModeSeedOnly Mode = "seed-only"
)

// DefaultFocusNewPerMatch caps focus-mode expansion.
const DefaultFocusNewPerMatch = 2

// ParseMode normalizes a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExplore:
		return ModeExplore, nil
	case ModeFocus:
		return ModeFocus, nil
	case ModeSeedOnly:
		return ModeSeedOnly, nil
	default:
		return "", kraken.Configf("harvest.mode", "must be one of explore, focus, seed-only, got %q", s)
	}
}

// Policy is the acceptance policy applied to discovered participants.
type Policy struct {
	Mode Mode
	// Roles, when non-empty, restricts expansion to participants playing one
	// of these positions (TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY).
	Roles []string
	// AllowRanks, when non-empty, restricts expansion to these solo-queue
	// tiers. Players whose tier cannot be determined are accepted.
	AllowRanks []string
	// MaxMatchesPerPlayer caps how many matches are credited to one
	// identifier before it is exhausted. Zero means no cap.
	MaxMatchesPerPlayer int
	// FocusNewPerMatch overrides DefaultFocusNewPerMatch in focus mode.
	FocusNewPerMatch int
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if _, err := ParseMode(string(p.Mode)); err != nil {
		return err
	}
	if p.MaxMatchesPerPlayer < 0 {
		return kraken.Configf("harvest.max_matches_per_player", "must be >= 0, got %d", p.MaxMatchesPerPlayer)
	}
	if p.FocusNewPerMatch < 0 {
		return kraken.Configf("harvest.focus_new_per_match", "must be >= 0, got %d", p.FocusNewPerMatch)
	}
	for _, r := range p.Roles {
		if _, ok := knownRoles[normalize(r)]; !ok {
			return kraken.Configf("harvest.role_focus", "unknown role %q", r)
		}
	}
	return nil
}

var knownRoles = map[string]struct{}{
	"TOP": {}, "JUNGLE": {}, "MIDDLE": {}, "BOTTOM": {}, "UTILITY": {},
}

// SplitList parses a comma separated option into trimmed upper-case values,
// dropping blanks and duplicates.
func SplitList(raw string) []string {
	return dedupe(strings.Split(raw, ","))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range dedupe(values) {
		set[v] = struct{}{}
	}
	return set
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
