package dataset

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/kraken/internal/kraken"
)

// Variant names a dataset layout.
type Variant string

// Supported variants.
const (
	VariantPlayerProfile Variant = "player-profile-only"
	VariantTeamOutcome   Variant = "team-outcome"
	VariantLobbyOutcome  Variant = "lobby-outcome"
)

// Variants lists every supported variant.
var Variants = []Variant{VariantPlayerProfile, VariantTeamOutcome, VariantLobbyOutcome}

// ParseVariant validates a variant name.
func ParseVariant(raw string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", kraken.Configf("dataset.variant", "unknown variant %q", raw)
}

// FileName is the output file a variant is written to.
func (v Variant) FileName() string {
	switch v {
	case VariantPlayerProfile:
		return "player_profile.parquet"
	case VariantTeamOutcome:
		return "ml_team_outcome.parquet"
	case VariantLobbyOutcome:
		return "ml_lobby_outcome.parquet"
	default:
		return fmt.Sprintf("ml_%s.parquet", v)
	}
}

// Inputs locates the tables a build reads.
type Inputs struct {
	PlayerTable  string
	TeamTable    string
	ProfileTable string
	// DraftOnly builds lobby rows without history profiles.
	DraftOnly bool
}

// Validate reports the first input v needs but was not given.
func (in Inputs) Validate(v Variant) error {
	switch v {
	case VariantPlayerProfile:
		if in.PlayerTable == "" {
			return kraken.Configf("dataset.player_table", "%s requires the player table", v)
		}
	case VariantTeamOutcome:
		if in.TeamTable == "" {
			return kraken.Configf("dataset.team_table", "%s requires the team table", v)
		}
	case VariantLobbyOutcome:
		if in.PlayerTable == "" {
			return kraken.Configf("dataset.player_table", "%s requires the player table", v)
		}
		if in.TeamTable == "" {
			return kraken.Configf("dataset.team_table", "%s requires the team table for labels", v)
		}
		if in.DraftOnly && in.ProfileTable != "" {
			return kraken.Configf("dataset.profile_table", "a profile table cannot be combined with draft-only")
		}
		if !in.DraftOnly && in.ProfileTable == "" {
			return kraken.Configf("dataset.profile_table", "%s requires a profile table unless draft-only is set", v)
		}
	default:
		return kraken.Configf("dataset.variant", "unknown variant %q", v)
	}
	return nil
}

// Defaults for Options.
const (
	DefaultHistorySize = 20
	DefaultMinMatches  = 5
	SoloQueueID        = 420
)

// Options tune the builders.
type Options struct {
	// HistorySize caps how many prior matches a profile averages.
	HistorySize int
	// MinMatches is how many prior matches a profile row needs.
	MinMatches int
	// QueueID keeps only matches from this queue; zero keeps all.
	QueueID int
}

// DefaultOptions returns ranked solo queue with a 20 game window.
func DefaultOptions() Options {
	return Options{HistorySize: DefaultHistorySize, MinMatches: DefaultMinMatches, QueueID: SoloQueueID}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.HistorySize < 1 {
		return kraken.Configf("dataset.history_size", "must be at least 1, got %d", o.HistorySize)
	}
	if o.MinMatches < 1 {
		return kraken.Configf("dataset.min_matches", "must be at least 1, got %d", o.MinMatches)
	}
	if o.QueueID < 0 {
		return kraken.Configf("dataset.queue_id", "must not be negative")
	}
	return nil
}

func (o Options) keepQueue(queueID int32) bool {
	return o.QueueID == 0 || int(queueID) == o.QueueID
}
