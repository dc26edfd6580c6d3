package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes where in a run a Snapshot was taken.
type Stage string

// Supported snapshot stages.
const (
	StageStart    Stage = "RUN_START"
	StageProgress Stage = "RUN_PROGRESS"
	StageStop     Stage = "RUN_STOP"
)

// Snapshot is a point-in-time view of a harvest run.
type Snapshot struct {
	RunID   string        `json:"run_id"`
	TS      time.Time     `json:"ts"`
	Stage   Stage         `json:"stage"`
	Elapsed time.Duration `json:"elapsed"`
	// MatchesSaved counts matches written by this run.
	MatchesSaved int `json:"matches_saved"`
	// AlreadyStored counts listed matches skipped because the store had them.
	AlreadyStored      int `json:"already_stored"`
	IdentifiersVisited int `json:"identifiers_visited"`
	FrontierSize       int `json:"frontier_size"`
	ParticipantsSeen   int `json:"participants_seen"`
	TransientErrors    int `json:"transient_errors"`
	ParseErrors        int `json:"parse_errors"`
	// Reason is set on StageStop snapshots.
	Reason string `json:"reason,omitempty"`
}

// Rate returns saved matches per minute of elapsed time.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.MatchesSaved) / s.Elapsed.Minutes()
}

// Validate performs coarse validation on Snapshot payloads.
func (s Snapshot) Validate() error {
	if s.RunID == "" {
		return errors.New("run id is required")
	}
	if s.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch s.Stage {
	case StageStart, StageProgress:
	case StageStop:
		if s.Reason == "" {
			return errors.New("stop snapshot requires reason")
		}
	default:
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	if s.Elapsed < 0 {
		return errors.New("elapsed must be >= 0")
	}
	if s.MatchesSaved < 0 || s.AlreadyStored < 0 || s.FrontierSize < 0 {
		return errors.New("counters must be >= 0")
	}
	return nil
}
