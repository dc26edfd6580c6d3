package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/progress"
)

// LogSink writes one structured log line per snapshot.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each snapshot in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	for _, snap := range batch {
		fields := []zap.Field{
			zap.String("run_id", snap.RunID),
			zap.String("stage", string(snap.Stage)),
			zap.Duration("elapsed", snap.Elapsed),
			zap.Int("matches_saved", snap.MatchesSaved),
			zap.Int("already_stored", snap.AlreadyStored),
			zap.Float64("matches_per_min", snap.Rate()),
			zap.Int("frontier", snap.FrontierSize),
			zap.Int("visited", snap.IdentifiersVisited),
			zap.Int("transient_errors", snap.TransientErrors),
			zap.Int("parse_errors", snap.ParseErrors),
		}
		if snap.Reason != "" {
			fields = append(fields, zap.String("reason", snap.Reason))
		}
		s.logger.Info("harvest progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
