package sinks

import (
	"context"
	"sync"

	"github.com/JakeFAU/kraken/internal/progress"
)

// LatestSink keeps the most recent snapshot for the status endpoint.
type LatestSink struct {
	mu   sync.RWMutex
	last progress.Snapshot
	ok   bool
}

// NewLatestSink returns an empty LatestSink.
func NewLatestSink() *LatestSink {
	return &LatestSink{}
}

// Consume retains the newest snapshot in batch.
func (s *LatestSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range batch {
		if !s.ok || !snap.TS.Before(s.last.TS) {
			s.last = snap
			s.ok = true
		}
	}
	return nil
}

// Latest returns the newest snapshot seen, if any.
func (s *LatestSink) Latest() (progress.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.ok
}

// Close implements the Sink interface; it performs no action.
func (s *LatestSink) Close(context.Context) error {
	return nil
}
