package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/kraken/internal/progress"
)

func TestLatestSinkKeepsNewest(t *testing.T) {
	t.Parallel()

	sink := NewLatestSink()
	_, ok := sink.Latest()
	assert.False(t, ok)

	now := time.Now()
	require.NoError(t, sink.Consume(context.Background(), []progress.Snapshot{
		{RunID: "r", TS: now.Add(time.Second), MatchesSaved: 2},
		{RunID: "r", TS: now, MatchesSaved: 1},
	}))
	got, ok := sink.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, got.MatchesSaved)
}

func TestLogSinkWritesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	require.NoError(t, sink.Consume(context.Background(), []progress.Snapshot{
		{RunID: "r", TS: time.Now(), Stage: progress.StageStop, MatchesSaved: 5, Reason: "idle_timeout"},
	}))

	entries := logs.FilterMessage("harvest progress").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r", fields["run_id"])
	assert.Equal(t, int64(5), fields["matches_saved"])
	assert.Equal(t, "idle_timeout", fields["reason"])
}
