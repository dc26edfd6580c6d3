package summary

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kraken/internal/extract"
	"github.com/JakeFAU/kraken/internal/matchstore"
)

func match(id string, queue int, created int64, champs ...string) string {
	var parts []string
	for i, c := range champs {
		parts = append(parts, fmt.Sprintf(`{"puuid": "%s-%d", "championName": %q, "teamId": 100}`, id, i, c))
	}
	return fmt.Sprintf(`{"metadata": {"matchId": %q}, "info": {"queueId": %d, "gameCreation": %d, "participants": [%s]}}`,
		id, queue, created, strings.Join(parts, ","))
}

func newExtractor(t *testing.T, files map[string]string) *extract.Extractor {
	t.Helper()
	store, err := matchstore.New(matchstore.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	for id, body := range files {
		_, err := store.Put(context.Background(), id, []byte(body))
		require.NoError(t, err)
	}
	return extract.New(store, nil)
}

func TestScan(t *testing.T) {
	ex := newExtractor(t, map[string]string{
		"EUW1_1": match("EUW1_1", 420, 1_700_000_000_000, "Ahri", "Lux", "Ahri"),
		"EUW1_2": match("EUW1_2", 420, 1_700_000_500_000, "Lux", "Ahri"),
		"EUW1_3": match("EUW1_3", 450, 1_699_000_000_000, "Zed"),
		"EUW1_4": `not json`,
	})

	r, err := Scan(context.Background(), ex)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Scanned)
	assert.Equal(t, 1, r.ParseErrors)
	assert.Equal(t, 2, r.SoloQueue)
	assert.Equal(t, 1, r.OtherQueue)
	assert.Equal(t, 2, r.Queues)
	assert.Equal(t, 6, r.Participants)
	assert.Equal(t, time.UnixMilli(1_699_000_000_000).UTC(), r.Earliest)
	assert.Equal(t, time.UnixMilli(1_700_000_500_000).UTC(), r.Latest)
	assert.Equal(t, []ChampionCount{{"Ahri", 3}, {"Lux", 2}, {"Zed", 1}}, r.Champions)
}

func TestRender(t *testing.T) {
	r := Report{
		Scanned:   3,
		SoloQueue: 3,
		Queues:    1,
		Earliest:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Latest:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Champions: []ChampionCount{{"Ahri", 3}, {"Lux", 2}, {"Zed", 1}},
	}
	var buf bytes.Buffer
	Render(&buf, r, 2)
	out := buf.String()
	assert.Contains(t, out, "Matches scanned")
	assert.Contains(t, out, "2024-01-01T00:00:00Z -> 2024-02-01T00:00:00Z")
	assert.Contains(t, out, "Ahri")
	assert.Contains(t, out, "Lux")
	assert.NotContains(t, out, "Zed")
}

func TestRenderEmptyCorpus(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Report{}, 10)
	assert.Contains(t, buf.String(), "Matches scanned")
	assert.NotContains(t, buf.String(), "Time range")
	assert.NotContains(t, buf.String(), "Top champions")
}
