package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	testCases := []struct {
		name     string
		input    int
		expected string
	}{
		{"network failure", 0, "error"},
		{"ok", 200, "2xx"},
		{"not found", 404, "4xx"},
		{"rate limited", 429, "429"},
		{"server error", 503, "5xx"},
		{"out of range", 999, "other"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusClass(tc.input))
		})
	}
}

func TestObserversUpdateCollectors(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(matchesSavedTotal)
	ObserveMatchSaved()
	assert.InDelta(t, before+1, testutil.ToFloat64(matchesSavedTotal), 1e-9)

	ObserveMatchSkipped("parse")
	ObserveMatchSkipped("parse")
	assert.GreaterOrEqual(t, testutil.ToFloat64(matchesSkippedTotal.WithLabelValues("parse")), 2.0)

	SetFrontierSize(42)
	assert.InDelta(t, 42, testutil.ToFloat64(frontierSize), 1e-9)

	ObserveRowsWritten("players", 10)
	assert.GreaterOrEqual(t, testutil.ToFloat64(rowsWrittenTotal.WithLabelValues("players")), 10.0)

	ObserveAPIRequest("match", 200, 120*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(apiRequestsTotal.WithLabelValues("match", "2xx")), 1.0)
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	ObserveHarvestRun("frontier_empty")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "kraken_harvest_runs_total"))
}

func FuzzStatusClass(f *testing.F) {
	for _, tc := range []int{0, 200, 429, 500, -1} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, code int) {
		if StatusClass(code) == "" {
			t.Errorf("StatusClass(%d) returned an empty string", code)
		}
	})
}
