// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-search/internal/analytics"
	"github.com/pdiddy/paper-search/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func seeded(t *testing.T, n int) *analytics.Recorder {
	t.Helper()
	rec := analytics.New(types.AnalyticsConfig{}, nil, zaptest.NewLogger(t),
		analytics.WithClock(func() time.Time { return fixedNow }))
	for i := 0; i < n; i++ {
		rt, conf, count := 100.0, 0.8, 20
		_, err := rec.Record(context.Background(), types.RecordInput{
			Query:        fmt.Sprintf("asthma treatment %d", i),
			Enhanced:     true,
			ResponseTime: &rt,
			Confidence:   &conf,
			ResultCount:  &count,
			Status:       types.StatusSuccess,
			SearchType:   types.SearchTypeNew,
		})
		require.NoError(t, err)
	}
	return rec
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestHealth(t *testing.T) {
	s := New(seeded(t, 0), nil, zaptest.NewLogger(t))
	w, body := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"healthy"`, string(body["status"]))
	assert.JSONEq(t, `true`, string(body["analytics_available"]))
}

func TestSummary(t *testing.T) {
	s := New(seeded(t, 3), nil, zaptest.NewLogger(t))
	w, body := get(t, s.Handler(), "/api/analytics/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `true`, string(body["success"]))

	var sum types.AnalyticsSummary
	require.NoError(t, json.Unmarshal(body["data"], &sum))
	assert.Equal(t, 3, sum.TotalSearches)
	assert.InDelta(t, 100, sum.EnhancementRate, 1e-9)
	assert.InDelta(t, 100, sum.SuccessRate, 1e-9)
	assert.InDelta(t, 80, sum.AverageConfidence, 1e-9)
}

func TestHistoryIsCapped(t *testing.T) {
	s := New(seeded(t, HistoryPageLimit+5), nil, zaptest.NewLogger(t))
	_, body := get(t, s.Handler(), "/api/analytics/history")

	var hist []types.SearchAnalyticsRecord
	require.NoError(t, json.Unmarshal(body["data"], &hist))
	require.Len(t, hist, HistoryPageLimit)
	assert.Equal(t, fmt.Sprintf("asthma treatment %d", HistoryPageLimit+4), hist[0].Query)
}

func TestHistoryEmpty(t *testing.T) {
	s := New(seeded(t, 0), nil, zaptest.NewLogger(t))
	_, body := get(t, s.Handler(), "/api/analytics/history")
	assert.JSONEq(t, `[]`, string(body["data"]))
}

func TestHourly(t *testing.T) {
	s := New(seeded(t, 2), nil, zaptest.NewLogger(t))
	_, body := get(t, s.Handler(), "/api/analytics/hourly")

	var buckets []types.HourlyBucket
	require.NoError(t, json.Unmarshal(body["data"], &buckets))
	require.Len(t, buckets, 24)
	assert.Equal(t, 2, buckets[23].Count)
}

func TestTrending(t *testing.T) {
	s := New(seeded(t, 4), nil, zaptest.NewLogger(t))

	_, body := get(t, s.Handler(), "/api/analytics/trending?limit=1")
	var terms []types.TrendingTerm
	require.NoError(t, json.Unmarshal(body["data"], &terms))
	require.Len(t, terms, 1)
	assert.Equal(t, 4, terms[0].Count)

	w, body := get(t, s.Handler(), "/api/analytics/trending?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `false`, string(body["success"]))
}

func TestPerformanceAndExport(t *testing.T) {
	s := New(seeded(t, 3), nil, zaptest.NewLogger(t))

	_, body := get(t, s.Handler(), "/api/analytics/performance")
	var perf types.PerformanceMetrics
	require.NoError(t, json.Unmarshal(body["data"], &perf))
	assert.Equal(t, 3, perf.TotalSearches)
	assert.Equal(t, 3, perf.CompleteRecords)

	w, body := get(t, s.Handler(), "/api/analytics/export?download=1")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "paper-search-analytics-")
	var snap types.AnalyticsSnapshot
	require.NoError(t, json.Unmarshal(body["data"], &snap))
	assert.Equal(t, 3, snap.Metadata.RecordCount)
	assert.Len(t, snap.History, 3)
}

type failingAnalytics struct{ Analytics }

func (failingAnalytics) Summary(context.Context) (types.AnalyticsSummary, error) {
	return types.AnalyticsSummary{}, errors.New("store unavailable")
}

func TestViewError(t *testing.T) {
	s := New(failingAnalytics{}, nil, zaptest.NewLogger(t))
	w, body := get(t, s.Handler(), "/api/analytics/summary")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `false`, string(body["success"]))
	assert.JSONEq(t, `"store unavailable"`, string(body["error"]))
}

func TestEventsDisabled(t *testing.T) {
	s := New(seeded(t, 0), nil, zaptest.NewLogger(t))
	w, _ := get(t, s.Handler(), "/api/analytics/events")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventsStream(t *testing.T) {
	broker := analytics.NewBroker()
	defer broker.Close()
	s := New(seeded(t, 0), broker, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/analytics/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		t.Helper()
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}

	assert.Equal(t, "event:connected", next("event:"))

	broker.Publish(analytics.Change{Kind: analytics.ChangeRecorded, RecordID: "search_1_abc"})
	assert.Equal(t, "event:recorded", next("event:"))
	assert.Contains(t, next("data:"), `"record_id":"search_1_abc"`)
}
