// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// remoteClient speaks the analytics service's HTTP contract. The service
// writes naive ISO timestamps, so records are decoded through wire types.
type remoteClient struct {
	endpoint string
	http     *httputil.JSONClient
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

var (
	errRejected = errors.New("analytics service reported failure")
	errNoID     = errors.New("analytics service returned no record id")
)

type wireRecord struct {
	ID           string             `json:"id"`
	Timestamp    string             `json:"timestamp"`
	Query        string             `json:"query"`
	Enhanced     bool               `json:"ml_enhanced"`
	ResponseTime float64            `json:"response_time"`
	Confidence   float64            `json:"confidence"`
	ResultCount  int                `json:"result_count"`
	Status       types.SearchStatus `json:"status"`
	Explanation  []string           `json:"explanation"`
	QueryLength  int                `json:"query_length"`
	Filters      types.Filters      `json:"filters"`
	SearchType   types.SearchType   `json:"search_type"`
}

func (w wireRecord) record() types.SearchAnalyticsRecord {
	ts, _ := parseTimestamp(w.Timestamp)
	return types.SearchAnalyticsRecord{
		ID:           w.ID,
		Timestamp:    ts,
		Query:        w.Query,
		Enhanced:     w.Enhanced,
		ResponseTime: max(w.ResponseTime, 0),
		Confidence:   types.Clamp01(w.Confidence),
		ResultCount:  max(w.ResultCount, 0),
		Status:       w.Status,
		Explanation:  w.Explanation,
		QueryLength:  w.QueryLength,
		Filters:      w.Filters,
		SearchType:   w.SearchType,
	}
}

type wireSummary struct {
	TotalSearches       int     `json:"total_searches"`
	EnhancementRate     float64 `json:"ml_enhancement_rate"`
	AverageResponseTime float64 `json:"average_response_time"`
	AverageConfidence   float64 `json:"average_confidence"`
	SuccessRate         float64 `json:"success_rate"`
	SearchesToday       int     `json:"searches_today"`
	AverageQueryLength  float64 `json:"average_query_length"`
	LastSearchTime      *string `json:"last_search_time"`
}

type wireBucket struct {
	Hour                int     `json:"hour"`
	Timestamp           string  `json:"timestamp"`
	Count               int     `json:"search_count"`
	AverageResponseTime float64 `json:"average_response_time"`
	EnhancementRate     float64 `json:"ml_enhancement_rate"`
	AverageConfidence   float64 `json:"average_confidence"`
}

func (c *remoteClient) record(ctx context.Context, in types.RecordInput) (*types.SearchAnalyticsRecord, error) {
	var env envelope[*wireRecord]
	if err := c.http.PostJSON(ctx, c.endpoint+"/record", in, &env); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("record: %w: %s", errRejected, env.Error)
	}
	if env.Data == nil || env.Data.ID == "" {
		return nil, fmt.Errorf("record: %w", errNoID)
	}
	rec := env.Data.record()
	return &rec, nil
}

func (c *remoteClient) summary(ctx context.Context) (types.AnalyticsSummary, error) {
	var env envelope[*wireSummary]
	if err := c.get(ctx, "/summary", &env.Success, &env); err != nil {
		return types.AnalyticsSummary{}, err
	}
	if env.Data == nil {
		return types.AnalyticsSummary{}, fmt.Errorf("summary: %w", errRejected)
	}
	w := env.Data
	s := types.AnalyticsSummary{
		TotalSearches:       max(w.TotalSearches, 0),
		EnhancementRate:     clampPercent(w.EnhancementRate),
		AverageResponseTime: max(w.AverageResponseTime, 0),
		AverageConfidence:   clampPercent(w.AverageConfidence),
		SuccessRate:         clampPercent(w.SuccessRate),
		SearchesToday:       max(w.SearchesToday, 0),
		AverageQueryLength:  max(w.AverageQueryLength, 0),
	}
	if w.LastSearchTime != nil {
		if t, ok := parseTimestamp(*w.LastSearchTime); ok {
			s.LastSearchTime = &t
		}
	}
	return s, nil
}

func (c *remoteClient) history(ctx context.Context) ([]types.SearchAnalyticsRecord, error) {
	var env envelope[[]wireRecord]
	if err := c.get(ctx, "/history", &env.Success, &env); err != nil {
		return nil, err
	}
	out := make([]types.SearchAnalyticsRecord, 0, len(env.Data))
	for _, w := range env.Data {
		out = append(out, w.record())
	}
	return out, nil
}

func (c *remoteClient) hourly(ctx context.Context) ([]types.HourlyBucket, error) {
	var env envelope[[]wireBucket]
	if err := c.get(ctx, "/hourly", &env.Success, &env); err != nil {
		return nil, err
	}
	if len(env.Data) != 24 {
		return nil, fmt.Errorf("hourly: got %d buckets, want 24", len(env.Data))
	}
	out := make([]types.HourlyBucket, len(env.Data))
	for i, w := range env.Data {
		ts, _ := parseTimestamp(w.Timestamp)
		out[i] = types.HourlyBucket{
			Hour:                w.Hour,
			Timestamp:           ts,
			Count:               max(w.Count, 0),
			AverageResponseTime: max(w.AverageResponseTime, 0),
			EnhancementRate:     types.Clamp01(w.EnhancementRate),
			AverageConfidence:   types.Clamp01(w.AverageConfidence),
		}
	}
	return out, nil
}

// get fetches path into env and checks the success flag.
func (c *remoteClient) get(ctx context.Context, path string, success *bool, env any) error {
	if err := c.http.GetJSON(ctx, c.endpoint+path, nil, env); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !*success {
		return fmt.Errorf("%s: %w", path, errRejected)
	}
	return nil
}

func clampPercent(v float64) float64 {
	return types.Clamp01(v/100) * 100
}

// parseTimestamp accepts RFC 3339 and naive ISO timestamps. Naive values are
// read in local time.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
