// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/paper-search/pkg/types"
)

// summarize derives the dashboard summary. Totals and averages come from the
// aggregates; today's count, query length and last search come from history.
func summarize(agg types.Aggregates, history []types.SearchAnalyticsRecord, now time.Time) types.AnalyticsSummary {
	var s types.AnalyticsSummary
	if agg.TotalSearches == 0 && len(history) == 0 {
		return s
	}

	s.TotalSearches = agg.TotalSearches
	if n := float64(agg.TotalSearches); n > 0 {
		s.EnhancementRate = float64(agg.EnhancedSearches) / n * 100
		s.AverageResponseTime = math.Round(agg.TotalResponseTime / n)
		s.AverageConfidence = math.Round(agg.TotalConfidence / n * 100)
		s.SuccessRate = math.Round(float64(agg.SuccessfulSearches) / n * 100)
	}

	y, m, d := now.Date()
	words := 0
	for _, r := range history {
		ry, rm, rd := r.Timestamp.In(now.Location()).Date()
		if ry == y && rm == m && rd == d {
			s.SearchesToday++
		}
		words += r.QueryLength
	}
	if len(history) > 0 {
		s.AverageQueryLength = math.Round(float64(words)/float64(len(history))*10) / 10
		last := history[0].Timestamp
		s.LastSearchTime = &last
	}
	return s
}

// hourly returns 24 buckets ending with the hour containing now. An event
// lands in a bucket when both its date and its hour of day match.
func hourly(history []types.SearchAnalyticsRecord, now time.Time) []types.HourlyBucket {
	loc := now.Location()
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, loc)

	buckets := make([]types.HourlyBucket, 24)
	for i := range buckets {
		start := top.Add(-time.Duration(23-i) * time.Hour)
		by, bm, bd := start.Date()

		var count, enhanced int
		var rt, conf float64
		for _, r := range history {
			t := r.Timestamp.In(loc)
			ty, tm, td := t.Date()
			if t.Hour() != start.Hour() || ty != by || tm != bm || td != bd {
				continue
			}
			count++
			rt += r.ResponseTime
			conf += r.Confidence
			if r.Enhanced {
				enhanced++
			}
		}

		b := types.HourlyBucket{Hour: start.Hour(), Timestamp: start, Count: count}
		if count > 0 {
			n := float64(count)
			b.AverageResponseTime = math.Round(rt / n)
			b.EnhancementRate = float64(enhanced) / n
			b.AverageConfidence = conf / n
		}
		buckets[i] = b
	}
	return buckets
}

// trendingWindow bounds which events count toward trending terms.
const trendingWindow = 7 * 24 * time.Hour

// trending counts words longer than three characters across the queries of
// the last week. Ties keep first-seen order, newest event first.
func trending(history []types.SearchAnalyticsRecord, now time.Time, limit int) []types.TrendingTerm {
	cutoff := now.Add(-trendingWindow)

	counts := make(map[string]int)
	var order []string
	recent := 0
	for _, r := range history {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		recent++
		for _, w := range strings.Fields(strings.ToLower(r.Query)) {
			if utf8.RuneCountInString(w) <= 3 {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	if recent == 0 {
		return []types.TrendingTerm{}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	terms := make([]types.TrendingTerm, len(order))
	for i, w := range order {
		terms[i] = types.TrendingTerm{
			Term:       w,
			Count:      counts[w],
			TrendScore: float64(counts[w]) / float64(recent),
		}
	}
	return terms
}

// performance computes response-time percentiles and enhanced-vs-basic
// effectiveness over the history window.
func performance(history []types.SearchAnalyticsRecord) types.PerformanceMetrics {
	var m types.PerformanceMetrics
	m.TotalSearches = len(history)
	if len(history) == 0 {
		return m
	}

	var times []float64
	var enhancedResults, basicResults, basicCount, errCount int
	for _, r := range history {
		if r.ResponseTime > 0 {
			times = append(times, r.ResponseTime)
		}
		if r.Enhanced {
			m.EnhancedCount++
			enhancedResults += r.ResultCount
		} else {
			basicCount++
			basicResults += r.ResultCount
		}
		if r.Status != types.StatusSuccess {
			errCount++
		}
		if complete(r) {
			m.CompleteRecords++
		} else {
			m.IncompleteRecords++
		}
	}

	if len(times) > 0 {
		sort.Float64s(times)
		m.ResponseTime = types.Percentiles{
			P50: times[len(times)/2],
			P95: times[int(float64(len(times))*0.95)],
			P99: times[int(float64(len(times))*0.99)],
		}
	}

	var enhancedAvg, basicAvg float64
	if m.EnhancedCount > 0 {
		enhancedAvg = float64(enhancedResults) / float64(m.EnhancedCount)
	}
	if basicCount > 0 {
		basicAvg = float64(basicResults) / float64(basicCount)
	}
	m.EnhancedAvgResults = round(enhancedAvg, 1)
	m.BasicAvgResults = round(basicAvg, 1)
	if basicAvg > 0 {
		m.ImprovementFactor = round(enhancedAvg/basicAvg, 2)
	}
	m.ErrorRate = round(float64(errCount)/float64(len(history))*100, 2)
	return m
}

// complete reports whether a record carries the fields the dashboard charts need.
func complete(r types.SearchAnalyticsRecord) bool {
	return r.ID != "" && r.Query != "" && !r.Timestamp.IsZero() && r.Status != ""
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
