// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchStatus is the outcome recorded for a search event.
type SearchStatus string

const (
	StatusSuccess SearchStatus = "success"
	StatusError   SearchStatus = "error"
)

// SearchType distinguishes a fresh search from a pagination request.
type SearchType string

const (
	SearchTypeNew      SearchType = "new_search"
	SearchTypeLoadMore SearchType = "load_more"
)

// RecordInput is the flat event the session controller hands to the analytics
// recorder. Numeric fields are clamped and defaulted by the recorder.
type RecordInput struct {
	Query        string       `json:"query"`
	Enhanced     bool         `json:"ml_enhanced"`
	ResponseTime *float64     `json:"response_time,omitempty"`
	Confidence   *float64     `json:"confidence,omitempty"`
	ResultCount  *int         `json:"result_count,omitempty"`
	Status       SearchStatus `json:"status"`
	Explanation  []string     `json:"explanation"`
	Filters      Filters      `json:"filters"`
	SearchType   SearchType   `json:"search_type"`
}

// SearchAnalyticsRecord is one persisted search event.
type SearchAnalyticsRecord struct {
	ID           string       `json:"id" yaml:"id"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
	Query        string       `json:"query" yaml:"query"`
	Enhanced     bool         `json:"ml_enhanced" yaml:"ml_enhanced"`
	ResponseTime float64      `json:"response_time" yaml:"response_time"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	ResultCount  int          `json:"result_count" yaml:"result_count"`
	Status       SearchStatus `json:"status" yaml:"status"`
	Explanation  []string     `json:"explanation" yaml:"explanation"`
	QueryLength  int          `json:"query_length" yaml:"query_length"`
	Filters      Filters      `json:"filters" yaml:"filters"`
	SearchType   SearchType   `json:"search_type" yaml:"search_type"`
}

// Aggregates are the running analytics counters. They only grow; history
// eviction never touches them.
type Aggregates struct {
	TotalSearches      int       `json:"total_searches" yaml:"total_searches"`
	EnhancedSearches   int       `json:"ml_enhanced_searches" yaml:"ml_enhanced_searches"`
	TotalResponseTime  float64   `json:"total_response_time" yaml:"total_response_time"`
	TotalConfidence    float64   `json:"total_confidence" yaml:"total_confidence"`
	SuccessfulSearches int       `json:"successful_searches" yaml:"successful_searches"`
	LastUpdated        time.Time `json:"last_updated" yaml:"last_updated"`
}

// AnalyticsSummary is derived from Aggregates and history on every read.
// Rates and the average confidence are percentages in [0,100].
type AnalyticsSummary struct {
	TotalSearches       int        `json:"total_searches" yaml:"total_searches"`
	EnhancementRate     float64    `json:"ml_enhancement_rate" yaml:"ml_enhancement_rate"`
	AverageResponseTime float64    `json:"average_response_time" yaml:"average_response_time"`
	AverageConfidence   float64    `json:"average_confidence" yaml:"average_confidence"`
	SuccessRate         float64    `json:"success_rate" yaml:"success_rate"`
	SearchesToday       int        `json:"searches_today" yaml:"searches_today"`
	AverageQueryLength  float64    `json:"average_query_length" yaml:"average_query_length"`
	LastSearchTime      *time.Time `json:"last_search_time,omitempty" yaml:"last_search_time,omitempty"`
}

// HourlyBucket aggregates the events of one clock hour.
type HourlyBucket struct {
	Hour                int       `json:"hour" yaml:"hour"`
	Timestamp           time.Time `json:"timestamp" yaml:"timestamp"`
	Count               int       `json:"search_count" yaml:"search_count"`
	AverageResponseTime float64   `json:"average_response_time" yaml:"average_response_time"`
	EnhancementRate     float64   `json:"ml_enhancement_rate" yaml:"ml_enhancement_rate"`
	AverageConfidence   float64   `json:"average_confidence" yaml:"average_confidence"`
}

// TrendingTerm is a frequently searched word over the last week.
type TrendingTerm struct {
	Term       string  `json:"term" yaml:"term"`
	Count      int     `json:"count" yaml:"count"`
	TrendScore float64 `json:"trend_score" yaml:"trend_score"`
}

// Percentiles of response time, in milliseconds.
type Percentiles struct {
	P50 float64 `json:"p50" yaml:"p50"`
	P95 float64 `json:"p95" yaml:"p95"`
	P99 float64 `json:"p99" yaml:"p99"`
}

// PerformanceMetrics compares enhanced and basic searches over the history window.
type PerformanceMetrics struct {
	ResponseTime       Percentiles `json:"response_time_percentiles" yaml:"response_time_percentiles"`
	EnhancedAvgResults float64     `json:"ml_avg_results" yaml:"ml_avg_results"`
	BasicAvgResults    float64     `json:"non_ml_avg_results" yaml:"non_ml_avg_results"`
	ImprovementFactor  float64     `json:"improvement_factor" yaml:"improvement_factor"`
	ErrorRate          float64     `json:"error_rate" yaml:"error_rate"`
	TotalSearches      int         `json:"total_searches" yaml:"total_searches"`
	EnhancedCount      int         `json:"ml_enhanced_count" yaml:"ml_enhanced_count"`
	CompleteRecords    int         `json:"complete_records" yaml:"complete_records"`
	IncompleteRecords  int         `json:"incomplete_records" yaml:"incomplete_records"`
}

// SnapshotMetadata describes an analytics export.
type SnapshotMetadata struct {
	RecordCount int       `json:"record_count" yaml:"record_count"`
	ExportedAt  time.Time `json:"export_timestamp" yaml:"export_timestamp"`
	Version     string    `json:"version" yaml:"version"`
}

// AnalyticsSnapshot bundles every analytics view into one serializable object.
type AnalyticsSnapshot struct {
	Metadata    SnapshotMetadata        `json:"metadata" yaml:"metadata"`
	Summary     AnalyticsSummary        `json:"summary" yaml:"summary"`
	Aggregates  Aggregates              `json:"analytics_data" yaml:"analytics_data"`
	History     []SearchAnalyticsRecord `json:"search_history" yaml:"search_history"`
	Hourly      []HourlyBucket          `json:"hourly_stats" yaml:"hourly_stats"`
	Trending    []TrendingTerm          `json:"trending_terms" yaml:"trending_terms"`
	Performance PerformanceMetrics      `json:"performance_metrics" yaml:"performance_metrics"`
}
