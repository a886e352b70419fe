package types

import "time"

// HTTPConfig holds shared HTTP settings used by every component that makes
// outbound requests.
type HTTPConfig struct {
	// Timeout bounds each outbound call. A hung upstream never stalls a search
	// longer than this.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-search/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the multi-source search connector.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PageSize is the number of merged papers shown per page (default 20).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// EnablePubMed controls whether the biomedical source is queried.
	EnablePubMed bool `json:"enable_pubmed" yaml:"enable_pubmed" mapstructure:"enable_pubmed"`

	// EnableSemanticScholar controls whether the general-academic source is queried.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// NCBIAPIKey raises the E-utilities rate limit from 3 to 10 requests per second.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`

	// NCBIEmail is sent as the E-utilities email parameter.
	NCBIEmail string `json:"ncbi_email,omitempty" yaml:"ncbi_email,omitempty" mapstructure:"ncbi_email"`
}

// MergeConfig holds the hand-tuned merge constants.
type MergeConfig struct {
	// DuplicateThreshold is the title-token overlap above which a paper is a duplicate (default 0.8).
	DuplicateThreshold float64 `json:"duplicate_threshold" yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"`
}

// EnhancerConfig holds settings for the query enhancer.
type EnhancerConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the base URL of the remote enhancement service
	// (e.g. "http://localhost:5000/api/ml"). Empty disables the remote tier.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// HistoryLimit caps the stored query-interaction history (default 100).
	HistoryLimit int `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`
}

// AnalyticsConfig holds settings for the analytics recorder.
type AnalyticsConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the base URL of the remote analytics service
	// (e.g. "http://localhost:5000/api/analytics"). Empty means local-only.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// HistoryLimit caps the stored event history (default 100).
	HistoryLimit int `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`

	// RedisAddr enables cross-process change broadcasting when set.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`

	// RedisChannel is the pub/sub channel used for change broadcasts.
	RedisChannel string `json:"redis_channel" yaml:"redis_channel" mapstructure:"redis_channel"`

	// WatchInterval is how often the local store is polled for writes by other processes.
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// StoreConfig locates the durable local store.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/paper-search.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// DashboardConfig holds settings for the analytics dashboard server.
type DashboardConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig selects the diagnostic log level.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config groups every component configuration.
type Config struct {
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Merge     MergeConfig     `json:"merge" yaml:"merge" mapstructure:"merge"`
	Enhancer  EnhancerConfig  `json:"enhancer" yaml:"enhancer" mapstructure:"enhancer"`
	Analytics AnalyticsConfig `json:"analytics" yaml:"analytics" mapstructure:"analytics"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard" mapstructure:"dashboard"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
