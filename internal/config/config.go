// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the paper-search configuration from viper: file
// values, PAPER_SEARCH_* environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-search/pkg/types"
)

// EnvPrefix is the prefix for environment overrides, e.g. PAPER_SEARCH_STORE_PATH.
const EnvPrefix = "PAPER_SEARCH"

// Name is the config file base name searched for in . and ~/.config/paper-search/.
const Name = "paper-search"

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("search.timeout", 12*time.Second)
	v.SetDefault("search.user_agent", "paper-search/0.1")
	v.SetDefault("search.page_size", 20)
	v.SetDefault("search.enable_pubmed", true)
	v.SetDefault("search.enable_semantic_scholar", true)
	v.SetDefault("search.semantic_scholar_api_key", "")
	v.SetDefault("search.ncbi_api_key", "")
	v.SetDefault("search.ncbi_email", "")

	v.SetDefault("merge.duplicate_threshold", 0.8)

	v.SetDefault("enhancer.timeout", 5*time.Second)
	v.SetDefault("enhancer.user_agent", "paper-search/0.1")
	v.SetDefault("enhancer.endpoint", "")
	v.SetDefault("enhancer.history_limit", 100)

	v.SetDefault("analytics.timeout", 5*time.Second)
	v.SetDefault("analytics.user_agent", "paper-search/0.1")
	v.SetDefault("analytics.endpoint", "")
	v.SetDefault("analytics.history_limit", 100)
	v.SetDefault("analytics.redis_addr", "")
	v.SetDefault("analytics.redis_channel", "paper-search:analytics")
	v.SetDefault("analytics.watch_interval", 2*time.Second)

	v.SetDefault("store.path", filepath.Join("data", "paper-search.db"))
	v.SetDefault("dashboard.addr", ":8090")
	v.SetDefault("log.level", "info")
}

// Configure points v at the config file (explicit path, or the default
// search locations) and enables environment overrides. It does not read.
func Configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and unmarshals v into a Config. Out-of-range values
// are replaced by their defaults.
func Load(v *viper.Viper) (types.Config, error) {
	SetDefaults(v)

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *types.Config) {
	if cfg.Search.PageSize <= 0 {
		cfg.Search.PageSize = 20
	}
	if cfg.Search.Timeout <= 0 {
		cfg.Search.Timeout = 12 * time.Second
	}
	if t := cfg.Merge.DuplicateThreshold; t <= 0 || t > 1 {
		cfg.Merge.DuplicateThreshold = 0.8
	}
	if cfg.Enhancer.Timeout <= 0 {
		cfg.Enhancer.Timeout = 5 * time.Second
	}
	if cfg.Enhancer.HistoryLimit <= 0 {
		cfg.Enhancer.HistoryLimit = 100
	}
	if cfg.Analytics.Timeout <= 0 {
		cfg.Analytics.Timeout = 5 * time.Second
	}
	if cfg.Analytics.HistoryLimit <= 0 {
		cfg.Analytics.HistoryLimit = 100
	}
	if cfg.Analytics.WatchInterval <= 0 {
		cfg.Analytics.WatchInterval = 2 * time.Second
	}
	cfg.Enhancer.Endpoint = strings.TrimRight(cfg.Enhancer.Endpoint, "/")
	cfg.Analytics.Endpoint = strings.TrimRight(cfg.Analytics.Endpoint, "/")
}
