// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-search CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/paper-search/internal/config"
	"github.com/pdiddy/paper-search/internal/secrets"
	"github.com/pdiddy/paper-search/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	v   = viper.New()
	cfg types.Config
	log = zap.NewNop()
)

// rootCmd is the base command for the paper-search CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-search",
	Short: "Search biomedical and academic literature with query enhancement",
	Long: `paper-search rewrites a natural-language question into a structured
literature query, searches PubMed and Semantic Scholar in parallel, merges
and deduplicates the results, and records search analytics locally.

Configuration is read from paper-search.yaml in the working directory or
~/.config/paper-search/, overridden by PAPER_SEARCH_* environment variables.
API keys may also be placed in .secrets/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-search.yaml or ~/.config/paper-search/paper-search.yaml)")
	rootCmd.PersistentFlags().String("store", "", "SQLite file for history and analytics (default data/paper-search.db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log diagnostics at debug level")

	_ = v.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
}

// setup resolves configuration, the logger and secrets before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("config")
	config.Configure(v, file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	l, err := newLogger(c.Log.Level, verbose)
	if err != nil {
		return err
	}
	log = l
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("using config file", zap.String("path", used))
	}

	s, err := secrets.Load(secrets.DefaultDir, log)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		log.Debug("loaded secrets", zap.Int("count", len(s)))
	}
	c.Search.SemanticScholarAPIKey = s.Get(secrets.SemanticScholarAPIKey, c.Search.SemanticScholarAPIKey)
	c.Search.NCBIAPIKey = s.Get(secrets.NCBIAPIKey, c.Search.NCBIAPIKey)
	c.Search.NCBIEmail = s.Get(secrets.NCBIEmail, c.Search.NCBIEmail)

	cfg = c
	return nil
}

// newLogger builds a stderr logger. verbose forces debug level with the
// human-readable development encoder.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
		level = "debug"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
