// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-search/pkg/types"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [partial query...]",
	Short: "Suggest query completions",
	Long: `Suggest offers completions from the remote enhancement service when it is
configured, otherwise from the medical vocabulary, recent queries and
trending search terms.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance [query...]",
	Short: "Show how a query would be rewritten",
	Long: `Enhance prints the structured parameters produced for a query: recognized
terms, intents, the rewritten boolean query, confidence and the reasons
behind each adjustment. No paper source is contacted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnhance,
}

func init() {
	suggestCmd.Flags().Bool("json", false, "print suggestions as JSON")
	enhanceCmd.Flags().Bool("json", false, "print parameters as JSON instead of YAML")

	rootCmd.AddCommand(suggestCmd, enhanceCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	got := a.enhancer.Suggest(ctx, strings.Join(args, " "))
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, got)
	}
	if len(got) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No suggestions.")
		return nil
	}
	for _, s := range got {
		fmt.Fprintf(out, "%-40s  %-11s  %.2f  %s\n", s.Text, s.Type, s.Confidence, s.Description)
	}
	return nil
}

func runEnhance(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	limit := cfg.Search.PageSize
	p := a.enhancer.Enhance(ctx, strings.Join(args, " "), types.QueryContext{
		Limit:     limit,
		Timestamp: time.Now(),
	})
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), p)
	}
	return writeYAML(cmd.OutOrStdout(), p)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
