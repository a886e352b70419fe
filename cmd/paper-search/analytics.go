// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Inspect recorded search analytics",
	Long: `Analytics reads the search events recorded by previous searches. Views
come from the remote analytics service when one is configured and reachable,
and from the local store otherwise.`,
}

var analyticsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print totals, rates and averages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyticsView(cmd, func(a *app, cmd *cobra.Command) (any, error) {
			return a.recorder.Summary(cmd.Context())
		})
	},
}

var analyticsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recorded search events, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyticsView(cmd, func(a *app, cmd *cobra.Command) (any, error) {
			hist, err := a.recorder.History(cmd.Context())
			if err != nil {
				return nil, err
			}
			if n, _ := cmd.Flags().GetInt("limit"); n > 0 && len(hist) > n {
				hist = hist[:n]
			}
			return hist, nil
		})
	},
}

var analyticsHourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Print per-hour statistics for the last 24 hours",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyticsView(cmd, func(a *app, cmd *cobra.Command) (any, error) {
			return a.recorder.Hourly(cmd.Context())
		})
	},
}

var analyticsTrendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Print the most searched terms of the last week",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyticsView(cmd, func(a *app, cmd *cobra.Command) (any, error) {
			n, _ := cmd.Flags().GetInt("limit")
			return a.recorder.Trending(cmd.Context(), n)
		})
	},
}

var analyticsPerformanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Compare enhanced and basic searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyticsView(cmd, func(a *app, cmd *cobra.Command) (any, error) {
			return a.recorder.Performance(cmd.Context())
		})
	},
}

var analyticsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every analytics view to one file",
	RunE:  runAnalyticsExport,
}

var analyticsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded events and counters",
	RunE:  runAnalyticsClear,
}

var analyticsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print analytics changes as they happen",
	Long: `Watch prints a line for every analytics change: events recorded by this
process, and writes made by other processes sharing the store or the Redis
channel. It runs until interrupted.`,
	RunE: runAnalyticsWatch,
}

func init() {
	for _, c := range []*cobra.Command{analyticsSummaryCmd, analyticsHistoryCmd, analyticsHourlyCmd, analyticsTrendingCmd, analyticsPerformanceCmd} {
		c.Flags().Bool("json", false, "print as JSON instead of YAML")
	}
	analyticsHistoryCmd.Flags().Int("limit", 20, "maximum number of events")
	analyticsTrendingCmd.Flags().Int("limit", analytics.DefaultTrendingLimit, "maximum number of terms")
	analyticsExportCmd.Flags().StringP("output", "o", "", "output file (default stdout); a .yaml or .yml suffix selects YAML")
	analyticsClearCmd.Flags().Bool("yes", false, "confirm deletion")

	analyticsCmd.AddCommand(analyticsSummaryCmd, analyticsHistoryCmd, analyticsHourlyCmd,
		analyticsTrendingCmd, analyticsPerformanceCmd, analyticsExportCmd, analyticsClearCmd, analyticsWatchCmd)
	rootCmd.AddCommand(analyticsCmd)
}

func analyticsView(cmd *cobra.Command, view func(*app, *cobra.Command) (any, error)) error {
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := view(a, cmd)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return writeYAML(cmd.OutOrStdout(), v)
}

func runAnalyticsExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.recorder.Export(cmd.Context())
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = writeYAML(w, snap)
	} else {
		err = writeJSON(w, snap)
	}
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", snap.Metadata.RecordCount, path)
	}
	return nil
}

func runAnalyticsClear(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to clear analytics without --yes")
	}
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.recorder.Clear(cmd.Context()); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(cmd.ErrOrStderr(), "Analytics cleared.")
	return nil
}

func runAnalyticsWatch(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	changes := a.recorder.Broker().Subscribe(ctx)
	defer a.startFollow(ctx)()

	out := cmd.OutOrStdout()
	kind := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintln(cmd.ErrOrStderr(), "Watching analytics changes; press Ctrl-C to stop.")
	for c := range changes {
		line := fmt.Sprintf("%s  %s", c.At.Local().Format("15:04:05"), kind(c.Kind))
		if c.RecordID != "" {
			line += "  " + c.RecordID
		}
		if c.Origin != "" {
			line += "  from " + c.Origin
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
