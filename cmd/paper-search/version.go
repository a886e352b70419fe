// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/analytics"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of paper-search",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "paper-search %s (analytics format %s)\n", version, analytics.SnapshotVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
