// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the analytics views over HTTP",
	Long: `Dashboard serves the analytics summary, history, hourly statistics,
trending terms, performance metrics and export as JSON under /api/analytics/,
plus a server-sent event stream of changes at /api/analytics/events.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().String("addr", "", "listen address (default from config, :8090)")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Dashboard.Addr
	}

	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptible(cmd.Context())
	defer stop()
	defer a.startFollow(ctx)()

	gin.SetMode(gin.ReleaseMode)
	dashboard.Version = version
	srv := dashboard.New(a.recorder, a.recorder.Broker(), log)
	return srv.ListenAndServe(ctx, addr)
}
