package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/internal/daemon"
)

var (
	serveListenAddr  string
	serveMetricsAddr string
	serveStorePath   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard backend with scheduled scans",
	Long: `Run Cloud Cleaner as a long-lived service.

The service exposes a REST API for managing the scan schedule and
notification channels, runs scheduled scans in the background, and
serves Prometheus metrics.

Features:
- Live-reconfigurable scan schedule (hourly, daily, weekly, custom)
- Slack and email notifications with per-channel delivery status
- Scan history with savings estimates
- Prometheus metrics on /metrics, health on /health and /-/ready
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  cleaner serve                          # Run with defaults
  cleaner serve --config cleaner.yaml    # Full configuration
  cleaner serve --listen :8080           # Custom API port
  cleaner serve --store ./data/clean.db  # Custom store location`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "API listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics", "", "Metrics listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveStorePath, "store", "", "Schedule store path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListenAddr != "" {
		cfg.Server.ListenAddr = serveListenAddr
	}
	if serveMetricsAddr != "" {
		cfg.Server.MetricsAddr = serveMetricsAddr
	}
	if serveStorePath != "" {
		cfg.Store.Path = serveStorePath
	}

	ctx := context.Background()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	d, err := daemon.New(initCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() { _ = d.Close() }()

	fmt.Printf("Cloud Cleaner serving\n")
	fmt.Printf("   API:     http://localhost%s/api/v1\n", cfg.Server.ListenAddr)
	fmt.Printf("   Metrics: http://localhost%s/metrics\n", cfg.Server.MetricsAddr)
	fmt.Printf("   Regions: %v\n\n", cfg.AWS.Regions)

	return d.Run(ctx)
}
