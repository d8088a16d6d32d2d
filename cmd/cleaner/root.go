package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cleaner",
		Short: "AWS idle-resource scanner with scheduled notifications",
		Long: `Cloud Cleaner - AWS idle-resource scanner

Cloud Cleaner finds idle AWS resources that quietly cost money: stopped
EC2 instances, unattached EBS volumes, unused S3 buckets, and dormant
IAM roles, users, and access keys.

Run one-off scans from the CLI, or serve the dashboard backend with
recurring scheduled scans and Slack/email notifications.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Cloud Cleaner {{.Version}}
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
}

// loadConfig reads the config file when given, or falls back to defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(configPath)
}
