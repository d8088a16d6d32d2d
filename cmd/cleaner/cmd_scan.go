package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	scanRegions []string
	scanOutput  string
	scanKinds   string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-off scan for idle resources",
	Long: `Scan AWS for idle resources and print what was found.

Covers stopped EC2 instances, unattached EBS volumes, unused S3
buckets, and dormant IAM roles, users, and access keys. Regional
checks run per region; S3 and IAM are checked once per scan.`,
	Example: `  cleaner scan                                 # Scan configured regions
  cleaner scan --region us-west-2              # Scan one region
  cleaner scan --region us-east-1,eu-west-1    # Scan several regions
  cleaner scan --kinds ec2,ebs                 # Only EC2 and EBS checks
  cleaner scan --output json                   # Machine-readable output`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVarP(&scanRegions, "region", "r", nil, "AWS regions to scan (overrides config)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	scanCmd.Flags().StringVar(&scanKinds, "kinds", "", "Comma-separated resource kinds (ec2,ebs,s3,iam_role,iam_user,access_key)")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	validOutputs := []string{"table", "json"}
	if !contains(validOutputs, scanOutput) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			scanOutput, strings.Join(validOutputs, ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(scanRegions) > 0 {
		cfg.AWS.Regions = scanRegions
	}

	scanCommand := &ScanCommand{
		Config: cfg,
		Output: scanOutput,
		Kinds:  scanKinds,
	}
	return scanCommand.Run()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
