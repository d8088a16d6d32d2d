package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/orchestrator"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/probes"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// ScanCommand implements the 'cleaner scan' command
type ScanCommand struct {
	Config *config.Config
	Output string
	Kinds  string
}

// Run executes the scan command
func (cmd *ScanCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Printf("Scanning %s for idle resources...\n\n",
		strings.Join(cmd.Config.AWS.Regions, ", "))

	registry, err := probes.New(ctx, cmd.Config.AWS, cmd.Config.Scan.IdleDays)
	if err != nil {
		return fmt.Errorf("failed to build probes: %w", err)
	}

	probeSet, err := cmd.filterKinds(registry.ProbeSet())
	if err != nil {
		return err
	}

	orch := orchestrator.New(probeSet).
		WithMaxInFlight(cmd.Config.Scan.MaxInFlight).
		WithProbeTimeout(cmd.Config.Scan.ProbeTimeout)

	report := orch.RunScan(ctx, cmd.Config.AWS.Regions)

	switch cmd.Output {
	case "json":
		return cmd.outputJSON(report)
	default:
		return cmd.outputTable(report)
	}
}

// filterKinds narrows the probe set to the kinds requested via --kinds.
func (cmd *ScanCommand) filterKinds(full orchestrator.ProbeSet) (orchestrator.ProbeSet, error) {
	if cmd.Kinds == "" {
		return full, nil
	}

	filtered := orchestrator.ProbeSet{}
	for _, raw := range strings.Split(cmd.Kinds, ",") {
		kind := types.ResourceKind(strings.TrimSpace(raw))
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown resource kind %q", kind)
		}
		filtered[kind] = full[kind]
	}
	return filtered, nil
}

func (cmd *ScanCommand) outputJSON(report *types.ScanReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// outputTable displays results in a table, most expensive first
func (cmd *ScanCommand) outputTable(report *types.ScanReport) error {
	var resources []types.ResourceRecord
	for _, outcome := range report.Outcomes {
		resources = append(resources, outcome.Resources...)
	}

	fmt.Printf("Scan Summary:\n")
	fmt.Printf("   Targets checked: %d\n", len(report.Outcomes))
	fmt.Printf("   Idle resources:  %d\n", report.TotalResources)
	fmt.Printf("   Est. savings:    $%.2f/month\n", report.TotalEstimatedSavings)
	fmt.Printf("\n")

	if len(resources) > 0 {
		sort.Slice(resources, func(i, j int) bool {
			return resources[i].EstimatedMonthlyCost > resources[j].EstimatedMonthlyCost
		})

		fmt.Printf("Idle Resources:\n")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RESOURCE\tNAME\tKIND\tREGION\tEST. $/MO")
		_, _ = fmt.Fprintln(w, "--------\t----\t----\t------\t---------")
		for _, r := range resources {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
				truncate(r.ID, 28),
				truncate(r.Name, 24),
				r.Kind,
				r.Region,
				r.EstimatedMonthlyCost,
			)
		}
		_ = w.Flush()
		fmt.Printf("\n")
	} else {
		fmt.Println("No idle resources found.")
	}

	failed := report.FailedTargets()
	if failed > 0 {
		fmt.Printf("Failed checks (%d):\n", failed)
		for _, outcome := range report.Outcomes {
			if outcome.Status == types.StatusFailed {
				fmt.Printf("   %s/%s: %s\n", outcome.Target.Region, outcome.Target.Kind, outcome.Error)
			}
		}
		fmt.Printf("\n")
	}

	if report.TotalFailure {
		return fmt.Errorf("scan failed: all %d checks errored", failed)
	}

	fmt.Printf("Safety: Cloud Cleaner NEVER deletes resources. It only detects and reports.\n")
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
