package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Summary renders the one-line headline used by every channel.
func Summary(report *types.ScanReport) string {
	if report.TotalFailure {
		return fmt.Sprintf("Scan failed: all %d checks errored", len(report.Outcomes))
	}

	headline := fmt.Sprintf("Found %d unused AWS resources. Potential savings: $%.2f/month",
		report.TotalResources, report.TotalEstimatedSavings)

	if report.PartialFailure {
		headline += fmt.Sprintf(" (finished with %d of %d checks failing)",
			report.FailedTargets(), len(report.Outcomes))
	}
	return headline
}

// kindLabel maps resource kinds to the names shown in notifications.
func kindLabel(kind types.ResourceKind) string {
	switch kind {
	case types.KindEC2:
		return "Stopped EC2 Instances"
	case types.KindEBS:
		return "Unattached EBS Volumes"
	case types.KindS3:
		return "Unused S3 Buckets"
	case types.KindIAMRole:
		return "Dormant IAM Roles"
	case types.KindIAMUser:
		return "Dormant IAM Users"
	case types.KindAccessKey:
		return "Stale Access Keys"
	}
	return string(kind)
}

// regionBreakdown renders "region: count" lines for one kind, empty when
// the kind is global or nothing was found.
func regionBreakdown(report *types.ScanReport, kind types.ResourceKind) string {
	if kind.IsGlobal() {
		return ""
	}
	byRegion := report.CountByRegion(kind)
	if len(byRegion) == 0 {
		return ""
	}

	var b strings.Builder
	for _, region := range sortedRegions(byRegion) {
		fmt.Fprintf(&b, "• %s: %d\n", region, byRegion[region])
	}
	return b.String()
}

func sortedRegions(byRegion map[string]int) []string {
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}
