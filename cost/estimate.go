// Package cost provides rough monthly cost estimates for idle resources.
// The numbers are deliberately coarse dashboard figures, not billing data.
package cost

import "github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"

// Flat-rate monthly estimates in USD.
const (
	stoppedInstanceMonthly = 50.0 // EBS-backed stopped instance, storage + EIP drag
	ebsPerGBMonthly        = 0.10 // gp2/gp3 ballpark
	unusedBucketMonthly    = 5.0
)

// MonthlyEstimate returns the estimated monthly cost of keeping one idle
// resource around. sizeGB is only meaningful for volume-like kinds; pass 0
// otherwise.
func MonthlyEstimate(kind types.ResourceKind, sizeGB int) float64 {
	switch kind {
	case types.KindEC2:
		return stoppedInstanceMonthly
	case types.KindEBS:
		if sizeGB <= 0 {
			sizeGB = 100
		}
		return ebsPerGBMonthly * float64(sizeGB)
	case types.KindS3:
		return unusedBucketMonthly
	default:
		// IAM entities are free; they are hygiene findings, not cost savings.
		return 0
	}
}
