package types

import "time"

// ResourceRecord is one idle resource found during a sweep.
// Records are built fresh on every scan; there is no identity carried
// across scans.
type ResourceRecord struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name,omitempty"`
	Kind                 ResourceKind      `json:"kind"`
	Region               string            `json:"region"`
	EstimatedMonthlyCost float64           `json:"estimated_monthly_cost"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	FoundAt              time.Time         `json:"found_at"`
}
