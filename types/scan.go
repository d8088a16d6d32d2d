package types

import "time"

// ScanTarget is one unit of probing: one resource kind in one region.
// Global kinds use GlobalRegion as the region.
type ScanTarget struct {
	Region string       `json:"region"`
	Kind   ResourceKind `json:"kind"`
}

// OutcomeStatus is the terminal state of one scan target.
type OutcomeStatus string

const (
	StatusOK     OutcomeStatus = "ok"
	StatusFailed OutcomeStatus = "failed"
)

// ScanOutcome is the result of probing one ScanTarget.
type ScanOutcome struct {
	Target    ScanTarget       `json:"target"`
	Status    OutcomeStatus    `json:"status"`
	Resources []ResourceRecord `json:"resources,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ScanReport aggregates one full sweep. A report exists even when every
// target failed; callers inspect the failure flags rather than an error.
type ScanReport struct {
	StartedAt             time.Time     `json:"started_at"`
	CompletedAt           time.Time     `json:"completed_at"`
	Outcomes              []ScanOutcome `json:"outcomes"`
	TotalResources        int           `json:"total_resources"`
	TotalEstimatedSavings float64       `json:"total_estimated_savings"`
	PartialFailure        bool          `json:"partial_failure"`
	TotalFailure          bool          `json:"total_failure"`
}

// Finalize computes the aggregate fields from the outcomes and stamps the
// completion time. Called once by the orchestrator after the full join.
func (r *ScanReport) Finalize(completedAt time.Time) {
	r.CompletedAt = completedAt

	var ok, failed int
	r.TotalResources = 0
	r.TotalEstimatedSavings = 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed++
			continue
		}
		ok++
		r.TotalResources += len(o.Resources)
		for _, res := range o.Resources {
			r.TotalEstimatedSavings += res.EstimatedMonthlyCost
		}
	}

	r.PartialFailure = failed > 0 && ok > 0
	r.TotalFailure = failed > 0 && ok == 0
}

// FailedTargets returns how many outcomes ended in failure.
func (r *ScanReport) FailedTargets() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// CountByKind sums found resources per kind, handy for notification renderers.
func (r *ScanReport) CountByKind() map[ResourceKind]int {
	counts := make(map[ResourceKind]int)
	for _, o := range r.Outcomes {
		if o.Status != StatusOK {
			continue
		}
		counts[o.Target.Kind] += len(o.Resources)
	}
	return counts
}

// CountByRegion sums found resources of one kind per region.
func (r *ScanReport) CountByRegion(kind ResourceKind) map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		if o.Status != StatusOK || o.Target.Kind != kind {
			continue
		}
		if len(o.Resources) > 0 {
			counts[o.Target.Region] += len(o.Resources)
		}
	}
	return counts
}
