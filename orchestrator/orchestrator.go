// Package orchestrator runs the multi-region idle-resource sweep: all
// probes concurrently under a bound, each with its own timeout, joined into
// one ScanReport that classifies partial and total failures.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/telemetry"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

const (
	defaultMaxInFlight  = 8
	defaultProbeTimeout = 30 * time.Second
)

// timeoutError is the outcome error for targets that exceed the per-target
// deadline.
const timeoutError = "timeout"

// Orchestrator coordinates the target fan-out → probe → aggregate flow.
type Orchestrator struct {
	probes       ProbeSet
	maxInFlight  int
	probeTimeout time.Duration
	logger       *telemetry.Logger
}

// New creates an orchestrator over an explicit probe set.
func New(probes ProbeSet) *Orchestrator {
	return &Orchestrator{
		probes:       probes,
		maxInFlight:  defaultMaxInFlight,
		probeTimeout: defaultProbeTimeout,
		logger:       telemetry.NewLogger("orchestrator"),
	}
}

// WithMaxInFlight bounds how many probes run concurrently.
func (o *Orchestrator) WithMaxInFlight(n int) *Orchestrator {
	if n > 0 {
		o.maxInFlight = n
	}
	return o
}

// WithProbeTimeout sets the per-target deadline.
func (o *Orchestrator) WithProbeTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.probeTimeout = d
	}
	return o
}

// BuildTargets expands the region set into the full target list: regional
// kinds once per region, global kinds exactly once. Duplicate regions are
// collapsed so no (region, kind) pair appears twice.
func (o *Orchestrator) BuildTargets(regions []string) []types.ScanTarget {
	seen := make(map[string]bool, len(regions))
	var unique []string
	for _, r := range regions {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
	}

	var targets []types.ScanTarget
	for _, kind := range types.AllKinds {
		if _, ok := o.probes[kind]; !ok {
			continue
		}
		if kind.IsGlobal() {
			targets = append(targets, types.ScanTarget{Region: types.GlobalRegion, Kind: kind})
			continue
		}
		for _, region := range unique {
			targets = append(targets, types.ScanTarget{Region: region, Kind: kind})
		}
	}
	return targets
}

// RunScan sweeps every target and returns after all of them reach a
// terminal state. Probe errors, panics, and timeouts become failed
// outcomes; they never cancel sibling targets and never surface as an
// error from this call. The report is the only side effect.
func (o *Orchestrator) RunScan(ctx context.Context, regions []string) *types.ScanReport {
	report := &types.ScanReport{StartedAt: time.Now()}
	targets := o.BuildTargets(regions)

	o.logger.LogScanStart(ctx, regions, len(targets))

	outcomes := make([]types.ScanOutcome, len(targets))
	sem := make(chan struct{}, o.maxInFlight)
	done := make(chan int)

	for i, target := range targets {
		go func(idx int, t types.ScanTarget) {
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[idx] = o.probeTarget(ctx, t)
			done <- idx
		}(i, target)
	}

	// Full join: every target reports a terminal state before we return.
	for range targets {
		<-done
	}

	report.Outcomes = outcomes
	report.Finalize(time.Now())

	o.logger.LogScanComplete(ctx, report.TotalResources, report.FailedTargets(),
		float64(report.CompletedAt.Sub(report.StartedAt).Milliseconds()))

	return report
}

// probeTarget runs one probe under the per-target deadline. A probe that
// overruns its deadline is abandoned; its goroutine drains on the result
// channel buffer once it eventually returns.
func (o *Orchestrator) probeTarget(ctx context.Context, target types.ScanTarget) types.ScanOutcome {
	probe := o.probes[target.Kind]

	probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	type probeResult struct {
		resources []types.ResourceRecord
		err       error
	}
	resultCh := make(chan probeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- probeResult{err: fmt.Errorf("probe panic: %v", r)}
			}
		}()
		resources, err := probe(probeCtx, target.Region, target.Kind)
		resultCh <- probeResult{resources: resources, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			o.logger.Warn().
				Str("region", target.Region).
				Str("kind", string(target.Kind)).
				Err(res.err).
				Msg("probe failed")
			return types.ScanOutcome{Target: target, Status: types.StatusFailed, Error: res.err.Error()}
		}
		return types.ScanOutcome{Target: target, Status: types.StatusOK, Resources: res.resources}
	case <-probeCtx.Done():
		errMsg := timeoutError
		if ctx.Err() != nil {
			// Parent cancellation (shutdown), not a per-target overrun.
			errMsg = ctx.Err().Error()
		}
		o.logger.Warn().
			Str("region", target.Region).
			Str("kind", string(target.Kind)).
			Dur("timeout", o.probeTimeout).
			Msg("probe timed out")
		return types.ScanOutcome{Target: target, Status: types.StatusFailed, Error: errMsg}
	}
}
