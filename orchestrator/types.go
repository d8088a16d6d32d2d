package orchestrator

import (
	"context"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// ProbeFunc performs one categorized scan: one resource kind in one region.
// Failures are returned as errors; the orchestrator converts them into
// failed outcomes and never lets them abort sibling targets.
type ProbeFunc func(ctx context.Context, region string, kind types.ResourceKind) ([]types.ResourceRecord, error)

// ProbeSet maps resource kinds to their probes. Built once at startup and
// injected, so tests substitute fakes trivially.
type ProbeSet map[types.ResourceKind]ProbeFunc
