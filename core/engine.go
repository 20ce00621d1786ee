package core

import (
	"context"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// NeighborEngine is the one capability all three analyses implement:
// read a site index, produce tier records. The engines share no
// hierarchy; callers pick one and hand it to the runner.
type NeighborEngine interface {
	// Method names the analysis for records, metrics and logs.
	Method() model.Method
	// Run executes the analysis over the index. Cancellation is
	// cooperative: ctx is checked between per-entity iterations, and
	// once cancellation is observed no records are returned.
	Run(ctx context.Context, idx *SiteIndex) ([]model.TierRecord, error)
}
