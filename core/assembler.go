package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// AssembleRecords prepares engine output for presentation: duplicate
// (method, source, neighbor) pairs collapse to their first
// occurrence, records are stably ordered by source site then source
// sector, and distances are rounded to two decimals. The input slice
// is left untouched.
func AssembleRecords(records []model.TierRecord) []model.TierRecord {
	type pairKey struct {
		method                       model.Method
		srcSite, srcSector           string
		neighborSite, neighborSector string
	}

	seen := make(map[pairKey]bool, len(records))
	out := make([]model.TierRecord, 0, len(records))
	for _, r := range records {
		key := pairKey{r.Method, r.SourceSite, r.SourceSector, r.NeighborSite, r.NeighborSector}
		if seen[key] {
			continue
		}
		seen[key] = true
		r.DistanceKm = roundTo2(r.DistanceKm)
		out = append(out, r)
	}

	// Stable keeps each sector's ranked candidate order intact.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceSite != out[j].SourceSite {
			return out[i].SourceSite < out[j].SourceSite
		}
		return out[i].SourceSector < out[j].SourceSector
	})
	return out
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
