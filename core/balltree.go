package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// queryOverfetch controls how many extra neighbors each k-NN query
// pulls before the directional and distinctness filters run. Too
// small and a heavily filtered sector comes back empty even though
// qualifying neighbors exist further down the ranking.
const queryOverfetch = 10

// BallTreeParams configures the sector-level k-nearest-neighbor
// analysis.
type BallTreeParams struct {
	// CandidatesPerSector is k: how many tier records each sector may
	// receive. Must be >= 1.
	CandidatesPerSector int
	// MaxRadiusKm bounds the candidate search. Must be > 0.
	MaxRadiusKm float64
	// BeamWidthDeg optionally constrains candidates to the angular
	// sector around the source Dir. 0 leaves the full 360° open; the
	// Dir still acts as the tie-breaking reference axis.
	BeamWidthDeg float64
	// DistinctNeighborSites asks that sectors of one site spread
	// their 1st tiers over distinct neighbor sites where possible.
	// When impossible within radius, the duplicate is emitted flagged.
	DistinctNeighborSites bool
	// TargetSiteIDs restricts the analysis to a subset of source
	// sites; empty means all sites.
	TargetSiteIDs []string
}

// DefaultBallTreeParams mirrors the planning tool's documented
// defaults: single candidate, 7 km search radius, distinct tiers
// across a site's sectors.
func DefaultBallTreeParams() BallTreeParams {
	return BallTreeParams{
		CandidatesPerSector:   1,
		MaxRadiusKm:           7,
		DistinctNeighborSites: true,
	}
}

// BallTreeEngine finds per-sector 1st tiers through a metric spatial
// index: k-nearest queries under great-circle distance, filtered by
// bearing alignment with the sector's antenna direction.
type BallTreeEngine struct {
	params BallTreeParams
}

func NewBallTreeEngine(params BallTreeParams) *BallTreeEngine {
	return &BallTreeEngine{params: params}
}

func (e *BallTreeEngine) Method() model.Method { return model.MethodBallTree }

func (e *BallTreeEngine) validate() error {
	p := e.params
	if p.CandidatesPerSector < 1 {
		return fmt.Errorf("%w: CandidatesPerSector=%d, need >= 1", ErrInvalidParameter, p.CandidatesPerSector)
	}
	if p.MaxRadiusKm <= 0 {
		return fmt.Errorf("%w: MaxRadiusKm=%v, need > 0", ErrInvalidParameter, p.MaxRadiusKm)
	}
	if p.BeamWidthDeg < 0 || p.BeamWidthDeg > 360 {
		return fmt.Errorf("%w: BeamWidthDeg=%v outside [0,360]", ErrInvalidParameter, p.BeamWidthDeg)
	}
	return nil
}

func (e *BallTreeEngine) Run(ctx context.Context, idx *SiteIndex) ([]model.TierRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if idx == nil || idx.NumSectors() == 0 {
		return nil, fmt.Errorf("%w: no sectors", ErrEmptyInput)
	}
	targets, err := idx.targetSites(e.params.TargetSiteIDs)
	if err != nil {
		return nil, err
	}

	tree, err := newSectorTree(idx.Sectors())
	if err != nil {
		return nil, err
	}

	k := e.params.CandidatesPerSector
	var records []model.TierRecord
	for _, site := range targets {
		// Neighbor sites already granted to earlier sectors of this
		// site, for the distinctness constraint.
		usedSites := make(map[string]bool)

		for _, sec := range site.Sectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			// Over-fetch so own-site points and filtered candidates
			// don't starve the selection.
			budget := k*queryOverfetch + len(site.Sectors)
			cands := tree.nearest(sec, budget, e.params.MaxRadiusKm)
			if e.params.BeamWidthDeg > 0 {
				cands = filterByBeam(cands, e.params.BeamWidthDeg/2)
			}
			rankCandidates(cands)

			for _, rec := range e.selectCandidates(site, sec, cands, usedSites) {
				usedSites[rec.NeighborSite] = true
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

func filterByBeam(cands []candidate, halfBeamDeg float64) []candidate {
	kept := cands[:0]
	for _, c := range cands {
		if c.angleDelta <= halfBeamDeg {
			kept = append(kept, c)
		}
	}
	return kept
}

// selectCandidates picks up to k records from the ranked candidate
// list. Slots within one sector always use distinct neighbor sites;
// across the site's sectors distinctness is best-effort, falling back
// to a flagged duplicate when nothing else remains in radius.
func (e *BallTreeEngine) selectCandidates(site *model.Site, sec *model.Sector, cands []candidate, usedSites map[string]bool) []model.TierRecord {
	type pick struct {
		cand      candidate
		duplicate bool
	}
	chosen := make(map[string]bool)
	var picks []pick

	take := func(c candidate, duplicate bool) {
		chosen[c.sec.SiteID] = true
		picks = append(picks, pick{cand: c, duplicate: duplicate})
	}

	for len(picks) < e.params.CandidatesPerSector {
		found := false
		if e.params.DistinctNeighborSites {
			for _, c := range cands {
				if chosen[c.sec.SiteID] || usedSites[c.sec.SiteID] {
					continue
				}
				take(c, false)
				found = true
				break
			}
		}
		if !found {
			// Either distinctness is off or no distinct site remains:
			// take the best unchosen site, flagging the duplicate.
			for _, c := range cands {
				if chosen[c.sec.SiteID] {
					continue
				}
				take(c, e.params.DistinctNeighborSites && usedSites[c.sec.SiteID])
				found = true
				break
			}
		}
		if !found {
			break
		}
	}

	// A duplicate fallback can be nearer than an earlier distinct pick;
	// re-rank the slots so a sector's distances stay non-decreasing.
	sort.Slice(picks, func(i, j int) bool {
		return lessRanked(picks[i].cand, picks[j].cand)
	})

	out := make([]model.TierRecord, len(picks))
	for i, p := range picks {
		out[i] = model.TierRecord{
			Method:            model.MethodBallTree,
			SourceSite:        site.ID,
			SourceSector:      sec.ID,
			NeighborSite:      p.cand.sec.SiteID,
			NeighborSector:    p.cand.sec.ID,
			DistanceKm:        p.cand.distanceKm,
			SourceIndoor:      site.Indoor(),
			DuplicateNeighbor: p.duplicate,
		}
	}
	return out
}
