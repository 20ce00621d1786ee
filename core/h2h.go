package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// H2HParams configures the head-to-head (mutual facing) analysis.
type H2HParams struct {
	// MaxRadiusKm bounds the candidate search. Must be > 0.
	MaxRadiusKm float64
	// BeamWidthDeg is the angular tolerance around each sector's Dir;
	// both sides of a pair must see the other inside half this width.
	// Must lie in (0, 360].
	BeamWidthDeg float64
	// H2HThresholdKm is the distance below which a mutually aligned
	// pair is flagged facing. Must be > 0.
	H2HThresholdKm float64
	// TargetSiteIDs restricts the analysis to a subset of source
	// sites; empty means all sites.
	TargetSiteIDs []string
}

// DefaultH2HParams carries the documented defaults: 10 km search
// radius, 120° beam, 1.5 km facing threshold.
func DefaultH2HParams() H2HParams {
	return H2HParams{
		MaxRadiusKm:    10,
		BeamWidthDeg:   120,
		H2HThresholdKm: 1.5,
	}
}

// H2HEngine detects sector pairs from different sites that point at
// each other. A pair qualifies when each sector's Dir lies within
// half the beam width of the bearing towards the other; the nearest
// qualifying pair becomes the sector's 1st tier, flagged facing when
// it is closer than the threshold. Aligned-but-distant pairs are
// still reported, just not flagged.
type H2HEngine struct {
	params H2HParams
}

func NewH2HEngine(params H2HParams) *H2HEngine {
	return &H2HEngine{params: params}
}

func (e *H2HEngine) Method() model.Method { return model.MethodH2H }

func (e *H2HEngine) validate() error {
	p := e.params
	if p.MaxRadiusKm <= 0 {
		return fmt.Errorf("%w: MaxRadiusKm=%v, need > 0", ErrInvalidParameter, p.MaxRadiusKm)
	}
	if p.BeamWidthDeg <= 0 || p.BeamWidthDeg > 360 {
		return fmt.Errorf("%w: BeamWidthDeg=%v outside (0,360]", ErrInvalidParameter, p.BeamWidthDeg)
	}
	if p.H2HThresholdKm <= 0 {
		return fmt.Errorf("%w: H2HThresholdKm=%v, need > 0", ErrInvalidParameter, p.H2HThresholdKm)
	}
	return nil
}

func (e *H2HEngine) Run(ctx context.Context, idx *SiteIndex) ([]model.TierRecord, error) {
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

	halfBeam := e.params.BeamWidthDeg / 2
	var records []model.TierRecord
	for _, site := range targets {
		for _, sec := range site.Sectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			best, ok := e.bestFacingCandidate(sec, tree.withinRadius(sec, e.params.MaxRadiusKm), halfBeam)
			if !ok {
				continue // nothing in radius points back at this sector
			}
			records = append(records, model.TierRecord{
				Method:         model.MethodH2H,
				SourceSite:     site.ID,
				SourceSector:   sec.ID,
				NeighborSite:   best.sec.SiteID,
				NeighborSector: best.sec.ID,
				DistanceKm:     best.distanceKm,
				SourceIndoor:   site.Indoor(),
				Facing:         best.distanceKm < e.params.H2HThresholdKm,
			})
		}
	}
	return records, nil
}

// bestFacingCandidate keeps the candidates satisfying the mutual beam
// condition and returns the nearest, breaking ties by neighbor site
// then sector ID.
func (e *H2HEngine) bestFacingCandidate(src *model.Sector, cands []candidate, halfBeam float64) (candidate, bool) {
	var best candidate
	found := false
	for _, c := range cands {
		// The source must see the candidate inside its beam, and the
		// candidate must see the source inside its own: that mutual
		// alignment is the defining H2H condition.
		if !withinBeam(src.Dir, c.bearingDeg, halfBeam) {
			continue
		}
		back := initialBearingDeg(c.sec.Coord, src.Coord)
		if !withinBeam(c.sec.Dir, back, halfBeam) {
			continue
		}
		if !found || lessCandidate(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func lessCandidate(a, b candidate) bool {
	if a.distanceKm != b.distanceKm {
		return a.distanceKm < b.distanceKm
	}
	if a.sec.SiteID != b.sec.SiteID {
		return a.sec.SiteID < b.sec.SiteID
	}
	return a.sec.ID < b.sec.ID
}

// H2HReport summarizes how many reported sectors ended up facing.
type H2HReport struct {
	TotalSectors  int
	FacingSectors int
	FacingPercent float64
}

// SummarizeH2H builds the facing summary over H2H records; records
// from other methods are ignored.
func SummarizeH2H(records []model.TierRecord) H2HReport {
	var rep H2HReport
	for _, r := range records {
		if r.Method != model.MethodH2H {
			continue
		}
		rep.TotalSectors++
		if r.Facing {
			rep.FacingSectors++
		}
	}
	if rep.TotalSectors > 0 {
		rep.FacingPercent = roundTo2(float64(rep.FacingSectors) / float64(rep.TotalSectors) * 100)
	}
	return rep
}
