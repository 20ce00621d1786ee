package core

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// sectorPoint adapts a sector to vptree.Comparable under great-circle
// distance in kilometres. Coordinates are pre-converted to radians so
// tree queries stay cheap.
type sectorPoint struct {
	sec    *model.Sector
	latRad float64
	lonRad float64
}

func newSectorPoint(sec *model.Sector) sectorPoint {
	return sectorPoint{
		sec:    sec,
		latRad: sec.Coord.Lat * math.Pi / 180,
		lonRad: sec.Coord.Lon * math.Pi / 180,
	}
}

// Distance implements vptree.Comparable. Haversine is a true metric
// on the sphere, so the vantage point tree's triangle-inequality
// pruning stays valid.
func (p sectorPoint) Distance(c vptree.Comparable) float64 {
	q := c.(sectorPoint)
	dLat := q.latRad - p.latRad
	dLon := q.lonRad - p.lonRad
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p.latRad)*math.Cos(q.latRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if s > 1 {
		s = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(s))
}

// sectorTree is the metric spatial index shared by the sector-level
// engines. It indexes every sector of the run once; queries never
// mutate it.
type sectorTree struct {
	tree *vptree.Tree
}

func newSectorTree(sectors []*model.Sector) (*sectorTree, error) {
	if len(sectors) == 0 {
		return nil, fmt.Errorf("%w: no sectors to index", ErrEmptyInput)
	}
	pts := make([]vptree.Comparable, len(sectors))
	for i, sec := range sectors {
		pts[i] = newSectorPoint(sec)
	}
	t, err := vptree.New(pts, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("build sector tree: %w", err)
	}
	return &sectorTree{tree: t}, nil
}

// candidate is one neighbor sector surfaced by a tree query, with the
// geometry the filters need.
type candidate struct {
	sec        *model.Sector
	distanceKm float64
	bearingDeg float64 // initial bearing source -> candidate
	angleDelta float64 // |bearing - source Dir|, wrapped to [0,180]
}

// nearest returns up to k sectors closest to src, excluding sectors
// of src's own site and zero-distance points, capped at maxRadiusKm.
// Results are annotated with bearing and angular deviation from the
// source Dir and come back unsorted.
func (st *sectorTree) nearest(src *model.Sector, k int, maxRadiusKm float64) []candidate {
	keep := vptree.NewNKeeper(k)
	st.tree.NearestSet(keep, newSectorPoint(src))
	return st.collect(src, keep.Heap, maxRadiusKm)
}

// withinRadius returns every sector within maxRadiusKm of src, with
// the same exclusions and annotations as nearest.
func (st *sectorTree) withinRadius(src *model.Sector, maxRadiusKm float64) []candidate {
	keep := vptree.NewDistKeeper(maxRadiusKm)
	st.tree.NearestSet(keep, newSectorPoint(src))
	return st.collect(src, keep.Heap, maxRadiusKm)
}

func (st *sectorTree) collect(src *model.Sector, heap vptree.Heap, maxRadiusKm float64) []candidate {
	out := make([]candidate, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue // keeper sentinel
		}
		p := cd.Comparable.(sectorPoint)
		if p.sec.SiteID == src.SiteID {
			continue
		}
		// Zero distance means a co-located point; bearings are
		// undefined there and the pair is useless as a tier.
		if cd.Dist <= 0 || cd.Dist > maxRadiusKm {
			continue
		}
		bearing := initialBearingDeg(src.Coord, p.sec.Coord)
		out = append(out, candidate{
			sec:        p.sec,
			distanceKm: cd.Dist,
			bearingDeg: bearing,
			angleDelta: AngularDeltaDeg(src.Dir, bearing),
		})
	}
	return out
}

// lessRanked is the candidate ordering shared by query ranking and
// slot selection: distance, then angular alignment with the source
// Dir, then neighbor site and sector ID so equal geometry always
// resolves the same way.
func lessRanked(a, b candidate) bool {
	if a.distanceKm != b.distanceKm {
		return a.distanceKm < b.distanceKm
	}
	if a.angleDelta != b.angleDelta {
		return a.angleDelta < b.angleDelta
	}
	if a.sec.SiteID != b.sec.SiteID {
		return a.sec.SiteID < b.sec.SiteID
	}
	return a.sec.ID < b.sec.ID
}

func rankCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		return lessRanked(cs[i], cs[j])
	})
}
