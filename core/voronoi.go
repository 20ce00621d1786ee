package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/fogleman/delaunay"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// VoronoiParams configures the site-level Voronoi analysis.
type VoronoiParams struct {
	// MaxRadiusKm caps reported neighbors by great-circle distance;
	// 0 means unbounded.
	MaxRadiusKm float64
	// TargetSiteIDs restricts the analysis to a subset of source
	// sites; empty means all sites.
	TargetSiteIDs []string
}

// VoronoiEngine reports site-level 1st tiers from planar Voronoi
// adjacency: two sites are neighbors iff their cells share an edge,
// which is exactly an edge of the Delaunay dual. Site coordinates are
// treated as planar (longitude, latitude) points, a small-extent
// approximation with no geodesic correction; reported distances are
// still great-circle.
type VoronoiEngine struct {
	params VoronoiParams
}

func NewVoronoiEngine(params VoronoiParams) *VoronoiEngine {
	return &VoronoiEngine{params: params}
}

func (e *VoronoiEngine) Method() model.Method { return model.MethodVoronoi }

func (e *VoronoiEngine) Run(ctx context.Context, idx *SiteIndex) ([]model.TierRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.params.MaxRadiusKm < 0 {
		return nil, fmt.Errorf("%w: MaxRadiusKm=%v", ErrInvalidParameter, e.params.MaxRadiusKm)
	}
	if idx == nil || idx.NumSites() == 0 {
		return nil, fmt.Errorf("%w: no sites", ErrEmptyInput)
	}
	targets, err := idx.targetSites(e.params.TargetSiteIDs)
	if err != nil {
		return nil, err
	}

	diagram, err := buildVoronoiAdjacency(idx.Sites())
	if err != nil {
		return nil, err
	}

	var records []model.TierRecord
	for _, site := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := site.RepresentativeCoord()
		var found []model.TierRecord
		for _, neighbor := range diagram.neighborsOf(site.ID) {
			dist := haversineKm(src, neighbor.RepresentativeCoord())
			if e.params.MaxRadiusKm > 0 && dist > e.params.MaxRadiusKm {
				continue
			}
			found = append(found, model.TierRecord{
				Method:       model.MethodVoronoi,
				SourceSite:   site.ID,
				NeighborSite: neighbor.ID,
				DistanceKm:   dist,
				SourceIndoor: site.Indoor(),
			})
		}
		sort.Slice(found, func(i, j int) bool {
			if found[i].DistanceKm != found[j].DistanceKm {
				return found[i].DistanceKm < found[j].DistanceKm
			}
			return found[i].NeighborSite < found[j].NeighborSite
		})
		records = append(records, found...)
	}
	return records, nil
}

// voronoiDiagram maps each site to the sites whose cells border its
// own. Sites sharing one coordinate are merged into a single diagram
// vertex and inherit that vertex's neighbors.
type voronoiDiagram struct {
	pointOf   map[string]int    // site ID -> merged point index
	members   [][]*model.Site   // point index -> co-located sites
	adjacency []map[int]bool    // point index -> adjacent point set
}

func (d *voronoiDiagram) neighborsOf(siteID string) []*model.Site {
	pi, ok := d.pointOf[siteID]
	if !ok {
		return nil
	}
	var out []*model.Site
	for qi := range d.adjacency[pi] {
		out = append(out, d.members[qi]...)
	}
	return out
}

func buildVoronoiAdjacency(sites []*model.Site) (*voronoiDiagram, error) {
	d := &voronoiDiagram{pointOf: make(map[string]int, len(sites))}

	// Merge duplicate coordinates into one diagram vertex; the
	// triangulation cannot take repeated points.
	pointIdx := make(map[model.Coordinate]int)
	var points []delaunay.Point
	for _, site := range sites {
		coord := site.RepresentativeCoord()
		pi, ok := pointIdx[coord]
		if !ok {
			pi = len(points)
			pointIdx[coord] = pi
			points = append(points, delaunay.Point{X: coord.Lon, Y: coord.Lat})
			d.members = append(d.members, nil)
		}
		d.pointOf[site.ID] = pi
		d.members[pi] = append(d.members[pi], site)
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: %d distinct site coordinate(s), need at least 2",
			ErrDegenerateGeometry, len(points))
	}

	d.adjacency = make([]map[int]bool, len(points))
	for i := range d.adjacency {
		d.adjacency[i] = make(map[int]bool)
	}
	link := func(a, b int) {
		d.adjacency[a][b] = true
		d.adjacency[b][a] = true
	}

	if len(points) == 2 {
		link(0, 1)
		return d, nil
	}

	tri, err := delaunay.Triangulate(points)
	if err != nil || len(tri.Triangles) == 0 {
		// Collinear input: the cells degenerate to parallel slabs, so
		// adjacency is simply the chain of points along the line.
		for _, pair := range collinearChain(points) {
			link(pair[0], pair[1])
		}
		return d, nil
	}

	for t := 0; t < len(tri.Triangles); t += 3 {
		a, b, c := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		link(a, b)
		link(b, c)
		link(c, a)
	}
	return d, nil
}

// collinearChain orders the point indices along the dominant axis and
// pairs consecutive points.
func collinearChain(points []delaunay.Point) [][2]int {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := points[order[i]], points[order[j]]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	pairs := make([][2]int, 0, len(order)-1)
	for i := 1; i < len(order); i++ {
		pairs = append(pairs, [2]int{order[i-1], order[i]})
	}
	return pairs
}
