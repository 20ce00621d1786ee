package model

// Method identifies which analysis produced a TierRecord.
type Method string

const (
	MethodVoronoi  Method = "voronoi"
	MethodBallTree Method = "balltree"
	MethodH2H      Method = "h2h"
)

// TierRecord is one detected 1st-tier relationship. Site-level
// records (Voronoi) leave the sector fields empty; Facing is only
// meaningful for the H2H method.
type TierRecord struct {
	Method       Method
	SourceSite   string
	SourceSector string

	NeighborSite   string
	NeighborSector string

	DistanceKm float64

	// SourceIndoor annotates (never filters) records whose source site
	// has no outdoor directional coverage.
	SourceIndoor bool

	// Facing marks a mutually aligned H2H pair closer than the
	// configured threshold.
	Facing bool

	// DuplicateNeighbor marks a BallTree record whose neighbor site is
	// shared with another sector of the same source site because no
	// distinct candidate remained within radius.
	DuplicateNeighbor bool
}
