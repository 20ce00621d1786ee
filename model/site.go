package model

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies inside the usual
// geographic ranges: latitude [-90, 90], longitude [-180, 180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Sector is one directional antenna face of a site. Sectors are built
// once at index-build time and never mutated afterwards.
type Sector struct {
	SiteID string
	ID     string
	Coord  Coordinate
	// Dir is the antenna azimuth in degrees. 0 and 360 are both valid
	// and equivalent; a site whose sectors all report 0/360 is indoor.
	Dir float64
	// Tilt is carried through for reporting; the geometry never reads it.
	Tilt float64
	// HasTilt distinguishes an explicit 0 tilt from an absent column.
	HasTilt bool
}

// Omni reports whether the sector has no outdoor boom direction
// (Dir of exactly 0 or 360).
func (s *Sector) Omni() bool {
	return s.Dir == 0 || s.Dir == 360
}

// Site groups the sectors sharing one site ID, in first-seen order.
type Site struct {
	ID      string
	Sectors []*Sector

	// indoor is classified once during index construction.
	indoor bool
}

// Indoor reports whether every sector of the site has Dir 0/360,
// i.e. the site has no outdoor directional coverage.
func (s *Site) Indoor() bool { return s.indoor }

// SetIndoor caches the indoor classification. Called exactly once by
// the index builder.
func (s *Site) SetIndoor(v bool) { s.indoor = v }

// RepresentativeCoord is the coordinate of the first sector seen for
// the site. Sectors of one site are assumed co-located; if they
// differ, the first is authoritative (a documented limitation; values
// are never averaged).
func (s *Site) RepresentativeCoord() Coordinate {
	return s.Sectors[0].Coord
}
