package core

import (
	"fmt"
	"strconv"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// SiteIndex is the per-run, read-only view over all sites and
// sectors. It is built once from validated rows and never mutated;
// engines may therefore share one index across goroutines without
// locking.
type SiteIndex struct {
	sites  []*model.Site // first-seen order
	byID   map[string]*model.Site
	sector []*model.Sector // input order across all sites
}

// BuildIndex converts loosely-typed rows into the validated site/
// sector table. Grouping preserves first-seen site order and sector
// input order. Every malformed row is collected and the whole input
// rejected with a single BuildError; there is no silent row skipping.
func BuildIndex(rows []Row) (*SiteIndex, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrEmptyInput)
	}

	idx := &SiteIndex{byID: make(map[string]*model.Site)}
	seen := make(map[string]map[string]bool) // site -> sector IDs
	var bad []*RowError

	reject := func(row Row, err error) {
		bad = append(bad, &RowError{Line: row.Line, SiteID: row.SiteID, Sector: row.Sector, Err: err})
	}

	for _, row := range rows {
		if row.SiteID == "" {
			reject(row, fmt.Errorf("%w: Site ID", ErrMissingField))
			continue
		}
		if row.Sector == "" {
			reject(row, fmt.Errorf("%w: Sector", ErrMissingField))
			continue
		}

		lat, err := parseFloatField("Latitude", row.Lat)
		if err != nil {
			reject(row, err)
			continue
		}
		lon, err := parseFloatField("Longitude", row.Lon)
		if err != nil {
			reject(row, err)
			continue
		}
		dir, err := parseFloatField("Dir", row.Dir)
		if err != nil {
			reject(row, err)
			continue
		}

		coord := model.Coordinate{Lat: lat, Lon: lon}
		if !coord.Valid() {
			reject(row, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, lat, lon))
			continue
		}
		// The input contract says Dir arrives normalized to [0, 360];
		// anything outside is a broken parameter upstream.
		if dir < 0 || dir > 360 {
			reject(row, fmt.Errorf("%w: Dir=%v outside [0,360]", ErrInvalidParameter, dir))
			continue
		}

		var tilt float64
		hasTilt := row.Tilt != ""
		if hasTilt {
			tilt, err = parseFloatField("Tilt", row.Tilt)
			if err != nil {
				reject(row, err)
				continue
			}
		}

		if seen[row.SiteID][row.Sector] {
			reject(row, fmt.Errorf("%w: (%s, %s)", ErrDuplicateSector, row.SiteID, row.Sector))
			continue
		}
		if seen[row.SiteID] == nil {
			seen[row.SiteID] = make(map[string]bool)
		}
		seen[row.SiteID][row.Sector] = true

		site := idx.byID[row.SiteID]
		if site == nil {
			site = &model.Site{ID: row.SiteID}
			idx.byID[row.SiteID] = site
			idx.sites = append(idx.sites, site)
		}
		sec := &model.Sector{
			SiteID:  row.SiteID,
			ID:      row.Sector,
			Coord:   coord,
			Dir:     dir,
			Tilt:    tilt,
			HasTilt: hasTilt,
		}
		site.Sectors = append(site.Sectors, sec)
		idx.sector = append(idx.sector, sec)
	}

	if len(bad) > 0 {
		return nil, &BuildError{Rows: bad}
	}

	for _, site := range idx.sites {
		site.SetIndoor(classifyIndoor(site))
	}
	return idx, nil
}

func parseFloatField(name, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not numeric", ErrMissingField, name, raw)
	}
	return v, nil
}

// classifyIndoor reports whether every sector of the site points at
// Dir 0/360, i.e. the site has no outdoor directional coverage.
func classifyIndoor(site *model.Site) bool {
	for _, sec := range site.Sectors {
		if !sec.Omni() {
			return false
		}
	}
	return true
}

// Sites returns all sites in first-seen order. Callers must not
// mutate the returned slice or its contents.
func (idx *SiteIndex) Sites() []*model.Site { return idx.sites }

// Sectors returns every sector across all sites in input order.
func (idx *SiteIndex) Sectors() []*model.Sector { return idx.sector }

// Site looks up a site by ID, or nil.
func (idx *SiteIndex) Site(id string) *model.Site { return idx.byID[id] }

// NumSites and NumSectors are convenience accessors for logging and
// metrics.
func (idx *SiteIndex) NumSites() int   { return len(idx.sites) }
func (idx *SiteIndex) NumSectors() int { return len(idx.sector) }

// targetSites resolves an optional subset of site IDs, preserving
// index order. A nil/empty subset selects every site. Unknown IDs
// are reported so a typo cannot silently shrink the analysis.
func (idx *SiteIndex) targetSites(ids []string) ([]*model.Site, error) {
	if len(ids) == 0 {
		return idx.sites, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if idx.byID[id] == nil {
			return nil, fmt.Errorf("%w: unknown target site %q", ErrInvalidParameter, id)
		}
		want[id] = true
	}
	out := make([]*model.Site, 0, len(want))
	for _, site := range idx.sites {
		if want[site.ID] {
			out = append(out, site)
		}
	}
	return out, nil
}
