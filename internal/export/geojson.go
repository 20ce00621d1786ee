package export

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/tier-analyzer/core"
	"github.com/signalsfoundry/tier-analyzer/model"
)

// WriteGeoJSON renders the analysed sites and their tier links as a
// GeoJSON FeatureCollection for map overlay: one Point feature per
// site and one LineString feature per tier record. This replaces the
// original tool's static diagram plot.
func WriteGeoJSON(w io.Writer, idx *core.SiteIndex, records []model.TierRecord) error {
	fc := geojson.NewFeatureCollection()

	for _, site := range idx.Sites() {
		coord := site.RepresentativeCoord()
		f := geojson.NewFeature(orb.Point{coord.Lon, coord.Lat})
		f.Properties = geojson.Properties{
			"site_id": site.ID,
			"sectors": len(site.Sectors),
			"indoor":  site.Indoor(),
		}
		fc.Append(f)
	}

	for _, r := range records {
		src := idx.Site(r.SourceSite)
		dst := idx.Site(r.NeighborSite)
		if src == nil || dst == nil {
			continue
		}
		a := src.RepresentativeCoord()
		b := dst.RepresentativeCoord()
		f := geojson.NewFeature(orb.LineString{
			{a.Lon, a.Lat},
			{b.Lon, b.Lat},
		})
		props := geojson.Properties{
			"method":        string(r.Method),
			"source_site":   r.SourceSite,
			"neighbor_site": r.NeighborSite,
			"distance_km":   r.DistanceKm,
		}
		if r.SourceSector != "" {
			props["source_sector"] = r.SourceSector
		}
		if r.NeighborSector != "" {
			props["neighbor_sector"] = r.NeighborSector
		}
		if r.Method == model.MethodH2H {
			props["facing"] = r.Facing
		}
		f.Properties = props
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
