// Package export renders assembled tier records into the tabular and
// geographic formats the planning workflow consumes.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// WriteCSV writes records of a single method in that method's tabular
// shape. Mixing methods in one call is rejected: each method has its
// own columns.
func WriteCSV(w io.Writer, method model.Method, records []model.TierRecord) error {
	switch method {
	case model.MethodVoronoi:
		return writeVoronoiCSV(w, records)
	case model.MethodBallTree:
		return writeBallTreeCSV(w, records)
	case model.MethodH2H:
		return writeH2HCSV(w, records)
	default:
		return fmt.Errorf("unknown method %q", method)
	}
}

func writeVoronoiCSV(w io.Writer, records []model.TierRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Site ID", "1st Tier", "Distance (km)", "Indoor"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := requireMethod(r, model.MethodVoronoi); err != nil {
			return err
		}
		err := cw.Write([]string{
			r.SourceSite,
			r.NeighborSite,
			formatKm(r.DistanceKm),
			yesNo(r.SourceIndoor),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeBallTreeCSV(w io.Writer, records []model.TierRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Site ID", "Sector", "1st Tier", "1st Tier Sector", "Distance (km)", "Duplicate"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := requireMethod(r, model.MethodBallTree); err != nil {
			return err
		}
		err := cw.Write([]string{
			r.SourceSite,
			r.SourceSector,
			r.NeighborSite,
			r.NeighborSector,
			formatKm(r.DistanceKm),
			yesNo(r.DuplicateNeighbor),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeH2HCSV(w io.Writer, records []model.TierRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Site ID", "Sector", "1st Tier", "1st Tier Sector", "H2H", "Distance (km)"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := requireMethod(r, model.MethodH2H); err != nil {
			return err
		}
		err := cw.Write([]string{
			r.SourceSite,
			r.SourceSector,
			r.NeighborSite,
			r.NeighborSector,
			yesNo(r.Facing),
			formatKm(r.DistanceKm),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVoronoiSummary writes the per-site roll-up the original report
// used: one row per source site with the joined neighbor list and the
// average neighbor distance.
func WriteVoronoiSummary(w io.Writer, records []model.TierRecord) error {
	type agg struct {
		neighbors []string
		total     float64
	}
	order := make([]string, 0)
	bySite := make(map[string]*agg)
	for _, r := range records {
		if err := requireMethod(r, model.MethodVoronoi); err != nil {
			return err
		}
		a := bySite[r.SourceSite]
		if a == nil {
			a = &agg{}
			bySite[r.SourceSite] = a
			order = append(order, r.SourceSite)
		}
		a.neighbors = append(a.neighbors, r.NeighborSite)
		a.total += r.DistanceKm
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Site ID", "1st Tier", "Average of Distance", "Distance Unit"}); err != nil {
		return err
	}
	for _, site := range order {
		a := bySite[site]
		avg := a.total / float64(len(a.neighbors))
		err := cw.Write([]string{
			site,
			strings.Join(a.neighbors, ","),
			formatKm(avg),
			"km",
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func requireMethod(r model.TierRecord, want model.Method) error {
	if r.Method != want {
		return fmt.Errorf("record for %s/%s has method %q, want %q",
			r.SourceSite, r.SourceSector, r.Method, want)
	}
	return nil
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
