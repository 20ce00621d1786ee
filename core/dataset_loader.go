package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one loosely-typed input row as handed over by the file
// collaborator. All fields are raw strings; BuildIndex performs the
// one-time validation pass (validate once, trust thereafter).
type Row struct {
	Line   int // 1-based data row number for error reporting
	SiteID string
	Sector string
	Lat    string
	Lon    string
	Dir    string
	Tilt   string
}

// Column aliases accepted in CSV headers, lower-cased. The canonical
// names follow the planning tool's export format.
var columnAliases = map[string]string{
	"site id":   "site_id",
	"site_id":   "site_id",
	"siteid":    "site_id",
	"sector":    "sector",
	"sector id": "sector",
	"sector_id": "sector",
	"latitude":  "lat",
	"lat":       "lat",
	"longitude": "lon",
	"lon":       "lon",
	"long":      "lon",
	"dir":       "dir",
	"azimuth":   "dir",
	"tilt":      "tilt",
}

// LoadRows reads a CSV dataset from r into Row values. The first
// record must be a header naming at least Site ID, Sector, Latitude,
// Longitude and Dir (aliases accepted, case-insensitive); Tilt is
// optional. Cell contents are not validated here.
func LoadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header row", ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"site_id", "sector", "lat", "lon", "dir"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: column %q not found in header", ErrMissingField, required)
		}
	}
	tiltCol, hasTilt := cols["tilt"]

	var rows []Row
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		cell := func(col string) string {
			i := cols[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := Row{
			Line:   line,
			SiteID: cell("site_id"),
			Sector: cell("sector"),
			Lat:    cell("lat"),
			Lon:    cell("lon"),
			Dir:    cell("dir"),
		}
		if hasTilt && tiltCol < len(record) {
			row.Tilt = strings.TrimSpace(record[tiltCol])
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrEmptyInput)
	}
	return rows, nil
}
