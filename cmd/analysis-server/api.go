package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/tier-analyzer/core"
	"github.com/signalsfoundry/tier-analyzer/internal/logging"
	"github.com/signalsfoundry/tier-analyzer/internal/observability"
	"github.com/signalsfoundry/tier-analyzer/model"
)

// analysisAPI is the HTTP surface over the analysis core: one
// synchronous analysis endpoint plus health. Each request gets its
// own index and engine; nothing is shared between runs.
type analysisAPI struct {
	log       logging.Logger
	collector *observability.AnalysisCollector
	runner    *core.AnalysisRunner
}

func newAnalysisAPI(log logging.Logger, collector *observability.AnalysisCollector) *analysisAPI {
	if log == nil {
		log = logging.Noop()
	}
	opts := []core.RunnerOption{}
	if collector != nil {
		opts = append(opts, core.WithRunObserver(collector))
	}
	return &analysisAPI{
		log:       log,
		collector: collector,
		runner:    core.NewAnalysisRunner(log, opts...),
	}
}

func (a *analysisAPI) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/analyses", a.handleAnalyze)
	mux.HandleFunc("GET /healthz", a.handleHealth)
	return mux
}

// Wire shapes. Row mirrors the normalized input contract; params are
// per-method with the documented defaults filled in when omitted.
type analysisRequest struct {
	Method string         `json:"method"`
	Rows   []analysisRow  `json:"rows"`
	Params analysisParams `json:"params"`
}

type analysisRow struct {
	SiteID string `json:"site_id"`
	Sector string `json:"sector"`
	Lat    string `json:"lat"`
	Lon    string `json:"lon"`
	Dir    string `json:"dir"`
	Tilt   string `json:"tilt,omitempty"`
}

type analysisParams struct {
	MaxRadiusKm           float64  `json:"max_radius_km,omitempty"`
	CandidatesPerSector   int      `json:"candidates_per_sector,omitempty"`
	BeamWidthDeg          float64  `json:"beam_width_deg,omitempty"`
	H2HThresholdKm        float64  `json:"h2h_threshold_km,omitempty"`
	DistinctNeighborSites *bool    `json:"distinct_neighbor_sites,omitempty"`
	TargetSiteIDs         []string `json:"target_site_ids,omitempty"`
}

type analysisRecord struct {
	Method            string  `json:"method"`
	SourceSite        string  `json:"source_site"`
	SourceSector      string  `json:"source_sector,omitempty"`
	NeighborSite      string  `json:"neighbor_site"`
	NeighborSector    string  `json:"neighbor_sector,omitempty"`
	DistanceKm        float64 `json:"distance_km"`
	SourceIndoor      bool    `json:"source_indoor"`
	Facing            *bool   `json:"facing,omitempty"`
	DuplicateNeighbor bool    `json:"duplicate_neighbor,omitempty"`
}

type analysisResponse struct {
	Method    string           `json:"method"`
	Records   []analysisRecord `json:"records"`
	Count     int              `json:"count"`
	ElapsedMs int64            `json:"elapsed_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (a *analysisAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *analysisAPI) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, log := logging.WithRunLogger(r.Context(), a.log)

	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rows := make([]core.Row, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = core.Row{
			Line:   i + 1,
			SiteID: row.SiteID,
			Sector: row.Sector,
			Lat:    row.Lat,
			Lon:    row.Lon,
			Dir:    row.Dir,
			Tilt:   row.Tilt,
		}
	}

	idx, err := core.BuildIndex(rows)
	if err != nil {
		log.Warn(ctx, "index build rejected", logging.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.collector.SetDatasetCounts(idx.NumSites(), idx.NumSectors())

	engine, err := engineFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := a.runner.Run(ctx, engine, idx)
	if result.Err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(result.Err, core.ErrInvalidParameter) {
			status = http.StatusBadRequest
		}
		writeError(w, status, result.Err)
		return
	}

	records := core.AssembleRecords(result.Records)
	resp := analysisResponse{
		Method:    string(result.Method),
		Records:   make([]analysisRecord, len(records)),
		Count:     len(records),
		ElapsedMs: result.Elapsed.Milliseconds(),
	}
	for i, rec := range records {
		out := analysisRecord{
			Method:            string(rec.Method),
			SourceSite:        rec.SourceSite,
			SourceSector:      rec.SourceSector,
			NeighborSite:      rec.NeighborSite,
			NeighborSector:    rec.NeighborSector,
			DistanceKm:        rec.DistanceKm,
			SourceIndoor:      rec.SourceIndoor,
			DuplicateNeighbor: rec.DuplicateNeighbor,
		}
		if rec.Method == model.MethodH2H {
			facing := rec.Facing
			out.Facing = &facing
		}
		resp.Records[i] = out
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func engineFromRequest(req analysisRequest) (core.NeighborEngine, error) {
	p := req.Params
	switch req.Method {
	case string(model.MethodVoronoi):
		return core.NewVoronoiEngine(core.VoronoiParams{
			MaxRadiusKm:   p.MaxRadiusKm,
			TargetSiteIDs: p.TargetSiteIDs,
		}), nil
	case string(model.MethodBallTree):
		params := core.DefaultBallTreeParams()
		if p.MaxRadiusKm > 0 {
			params.MaxRadiusKm = p.MaxRadiusKm
		}
		if p.CandidatesPerSector > 0 {
			params.CandidatesPerSector = p.CandidatesPerSector
		}
		params.BeamWidthDeg = p.BeamWidthDeg
		if p.DistinctNeighborSites != nil {
			params.DistinctNeighborSites = *p.DistinctNeighborSites
		}
		params.TargetSiteIDs = p.TargetSiteIDs
		return core.NewBallTreeEngine(params), nil
	case string(model.MethodH2H):
		params := core.DefaultH2HParams()
		if p.MaxRadiusKm > 0 {
			params.MaxRadiusKm = p.MaxRadiusKm
		}
		if p.BeamWidthDeg > 0 {
			params.BeamWidthDeg = p.BeamWidthDeg
		}
		if p.H2HThresholdKm > 0 {
			params.H2HThresholdKm = p.H2HThresholdKm
		}
		params.TargetSiteIDs = p.TargetSiteIDs
		return core.NewH2HEngine(params), nil
	default:
		return nil, errors.New("method must be one of voronoi, balltree, h2h")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: err.Error(),
		Kind:  errorKind(err),
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, core.ErrMissingField):
		return "missing_field"
	case errors.Is(err, core.ErrDuplicateSector):
		return "duplicate_sector"
	case errors.Is(err, core.ErrDegenerateGeometry):
		return "degenerate_geometry"
	case errors.Is(err, core.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, core.ErrInvalidParameter):
		return "invalid_parameter"
	default:
		return ""
	}
}
