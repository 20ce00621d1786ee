package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/signalsfoundry/tier-analyzer/core"
	"github.com/signalsfoundry/tier-analyzer/internal/export"
	"github.com/signalsfoundry/tier-analyzer/internal/logging"
	"github.com/signalsfoundry/tier-analyzer/model"
)

func main() {
	input := flag.String("input", "", "path to the CSV dataset (Site ID, Sector, Latitude, Longitude, Dir[, Tilt])")
	method := flag.String("method", "voronoi", "analysis method: voronoi | balltree | h2h")
	maxRadius := flag.Float64("max-radius-km", 0, "search radius cap in km (0 = method default; unbounded for voronoi)")
	candidates := flag.Int("candidates", 1, "balltree: candidates per sector")
	beamWidth := flag.Float64("beam-width", 0, "beam width in degrees (h2h default 120; 0 = unrestricted for balltree)")
	h2hThreshold := flag.Float64("h2h-threshold", 1.5, "h2h: facing distance threshold in km")
	distinct := flag.Bool("distinct", true, "balltree: distinct neighbor sites across a site's sectors")
	targets := flag.String("targets", "", "comma-separated target site IDs (empty = all)")
	out := flag.String("out", "", "output CSV path (empty = stdout)")
	summary := flag.String("summary", "", "voronoi: optional per-site summary CSV path")
	geojsonPath := flag.String("geojson", "", "optional GeoJSON output path")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *input == "" {
		log.Error(ctx, "missing -input")
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*input)
	if err != nil {
		fatal(ctx, log, "open dataset", err)
	}
	rows, err := core.LoadRows(f)
	f.Close()
	if err != nil {
		fatal(ctx, log, "load dataset", err)
	}

	idx, err := core.BuildIndex(rows)
	if err != nil {
		fatal(ctx, log, "build site index", err)
	}
	log.Info(ctx, "dataset loaded",
		logging.Int("sites", idx.NumSites()),
		logging.Int("sectors", idx.NumSectors()),
	)

	engine, err := buildEngine(*method, *maxRadius, *candidates, *beamWidth, *h2hThreshold, *distinct, splitTargets(*targets))
	if err != nil {
		fatal(ctx, log, "configure engine", err)
	}

	runner := core.NewAnalysisRunner(log)
	result := <-runner.Start(ctx, engine, idx)
	if result.Err != nil {
		fatal(ctx, log, "analysis", result.Err)
	}
	records := core.AssembleRecords(result.Records)

	if err := writeRecords(*out, engine.Method(), records); err != nil {
		fatal(ctx, log, "write output", err)
	}
	if *summary != "" && engine.Method() == model.MethodVoronoi {
		if err := writeSummary(*summary, records); err != nil {
			fatal(ctx, log, "write summary", err)
		}
	}
	if *geojsonPath != "" {
		if err := writeGeoJSON(*geojsonPath, idx, records); err != nil {
			fatal(ctx, log, "write geojson", err)
		}
	}

	if engine.Method() == model.MethodH2H {
		rep := core.SummarizeH2H(records)
		log.Info(ctx, "h2h summary",
			logging.Int("sectors", rep.TotalSectors),
			logging.Int("facing", rep.FacingSectors),
			logging.Any("facing_percent", rep.FacingPercent),
		)
	}
	log.Info(ctx, "analysis complete",
		logging.String("method", string(engine.Method())),
		logging.Int("records", len(records)),
		logging.Any("elapsed", result.Elapsed),
	)
}

func buildEngine(method string, maxRadius float64, candidates int, beamWidth, h2hThreshold float64, distinct bool, targets []string) (core.NeighborEngine, error) {
	switch strings.ToLower(method) {
	case "voronoi":
		return core.NewVoronoiEngine(core.VoronoiParams{
			MaxRadiusKm:   maxRadius,
			TargetSiteIDs: targets,
		}), nil
	case "balltree":
		params := core.DefaultBallTreeParams()
		params.CandidatesPerSector = candidates
		params.BeamWidthDeg = beamWidth
		params.DistinctNeighborSites = distinct
		params.TargetSiteIDs = targets
		if maxRadius > 0 {
			params.MaxRadiusKm = maxRadius
		}
		return core.NewBallTreeEngine(params), nil
	case "h2h":
		params := core.DefaultH2HParams()
		params.TargetSiteIDs = targets
		if maxRadius > 0 {
			params.MaxRadiusKm = maxRadius
		}
		if beamWidth > 0 {
			params.BeamWidthDeg = beamWidth
		}
		if h2hThreshold > 0 {
			params.H2HThresholdKm = h2hThreshold
		}
		return core.NewH2HEngine(params), nil
	default:
		return nil, fmt.Errorf("unknown method %q (want voronoi, balltree, or h2h)", method)
	}
}

func splitTargets(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeRecords(path string, method model.Method, records []model.TierRecord) error {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.WriteCSV(w, method, records)
}

func writeSummary(path string, records []model.TierRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteVoronoiSummary(f, records)
}

func writeGeoJSON(path string, idx *core.SiteIndex, records []model.TierRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteGeoJSON(f, idx, records)
}

func fatal(ctx context.Context, log logging.Logger, what string, err error) {
	log.Error(ctx, what+" failed", logging.String("error", err.Error()))
	os.Exit(1)
}
