package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/tier-analyzer/core"
	"github.com/signalsfoundry/tier-analyzer/model"
)

func TestBuildEngine(t *testing.T) {
	cases := []struct {
		method string
		want   model.Method
	}{
		{"voronoi", model.MethodVoronoi},
		{"BALLTREE", model.MethodBallTree}, // case-insensitive
		{"h2h", model.MethodH2H},
	}
	for _, tc := range cases {
		engine, err := buildEngine(tc.method, 0, 1, 0, 1.5, true, nil)
		if err != nil {
			t.Fatalf("buildEngine(%q): %v", tc.method, err)
		}
		if engine.Method() != tc.want {
			t.Errorf("buildEngine(%q).Method() = %s, want %s", tc.method, engine.Method(), tc.want)
		}
	}
	if _, err := buildEngine("nearest-vibes", 0, 1, 0, 1.5, true, nil); err == nil {
		t.Error("unknown method accepted")
	}
}

func TestSplitTargets(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"A, B ,C", []string{"A", "B", "C"}},
		{" , ,", nil},
	}
	for _, tc := range cases {
		got := splitTargets(tc.raw)
		if len(got) != len(tc.want) {
			t.Errorf("splitTargets(%q) = %v, want %v", tc.raw, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("splitTargets(%q) = %v, want %v", tc.raw, got, tc.want)
				break
			}
		}
	}
}

// TestIntegration_DatasetToCSV exercises the load -> index -> run ->
// assemble -> export pipeline the way the command does.
func TestIntegration_DatasetToCSV(t *testing.T) {
	csvIn := "Site ID,Sector,Latitude,Longitude,Dir\n" +
		"A,1,0,0,90\n" +
		"B,1,0.02,0,90\n" +
		"C,1,0.01,0.02,90\n"

	rows, err := core.LoadRows(strings.NewReader(csvIn))
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	idx, err := core.BuildIndex(rows)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	engine, err := buildEngine("voronoi", 0, 1, 0, 1.5, true, nil)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}

	runner := core.NewAnalysisRunner(nil)
	result := <-runner.Start(context.Background(), engine, idx)
	if result.Err != nil {
		t.Fatalf("analysis: %v", result.Err)
	}
	records := core.AssembleRecords(result.Records)
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}

	outPath := filepath.Join(t.TempDir(), "tiers.csv")
	if err := writeRecords(outPath, engine.Method(), records); err != nil {
		t.Fatalf("writeRecords: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "Site ID,1st Tier,Distance (km),Indoor\n") {
		t.Errorf("unexpected header in output:\n%s", out)
	}
	// Header plus one line per record.
	if got := strings.Count(strings.TrimRight(out, "\n"), "\n"); got != 6 {
		t.Errorf("output has %d data lines, want 6:\n%s", got, out)
	}

	geoPath := filepath.Join(t.TempDir(), "tiers.geojson")
	if err := writeGeoJSON(geoPath, idx, records); err != nil {
		t.Fatalf("writeGeoJSON: %v", err)
	}
	geo, err := os.ReadFile(geoPath)
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	if !strings.Contains(string(geo), "FeatureCollection") {
		t.Errorf("geojson output missing FeatureCollection")
	}
}
