package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/tier-analyzer/internal/observability"
)

func newTestAPI(t *testing.T) (*analysisAPI, *observability.AnalysisCollector) {
	t.Helper()
	collector, err := observability.NewAnalysisCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAnalysisCollector: %v", err)
	}
	return newAnalysisAPI(nil, collector), collector
}

func postAnalysis(t *testing.T, api *analysisAPI, req analysisRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/analyses", bytes.NewReader(body)))
	return rr
}

func triangleAnalysisRows() []analysisRow {
	return []analysisRow{
		{SiteID: "A", Sector: "1", Lat: "0", Lon: "0", Dir: "90"},
		{SiteID: "B", Sector: "1", Lat: "0.02", Lon: "0", Dir: "90"},
		{SiteID: "C", Sector: "1", Lat: "0.01", Lon: "0.02", Dir: "90"},
	}
}

func TestHandleAnalyze_Voronoi(t *testing.T) {
	api, collector := newTestAPI(t)

	rr := postAnalysis(t, api, analysisRequest{Method: "voronoi", Rows: triangleAnalysisRows()})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp analysisResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Method != "voronoi" {
		t.Errorf("method = %q, want voronoi", resp.Method)
	}
	if resp.Count != 6 || len(resp.Records) != 6 {
		t.Errorf("count = %d with %d records, want 6 (full triangle adjacency)", resp.Count, len(resp.Records))
	}
	for _, rec := range resp.Records {
		if rec.Facing != nil {
			t.Errorf("voronoi record carries a facing flag: %+v", rec)
		}
		if rec.DistanceKm <= 0 {
			t.Errorf("record distance %v, want > 0", rec.DistanceKm)
		}
	}

	if got := testutil.ToFloat64(collector.DatasetSites); got != 3 {
		t.Errorf("analysis_dataset_sites = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("voronoi", "ok")); got != 1 {
		t.Errorf("analysis_runs_total = %v, want 1", got)
	}
}

func TestHandleAnalyze_H2HCarriesFacing(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := postAnalysis(t, api, analysisRequest{
		Method: "h2h",
		Rows: []analysisRow{
			{SiteID: "A", Sector: "1", Lat: "0", Lon: "0", Dir: "0"},
			{SiteID: "B", Sector: "1", Lat: "0.0107915", Lon: "0", Dir: "180"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp analysisResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(resp.Records))
	}
	for _, rec := range resp.Records {
		if rec.Facing == nil || !*rec.Facing {
			t.Errorf("record %s/%s facing = %v, want true", rec.SourceSite, rec.SourceSector, rec.Facing)
		}
		if rec.DistanceKm != 1.2 {
			t.Errorf("record distance = %v, want 1.2 after rounding", rec.DistanceKm)
		}
	}
}

func TestHandleAnalyze_UnknownMethod(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := postAnalysis(t, api, analysisRequest{Method: "nearest-vibes", Rows: triangleAnalysisRows()})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleAnalyze_BadRowsRejectedWithKind(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := postAnalysis(t, api, analysisRequest{
		Method: "voronoi",
		Rows: []analysisRow{
			{SiteID: "A", Sector: "1", Lat: "95", Lon: "0", Dir: "90"},
			{SiteID: "B", Sector: "1", Lat: "0.02", Lon: "0", Dir: "90"},
		},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Kind != "invalid_coordinate" {
		t.Errorf("kind = %q, want invalid_coordinate", resp.Kind)
	}
}

func TestHandleAnalyze_InvalidParameterIsBadRequest(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := postAnalysis(t, api, analysisRequest{
		Method: "voronoi",
		Rows:   triangleAnalysisRows(),
		Params: analysisParams{TargetSiteIDs: []string{"NO-SUCH-SITE"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Kind != "invalid_parameter" {
		t.Errorf("kind = %q, want invalid_parameter", resp.Kind)
	}
}

func TestHandleAnalyze_MalformedJSON(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/analyses", bytes.NewReader([]byte("{not json"))))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}
