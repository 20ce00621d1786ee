package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// triangleRows places three sites 2-3 km apart in a triangle near the
// equator (one degree of latitude is ~111.2 km).
func triangleRows(t *testing.T) []Row {
	return rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0.02", "0", "90"},    // ~2.2 km north of A
		[5]string{"C", "1", "0.01", "0.02", "90"}, // ~2.4 km from both
	)
}

func neighborsBySource(records []model.TierRecord) map[string][]string {
	out := make(map[string][]string)
	for _, r := range records {
		out[r.SourceSite] = append(out[r.SourceSite], r.NeighborSite)
	}
	return out
}

func TestVoronoiEngine_TriangleFullAdjacency(t *testing.T) {
	idx := mustIndex(t, triangleRows(t))
	engine := NewVoronoiEngine(VoronoiParams{})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6 (each site adjacent to the other two)", len(records))
	}

	got := neighborsBySource(records)
	for site, neighbors := range got {
		if len(neighbors) != 2 {
			t.Errorf("site %s has %d neighbors, want 2", site, len(neighbors))
		}
	}
	for _, r := range records {
		if r.NeighborSite == r.SourceSite {
			t.Errorf("record reports site %s as its own neighbor", r.SourceSite)
		}
		if r.DistanceKm <= 0 {
			t.Errorf("record %s->%s distance %v, want > 0", r.SourceSite, r.NeighborSite, r.DistanceKm)
		}
	}
}

func TestVoronoiEngine_AdjacencyIsSymmetric(t *testing.T) {
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0.02", "0", "90"},
		[5]string{"C", "1", "0.01", "0.02", "90"},
		[5]string{"D", "1", "0.05", "0.05", "90"},
		[5]string{"E", "1", "-0.03", "0.01", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{MaxRadiusKm: 6})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	type pair struct{ a, b string }
	seen := make(map[pair]bool)
	for _, r := range records {
		seen[pair{r.SourceSite, r.NeighborSite}] = true
	}
	for p := range seen {
		if !seen[pair{p.b, p.a}] {
			t.Errorf("adjacency %s->%s reported without the reverse", p.a, p.b)
		}
	}
}

func TestVoronoiEngine_RadiusCapFiltersBothDirections(t *testing.T) {
	// B sits ~2.2 km from A; C is ~110 km away from both.
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0.02", "0", "90"},
		[5]string{"C", "1", "1.0", "0", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{MaxRadiusKm: 5})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := neighborsBySource(records)
	if !reflect.DeepEqual(got["A"], []string{"B"}) {
		t.Errorf("A neighbors = %v, want [B]", got["A"])
	}
	if !reflect.DeepEqual(got["B"], []string{"A"}) {
		t.Errorf("B neighbors = %v, want [A]", got["B"])
	}
	if len(got["C"]) != 0 {
		t.Errorf("C neighbors = %v, want none within 5 km", got["C"])
	}
}

func TestVoronoiEngine_TargetSubset(t *testing.T) {
	idx := mustIndex(t, triangleRows(t))
	engine := NewVoronoiEngine(VoronoiParams{TargetSiteIDs: []string{"B"}})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range records {
		if r.SourceSite != "B" {
			t.Errorf("record for source %s leaked into a B-only analysis", r.SourceSite)
		}
	}
	if len(records) != 2 {
		t.Errorf("got %d records for B, want 2", len(records))
	}
}

func TestVoronoiEngine_MergedDuplicateCoordinates(t *testing.T) {
	// A and B share a coordinate; both must inherit the merged
	// vertex's adjacency to C, and not each other.
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0", "0", "210"},
		[5]string{"C", "1", "0.01", "0", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := neighborsBySource(records)
	if !reflect.DeepEqual(got["A"], []string{"C"}) {
		t.Errorf("A neighbors = %v, want [C]", got["A"])
	}
	if !reflect.DeepEqual(got["B"], []string{"C"}) {
		t.Errorf("B neighbors = %v, want [C]", got["B"])
	}
	// C borders the merged vertex, so it sees both member sites.
	if len(got["C"]) != 2 {
		t.Errorf("C neighbors = %v, want both A and B", got["C"])
	}
}

func TestVoronoiEngine_DegenerateWhenOneDistinctCoordinate(t *testing.T) {
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0", "0", "210"},
	))
	engine := NewVoronoiEngine(VoronoiParams{})

	_, err := engine.Run(context.Background(), idx)
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestVoronoiEngine_TwoDistinctSitesAreMutual(t *testing.T) {
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0.02", "0", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := neighborsBySource(records)
	if !reflect.DeepEqual(got["A"], []string{"B"}) || !reflect.DeepEqual(got["B"], []string{"A"}) {
		t.Errorf("two-site adjacency = %v, want mutual", got)
	}
}

func TestVoronoiEngine_CollinearSitesChainAdjacency(t *testing.T) {
	// Four sites on a meridian: the cells are parallel slabs, so the
	// ends get one neighbor and the middles two.
	idx := mustIndex(t, rowsFor(t,
		[5]string{"A", "1", "0", "0", "90"},
		[5]string{"B", "1", "0.01", "0", "90"},
		[5]string{"C", "1", "0.02", "0", "90"},
		[5]string{"D", "1", "0.03", "0", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := neighborsBySource(records)
	wantCounts := map[string]int{"A": 1, "B": 2, "C": 2, "D": 1}
	for site, want := range wantCounts {
		if len(got[site]) != want {
			t.Errorf("site %s has neighbors %v, want %d of them", site, got[site], want)
		}
	}
}

func TestVoronoiEngine_IndoorAnnotatedNotExcluded(t *testing.T) {
	idx := mustIndex(t, rowsFor(t,
		[5]string{"IN", "1", "0", "0", "0"},
		[5]string{"OUT1", "1", "0.02", "0", "90"},
		[5]string{"OUT2", "1", "0.01", "0.02", "90"},
	))
	engine := NewVoronoiEngine(VoronoiParams{})

	records, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sawIndoorSource := false
	for _, r := range records {
		if r.SourceSite == "IN" {
			sawIndoorSource = true
			if !r.SourceIndoor {
				t.Errorf("indoor source not annotated: %+v", r)
			}
		} else if r.SourceIndoor {
			t.Errorf("outdoor source %s annotated indoor", r.SourceSite)
		}
	}
	if !sawIndoorSource {
		t.Errorf("indoor site must still get a neighbor list")
	}
}

func TestVoronoiEngine_NegativeRadiusRejected(t *testing.T) {
	idx := mustIndex(t, triangleRows(t))
	engine := NewVoronoiEngine(VoronoiParams{MaxRadiusKm: -1})
	if _, err := engine.Run(context.Background(), idx); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("error = %v, want ErrInvalidParameter", err)
	}
}

func TestVoronoiEngine_Deterministic(t *testing.T) {
	idx := mustIndex(t, triangleRows(t))
	engine := NewVoronoiEngine(VoronoiParams{})

	first, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := engine.Run(context.Background(), idx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two runs over the same index diverged:\n%v\n%v", first, second)
	}
}
