package seismic

import (
	"math"
	"testing"
)

func TestGreatCircleDistanceZero(t *testing.T) {
	d := GreatCircleDistanceM(10, 20, 10, 20)
	if d != 0 {
		t.Errorf("expected 0 distance for identical points, got %v", d)
	}
}

func TestGreatCircleDistanceKnown(t *testing.T) {
	// One degree of latitude is approximately 111.19 km along a meridian.
	d := GreatCircleDistanceM(0, 0, 1, 0)
	want := 111194.0
	if math.Abs(d-want) > 500 {
		t.Errorf("GreatCircleDistanceM(0,0,1,0) = %v, want ~%v", d, want)
	}
}

func TestFilterByInterstationDistanceDisabled(t *testing.T) {
	candidates := []stationPoint{{ID: StationID{"XX", "A"}, Latitude: 0, Longitude: 0}}
	kept, rejected := FilterByInterstationDistance(nil, candidates, 0)
	if len(kept) != 1 || len(rejected) != 0 {
		t.Fatalf("expected all candidates kept when minDistanceM <= 0, got kept=%d rejected=%d", len(kept), len(rejected))
	}
}

func TestFilterByInterstationDistanceRejectsNearby(t *testing.T) {
	accepted := []stationPoint{{ID: StationID{"XX", "A"}, Latitude: 0, Longitude: 0}}
	candidates := []stationPoint{
		{ID: StationID{"XX", "B"}, Latitude: 0.0001, Longitude: 0}, // ~11m away
		{ID: StationID{"XX", "C"}, Latitude: 10, Longitude: 10},    // far away
	}
	kept, rejected := FilterByInterstationDistance(accepted, candidates, 1000)
	if len(kept) != 1 || kept[0].ID.Station != "C" {
		t.Fatalf("expected only station C to be kept, got %+v", kept)
	}
	if len(rejected) != 1 || rejected[0].ID.Station != "B" {
		t.Fatalf("expected station B to be rejected, got %+v", rejected)
	}
}

func TestFilterByInterstationDistanceRepelsWithinBatch(t *testing.T) {
	candidates := []stationPoint{
		{ID: StationID{"XX", "A"}, Latitude: 0, Longitude: 0},
		{ID: StationID{"XX", "B"}, Latitude: 0.0001, Longitude: 0}, // close to A
		{ID: StationID{"XX", "C"}, Latitude: 20, Longitude: 20},    // far from both
	}
	kept, rejected := FilterByInterstationDistance(nil, candidates, 1000)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept stations (A and C), got %d: %+v", len(kept), kept)
	}
	if len(rejected) != 1 || rejected[0].ID.Station != "B" {
		t.Fatalf("expected station B rejected as too close to A, got %+v", rejected)
	}
}
