package seismic

import "math"

// meanEarthRadiusM is the mean Earth radius in meters used for the
// great-circle distance check, per spec.md §4.4.
const meanEarthRadiusM = 6371000.0

// GreatCircleDistanceM returns the great-circle distance, in meters,
// between two (latitude, longitude) points in degrees, using the
// haversine formula on a sphere of mean Earth radius. No suitable
// third-party geo/haversine library was found anywhere in the retrieval
// pack (checked across every manifest's go.mod for geo/haversine/s2/orb —
// see DESIGN.md), so this is a deliberate, small stdlib `math`
// implementation.
func GreatCircleDistanceM(lat1, lon1, lat2, lon2 float64) float64 {
	const d2r = math.Pi / 180.0
	phi1, phi2 := lat1*d2r, lat2*d2r
	dphi := (lat2 - lat1) * d2r
	dlambda := (lon2 - lon1) * d2r

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return meanEarthRadiusM * c
}

// stationPoint is the minimal coordinate record the distance filter
// operates over.
type stationPoint struct {
	ID        StationID
	Latitude  float64
	Longitude float64
}

// FilterByInterstationDistance partitions candidates into those at least
// minDistanceM away (great-circle) from every point in accepted, and those
// that are too close. This restores the distance filter that is present
// but commented out in the original source between availability and
// download (confirmed by reading
// original_source/obspy/fdsn/download_helpers/download_helpers.py); this
// specification's explicit redesign decision (spec.md §9, §4.4 step 4) is
// to enable it unconditionally.
//
// A naive O(len(accepted) * len(candidates)) nearest-neighbor scan is used
// rather than a spatial index: run sizes in this domain (hundreds to low
// thousands of stations per provider) make an index an unjustified
// complexity for a filter that runs at most once per provider per run.
func FilterByInterstationDistance(accepted []stationPoint, candidates []stationPoint, minDistanceM float64) (kept []stationPoint, rejected []stationPoint) {
	if minDistanceM <= 0 {
		return candidates, nil
	}
	for _, c := range candidates {
		tooClose := false
		for _, a := range accepted {
			if GreatCircleDistanceM(c.Latitude, c.Longitude, a.Latitude, a.Longitude) < minDistanceM {
				tooClose = true
				break
			}
		}
		if tooClose {
			rejected = append(rejected, c)
		} else {
			kept = append(kept, c)
			// Newly accepted candidates must also repel subsequent
			// candidates within the same provider's batch.
			accepted = append(accepted, c)
		}
	}
	return kept, rejected
}
