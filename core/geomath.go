package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle
// calculations in the analysis core (kilometres).
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between
// two coordinates in kilometres. Sub-meter accurate for terrestrial
// distances, which is all this tool cares about.
func DistanceKm(a, b model.Coordinate) (float64, error) {
	if !a.Valid() {
		return 0, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, a.Lat, a.Lon)
	}
	if !b.Valid() {
		return 0, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, b.Lat, b.Lon)
	}
	return haversineKm(a, b), nil
}

// BearingDeg returns the initial bearing from a to b in degrees,
// normalized to [0, 360).
func BearingDeg(a, b model.Coordinate) (float64, error) {
	if !a.Valid() {
		return 0, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, a.Lat, a.Lon)
	}
	if !b.Valid() {
		return 0, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, b.Lat, b.Lon)
	}
	return initialBearingDeg(a, b), nil
}

// AngularDeltaDeg returns the smallest absolute difference between
// two compass angles, in [0, 180].
func AngularDeltaDeg(a, b float64) float64 {
	d := math.Abs(math.Mod(a, 360) - math.Mod(b, 360))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// haversineKm assumes both coordinates were validated at the index
// boundary.
func haversineKm(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if s > 1 {
		s = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(s))
}

func initialBearingDeg(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	// Mod can return 360 for tiny negative inputs; keep [0, 360).
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// withinBeam reports whether a bearing falls inside the angular
// sector of width 2*halfBeamDeg centred on dir.
func withinBeam(dir, bearing, halfBeamDeg float64) bool {
	return AngularDeltaDeg(dir, bearing) <= halfBeamDeg
}
