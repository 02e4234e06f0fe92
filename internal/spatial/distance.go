package spatial

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean radius of the Earth
const EarthRadiusMeters = 6371000.0

// HaversineDistance calculates the great-circle distance between two points
// in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// DistanceToCellCenter calculates the distance in meters from a
// coordinate to the center of an H3 cell. Returns false when the cell
// id is invalid.
func DistanceToCellCenter(lat, lon float64, cellID string) (float64, bool) {
	clat, clon, ok := CellCenter(cellID)
	if !ok {
		return 0, false
	}
	return HaversineDistance(lat, lon, clat, clon), true
}
