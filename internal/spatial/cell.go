package spatial

import (
	"math"

	"github.com/uber/h3-go/v4"
)

// H3 resolution bounds. DefaultResolution is used when an ingestion
// request does not supply one.
const (
	MinResolution     = 0
	MaxResolution     = 15
	DefaultResolution = 9
)

// ValidResolution reports whether res is a usable H3 resolution
func ValidResolution(res int) bool {
	return res >= MinResolution && res <= MaxResolution
}

// ValidLatLng reports whether lat/lon are finite and within range
func ValidLatLng(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CellID computes the H3 cell index for a coordinate at the given
// resolution. This is a pure function: identical inputs always yield
// the identical cell string, which the client-side mirror relies on.
func CellID(lat, lon float64, res int) string {
	return h3.LatLngToCell(h3.NewLatLng(lat, lon), res).String()
}

// CellResolution returns the resolution encoded in a cell id, or -1
// if the id is not a valid H3 index
func CellResolution(cellID string) int {
	c := h3.Cell(h3.IndexFromString(cellID))
	if !c.IsValid() {
		return -1
	}
	return c.Resolution()
}

// ParentCellID derives the parent of a cell at a coarser resolution.
// It returns false when the id is invalid or when res is finer than
// the cell's own resolution; finer-than-stored requests cannot be
// satisfied and are treated as "no match" by callers.
func ParentCellID(cellID string, res int) (string, bool) {
	c := h3.Cell(h3.IndexFromString(cellID))
	if !c.IsValid() {
		return "", false
	}
	if res > c.Resolution() {
		return "", false
	}
	if res == c.Resolution() {
		return c.String(), true
	}
	return c.Parent(res).String(), true
}

// CellCenter returns the center coordinate of a cell
func CellCenter(cellID string) (lat, lon float64, ok bool) {
	c := h3.Cell(h3.IndexFromString(cellID))
	if !c.IsValid() {
		return 0, 0, false
	}
	ll := h3.CellToLatLng(c)
	return ll.Lat, ll.Lng, true
}
