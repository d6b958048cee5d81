// ABOUTME: GPS coordinate parsing and display formatting for station locations.
// ABOUTME: Entry precision is six decimal degrees, directory display four.

package geo

import (
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Parse interprets a latitude/longitude input pair. It returns false when
// either value is empty or not a number; a coordinate pair is only ever
// both present or both absent.
func Parse(lat, lon string) (Coordinate, bool) {
	la, ok := parseOne(lat)
	if !ok {
		return Coordinate{}, false
	}
	lo, ok := parseOne(lon)
	if !ok {
		return Coordinate{}, false
	}
	return Coordinate{Lat: la, Lon: lo}, true
}

func parseOne(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatInput renders a single decimal-degree value at the six-decimal
// precision used for the coordinate entry fields. Values are rounded,
// matching what a map click or geolocation fix produces.
func FormatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FormatDisplay renders a value at the four-decimal precision used in the
// user directory. The extra digits are truncated, not rounded.
func FormatDisplay(v float64) string {
	t := math.Trunc(v*1e4) / 1e4
	return strconv.FormatFloat(t, 'f', 4, 64)
}

// DisplayPair renders a coordinate as it appears in a directory row,
// e.g. "35.0000, 139.0000".
func DisplayPair(c Coordinate) string {
	return FormatDisplay(c.Lat) + ", " + FormatDisplay(c.Lon)
}
