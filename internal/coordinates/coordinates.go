// Package coordinates recognises "lat,lng" literals typed into the search box.
package coordinates

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var pattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)$`)

// IsCoordinateString reports whether input has the shape of a "lat,lng" literal.
// It does not check ranges; use Parse for that.
func IsCoordinateString(input string) bool {
	return pattern.MatchString(strings.TrimSpace(input))
}

// Parse returns the coordinate pair in input, or false when input is not a
// valid "lat,lng" literal. Out-of-range values are "not coordinates" too, so
// callers fall through to address resolution.
func Parse(input string) (Coordinates, bool) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinates{}, false
	}

	if !Valid(lat, lng) {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// Valid reports whether lat/lng are finite and inside [-90,90] and [-180,180].
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Format renders c as "lat, lng" with the given number of decimals.
// A negative precision uses the shortest exact representation.
func Format(c Coordinates, precision int) string {
	return strconv.FormatFloat(c.Lat, 'f', precision, 64) + ", " + strconv.FormatFloat(c.Lng, 'f', precision, 64)
}
