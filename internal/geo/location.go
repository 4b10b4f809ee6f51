package geo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var dmsPattern = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)°(?:(\d+(?:\.\d+)?)['′])?(?:(\d+(?:\.\d+)?)["″])?([NSEWnsew])?$`)

// ParseLocation reads a "lat lng" pair where each half is decimal degrees
// (51.4995) or degrees-minutes-seconds (51°29'58.2"N). A comma may separate
// the halves.
func ParseLocation(s string) (Point, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("location %q: expected 2 coordinates, got %d", s, len(parts))
	}

	lat, err := ParseCoordinate(parts[0])
	if err != nil {
		return Point{}, fmt.Errorf("location %q: latitude: %w", s, err)
	}
	lng, err := ParseCoordinate(parts[1])
	if err != nil {
		return Point{}, fmt.Errorf("location %q: longitude: %w", s, err)
	}

	if math.Abs(lat) > 90 {
		return Point{}, fmt.Errorf("location %q: latitude %v out of range", s, lat)
	}
	if math.Abs(lng) > 180 {
		return Point{}, fmt.Errorf("location %q: longitude %v out of range", s, lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// ParseCoordinate converts one decimal or DMS value to decimal degrees.
// S and W hemispheres are negative.
func ParseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("coordinate %q is not a finite number", s)
		}
		return v, nil
	}

	m := dmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognised coordinate %q", s)
	}

	deg, _ := strconv.ParseFloat(m[1], 64)
	var mins, secs float64
	if m[2] != "" {
		mins, _ = strconv.ParseFloat(m[2], 64)
	}
	if m[3] != "" {
		secs, _ = strconv.ParseFloat(m[3], 64)
	}
	if mins >= 60 || secs >= 60 {
		return 0, fmt.Errorf("minutes and seconds must be below 60 in %q", s)
	}

	neg := deg < 0 || strings.HasPrefix(m[1], "-")
	v := math.Abs(deg) + mins/60 + secs/3600
	switch strings.ToUpper(m[4]) {
	case "S", "W":
		neg = !neg
	}
	if neg {
		v = -v
	}
	return v, nil
}
