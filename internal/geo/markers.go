package geo

import (
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/entities"
)

const DepotMarkerID = "depot"

// Marker is one pin on the dashboard map.
type Marker struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Color string  `json:"color,omitempty"`
}

// Depot is the fixed marker appended to every map.
type Depot struct {
	Name  string
	Point Point
}

// NewDepot parses location, falling back to Westminster when it is unusable.
func NewDepot(name, location string) Depot {
	pt, err := ParseLocation(location)
	if err != nil {
		logging.Warn("Invalid depot location, using default", "location", location, "error", err.Error())
		pt = Point{Lat: 51.4995, Lng: -0.1248}
	}
	if name == "" {
		name = "Houses of Parliament"
	}
	return Depot{Name: name, Point: pt}
}

// BuildMarkers pins each distinct pickup point. Points that are missing
// or whose location does not parse are skipped. The depot is always last.
func BuildMarkers(points []*entities.PickupPoint, depot Depot) []Marker {
	markers := make([]Marker, 0, len(points)+1)
	seen := make(map[string]bool, len(points))

	for _, pt := range points {
		if pt == nil || pt.Location == "" || seen[pt.ID] {
			continue
		}
		loc, err := ParseLocation(pt.Location)
		if err != nil {
			logging.Debug("Skipping pickup point with unparsable location", "pickup_point_id", pt.ID, "error", err.Error())
			continue
		}
		seen[pt.ID] = true
		markers = append(markers, Marker{
			ID:    pt.ID,
			Label: pt.Name,
			Lat:   loc.Lat,
			Lng:   loc.Lng,
			Color: "red",
		})
	}

	return append(markers, Marker{
		ID:    DepotMarkerID,
		Label: depot.Name,
		Lat:   depot.Point.Lat,
		Lng:   depot.Point.Lng,
	})
}
