package relay

import "math"

// Location is one published viewport: position, zoom, tilt, and the relay's
// receipt time in milliseconds. Immutable once built.
type Location struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Zoom      float64 `json:"zoom"`
	Tilt      float64 `json:"tilt"`
	Timestamp int64   `json:"timestamp"`
}

// NewLocation rounds coordinates to 6 decimals and zoom/tilt to 2
func NewLocation(lat, lng, zoom, tilt float64, timestampMS int64) Location {
	return Location{
		Lat:       roundTo(lat, 6),
		Lng:       roundTo(lng, 6),
		Zoom:      roundTo(zoom, 2),
		Tilt:      roundTo(tilt, 2),
		Timestamp: timestampMS,
	}
}

func roundTo(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
