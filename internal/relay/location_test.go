package relay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLocationRounding(t *testing.T) {
	loc := NewLocation(40.7128339999, -74.0059728888, 14.123456, 30.567, 1234)

	assert.Equal(t, 40.712834, loc.Lat, "lat rounds to 6 decimals")
	assert.Equal(t, -74.005973, loc.Lng, "lng rounds to 6 decimals")
	assert.Equal(t, 14.12, loc.Zoom, "zoom rounds to 2 decimals")
	assert.Equal(t, 30.57, loc.Tilt, "tilt rounds to 2 decimals")
	assert.Equal(t, int64(1234), loc.Timestamp)
}

func TestLocationRequestValues(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		req  LocationRequest
		ok   bool
	}{
		{"all fields", LocationRequest{Lat: f(1), Lng: f(2), Zoom: f(3), Tilt: f(4)}, true},
		{"tilt defaults to zero", LocationRequest{Lat: f(1), Lng: f(2), Zoom: f(3)}, true},
		{"missing lat", LocationRequest{Lng: f(2), Zoom: f(3)}, false},
		{"missing zoom", LocationRequest{Lat: f(1), Lng: f(2)}, false},
		{"nan lat", LocationRequest{Lat: f(math.NaN()), Lng: f(2), Zoom: f(3)}, false},
		{"inf tilt", LocationRequest{Lat: f(1), Lng: f(2), Zoom: f(3), Tilt: f(math.Inf(1))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, zoom, tilt, ok := tt.req.values()
			assert.Equal(t, tt.ok, ok)
			if tt.ok && tt.req.Tilt == nil {
				assert.Zero(t, tilt)
			}
			_ = lat
			_ = lng
			_ = zoom
		})
	}
}
