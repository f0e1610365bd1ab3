// Package geocoding resolves coordinates to human-readable place names.
package geocoding

import (
	"context"
	"errors"
)

var (
	// ErrNoPlace is returned when the upstream answered but carried no usable name.
	ErrNoPlace = errors.New("geocoding: no place name for location")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("geocoding: api key not configured")
)

// Geocoder turns a coordinate into a place name.
type Geocoder interface {
	ReversePlace(ctx context.Context, lat, lon float64) (string, error)
}

// Configurable is implemented by geocoders that need credentials to work.
type Configurable interface {
	Configured() bool
}

// IsConfigured reports whether g can answer lookups. Geocoders that do not
// implement Configurable are assumed ready.
func IsConfigured(g Geocoder) bool {
	if c, ok := g.(Configurable); ok {
		return c.Configured()
	}
	return true
}
