package ports

import (
	"context"
	"time"

	"memorymap/domain"
)

// GeolocateErrorCode classifies geolocation failures the way the device
// capability reports them
type GeolocateErrorCode int

const (
	GeolocateUnknown GeolocateErrorCode = iota
	GeolocatePermissionDenied
	GeolocatePositionUnavailable
	GeolocateTimeout
)

// GeolocateError is the error type returned by a Geolocator
type GeolocateError struct {
	Code    GeolocateErrorCode
	Message string
}

func (e *GeolocateError) Error() string {
	return e.Message
}

// GeolocateOptions mirrors the capability's per-attempt tuning knobs
type GeolocateOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Geolocator is the environment capability returning device coordinates.
// Implementations honor ctx cancellation as the caller's watchdog; the
// underlying capability call is abandoned, not force-cancelled.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts GeolocateOptions) (lat, lng float64, err error)
}

// ReverseGeocoder resolves coordinates into best-effort place labels
type ReverseGeocoder interface {
	Lookup(ctx context.Context, lat, lng float64) (domain.Place, error)
}

// MarkerHandle is a live marker in the map widget. Selection state updates
// in place; recreating the handle would lose marker identity.
type MarkerHandle interface {
	SetSelected(selected bool)
	Remove()
}

// MapWidget is the passive map view driven by declarative marker and
// viewport state
type MapWidget interface {
	AddMarker(marker domain.Marker) MarkerHandle
	SetViewport(viewport domain.Viewport)
}
