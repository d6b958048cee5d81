// ABOUTME: Capability interfaces for the interactive map widget and geolocation.
// ABOUTME: The picker drives these; concrete implementations live in the UI host.

package mapwidget

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmicwatch/station-console/internal/geo"
)

// MapView is the imperative surface of one live map widget instance:
// a pannable, zoomable view with at most one marker. The picker owns the
// instance lifecycle and never holds more than one at a time.
type MapView interface {
	// SetView recenters the view at the given coordinate and zoom.
	SetView(center geo.Coordinate, zoom int)

	// Zoom returns the current zoom level.
	Zoom() int

	// PlaceMarker adds the marker at the coordinate. Only called when no
	// marker is present.
	PlaceMarker(c geo.Coordinate)

	// MoveMarker relocates the existing marker.
	MoveMarker(c geo.Coordinate)

	// RemoveMarker removes the marker if present.
	RemoveMarker()

	// ShowPopup opens an informational popup at the marker.
	ShowPopup(title string, c geo.Coordinate)

	// InvalidateSize recomputes the widget's dimensions after its
	// container becomes visible again.
	InvalidateSize()

	// Remove destroys the widget. The instance must not be used afterward.
	Remove()
}

// Factory constructs a MapView centered at the given point. Map clicks are
// delivered to onClick.
type Factory func(center geo.Coordinate, zoom int, onClick func(geo.Coordinate)) MapView

// PositionOptions mirror the platform geolocation request options.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// PositionErrorCode classifies geolocation failures.
type PositionErrorCode int

const (
	PositionPermissionDenied PositionErrorCode = iota + 1
	PositionUnavailable
	PositionTimeout
)

// PositionError is a geolocation failure with a platform reason code.
type PositionError struct {
	Code PositionErrorCode
}

func (e *PositionError) Error() string {
	switch e.Code {
	case PositionPermissionDenied:
		return "geolocation: permission denied"
	case PositionUnavailable:
		return "geolocation: position unavailable"
	case PositionTimeout:
		return "geolocation: timeout"
	default:
		return fmt.Sprintf("geolocation: error code %d", e.Code)
	}
}

// Geolocator resolves the operator's current position.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (geo.Coordinate, error)
}
