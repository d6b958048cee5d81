// ABOUTME: GPS coordinate picker controlling map widget lifecycle and inputs.
// ABOUTME: Owns at most one widget instance and keeps the marker/input invariant.

package mapwidget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cosmicwatch/station-console/internal/geo"
)

// Toggle control labels.
const (
	LabelShowMap = "📍 Select on Map"
	LabelHideMap = "🗺️ Hide Map"
)

// Geolocation request parameters: high-accuracy preference, 10-second
// timeout, 60-second cached-position allowance.
var locateOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   60 * time.Second,
}

const locateZoom = 15

// Renderer is the picker's view boundary: coordinate inputs, the map
// container's visibility, and the two control buttons.
type Renderer interface {
	SetMapVisible(visible bool)
	SetToggleLabel(label string)
	SetInputs(lat, lon string)

	// SetLocateBusy disables the "use current location" control and swaps
	// its label while a position request is in flight; false restores the
	// control to its enabled, original-label state.
	SetLocateBusy(busy bool)
}

// Notifier surfaces picker outcomes as transient notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Picker lets the operator set coordinates by typing, by clicking the map,
// or from the platform's location service. It is driven from a single
// event loop and is not safe for concurrent use.
type Picker struct {
	factory  Factory
	locator  Geolocator
	renderer Renderer
	notifier Notifier
	logger   *slog.Logger

	defaultCenter geo.Coordinate
	defaultZoom   int

	visible   bool
	view      MapView
	hasMarker bool
	lat, lon  string
}

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithDefaultView sets the center and zoom used when the widget is first
// constructed with no valid coordinates entered.
func WithDefaultView(center geo.Coordinate, zoom int) PickerOption {
	return func(p *Picker) {
		p.defaultCenter = center
		p.defaultZoom = zoom
	}
}

// WithLogger sets the picker's logger.
func WithLogger(logger *slog.Logger) PickerOption {
	return func(p *Picker) { p.logger = logger }
}

// NewPicker creates a picker. The widget itself is constructed lazily on
// first reveal.
func NewPicker(factory Factory, locator Geolocator, renderer Renderer, notifier Notifier, opts ...PickerOption) *Picker {
	p := &Picker{
		factory:       factory,
		locator:       locator,
		renderer:      renderer,
		notifier:      notifier,
		logger:        slog.Default().With("component", "mapwidget"),
		defaultCenter: geo.Coordinate{Lat: 35.6762, Lon: 139.6503},
		defaultZoom:   10,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Values returns the current coordinate input values.
func (p *Picker) Values() (lat, lon string) { return p.lat, p.lon }

// Visible reports whether the map container is currently shown.
func (p *Picker) Visible() bool { return p.visible }

// HasMarker reports whether the widget currently shows a marker.
func (p *Picker) HasMarker() bool { return p.hasMarker }

// Seed sets the coordinate inputs without touching the widget. Used when a
// form is opened with a user's stored coordinates; the widget is always
// torn down at that point, so the values only take effect on next reveal.
func (p *Picker) Seed(lat, lon string) {
	p.lat, p.lon = lat, lon
	p.renderer.SetInputs(lat, lon)
}

// Toggle shows or hides the map container. The widget is constructed on
// first reveal; later reveals only refresh its size unless a Reset tore
// it down in between.
func (p *Picker) Toggle() {
	if p.visible {
		p.visible = false
		p.renderer.SetMapVisible(false)
		p.renderer.SetToggleLabel(LabelShowMap)
		return
	}

	p.visible = true
	p.renderer.SetMapVisible(true)
	p.renderer.SetToggleLabel(LabelHideMap)

	if p.view == nil {
		p.construct()
	} else {
		p.view.InvalidateSize()
	}
}

// construct builds the widget centered on the current inputs when both are
// valid, else on the default center, and places the initial marker.
func (p *Picker) construct() {
	center := p.defaultCenter
	c, ok := geo.Parse(p.lat, p.lon)
	if ok {
		center = c
	}

	p.view = p.factory(center, p.defaultZoom, p.handleClick)
	p.hasMarker = false
	if ok {
		p.view.PlaceMarker(c)
		p.hasMarker = true
	}
}

// handleClick fills the inputs at six-decimal precision, moves the marker
// to the clicked point, and opens a popup naming the selection.
func (p *Picker) handleClick(c geo.Coordinate) {
	p.lat = geo.FormatInput(c.Lat)
	p.lon = geo.FormatInput(c.Lon)
	p.renderer.SetInputs(p.lat, p.lon)

	p.setMarker(c)
	p.view.ShowPopup("Selected Location", c)
}

// InputChanged reacts to the operator typing in either coordinate field.
// When both fields parse, the view recenters and the marker follows; when
// either is invalid or empty, any marker is removed and the view stays at
// its last center.
func (p *Picker) InputChanged(lat, lon string) {
	p.lat, p.lon = lat, lon

	if p.view == nil {
		return
	}

	c, ok := geo.Parse(lat, lon)
	if !ok {
		if p.hasMarker {
			p.view.RemoveMarker()
			p.hasMarker = false
		}
		return
	}

	p.view.SetView(c, p.view.Zoom())
	p.setMarker(c)
}

// Clear empties both coordinate fields and removes any marker, whether or
// not the map is visible.
func (p *Picker) Clear() {
	p.lat, p.lon = "", ""
	p.renderer.SetInputs("", "")

	if p.view != nil && p.hasMarker {
		p.view.RemoveMarker()
		p.hasMarker = false
	}
}

// UseCurrentLocation asks the platform for the operator's position and, on
// success, fills the inputs and recenters the map on the fix. The trigger
// control is restored on every outcome.
func (p *Picker) UseCurrentLocation(ctx context.Context) {
	if p.locator == nil {
		p.notifier.Error("Geolocation is not supported on this platform")
		return
	}

	p.renderer.SetLocateBusy(true)
	defer p.renderer.SetLocateBusy(false)

	pos, err := p.locator.CurrentPosition(ctx, locateOptions)
	if err != nil {
		p.logger.Warn("geolocation failed", "error", err)
		p.notifier.Error(locationErrorMessage(err))
		return
	}

	p.lat = geo.FormatInput(pos.Lat)
	p.lon = geo.FormatInput(pos.Lon)
	p.renderer.SetInputs(p.lat, p.lon)

	if p.view != nil {
		p.view.SetView(pos, locateZoom)
		p.setMarker(pos)
		p.view.ShowPopup("Current Location", pos)
	}

	p.notifier.Success("Current location acquired")
}

// Reset forces the map hidden, restores the toggle label, and destroys
// any widget instance so the next reveal performs a fresh construction
// centered on the (possibly new) form values. Invoked whenever a create
// or edit form is opened.
func (p *Picker) Reset() {
	p.visible = false
	p.renderer.SetMapVisible(false)
	p.renderer.SetToggleLabel(LabelShowMap)

	if p.view != nil {
		p.view.Remove()
		p.view = nil
		p.hasMarker = false
	}
}

// setMarker places or moves the marker so exactly one exists at c.
func (p *Picker) setMarker(c geo.Coordinate) {
	if p.hasMarker {
		p.view.MoveMarker(c)
		return
	}
	p.view.PlaceMarker(c)
	p.hasMarker = true
}

// locationErrorMessage maps a geolocation failure to its operator-facing
// message.
func locationErrorMessage(err error) string {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		switch posErr.Code {
		case PositionPermissionDenied:
			return "Location access denied by user"
		case PositionUnavailable:
			return "Location information unavailable"
		case PositionTimeout:
			return "Location request timeout"
		}
	}
	return "Unable to get current location"
}
