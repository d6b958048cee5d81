// ABOUTME: Tests for the coordinate picker using fake widget and locator.
// ABOUTME: Covers lazy construction, marker invariants, and geolocation flows.

package mapwidget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmicwatch/station-console/internal/geo"
)

type fakeView struct {
	center      geo.Coordinate
	zoom        int
	onClick     func(geo.Coordinate)
	marker      *geo.Coordinate
	popupTitle  string
	invalidated int
	removed     bool
}

func (v *fakeView) SetView(center geo.Coordinate, zoom int) {
	v.center = center
	v.zoom = zoom
}

func (v *fakeView) Zoom() int { return v.zoom }

func (v *fakeView) PlaceMarker(c geo.Coordinate) { v.marker = &c }

func (v *fakeView) MoveMarker(c geo.Coordinate) { v.marker = &c }

func (v *fakeView) RemoveMarker() { v.marker = nil }

func (v *fakeView) ShowPopup(title string, c geo.Coordinate) { v.popupTitle = title }

func (v *fakeView) InvalidateSize() { v.invalidated++ }

func (v *fakeView) Remove() { v.removed = true }

func (v *fakeView) click(c geo.Coordinate) { v.onClick(c) }

type fakeRenderer struct {
	mapVisible  bool
	toggleLabel string
	lat, lon    string
	busyCalls   []bool
}

func (r *fakeRenderer) SetMapVisible(visible bool)  { r.mapVisible = visible }
func (r *fakeRenderer) SetToggleLabel(label string) { r.toggleLabel = label }
func (r *fakeRenderer) SetInputs(lat, lon string)   { r.lat, r.lon = lat, lon }
func (r *fakeRenderer) SetLocateBusy(busy bool)     { r.busyCalls = append(r.busyCalls, busy) }

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *fakeNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

type fakeLocator struct {
	pos  geo.Coordinate
	err  error
	opts PositionOptions
}

func (l *fakeLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (geo.Coordinate, error) {
	l.opts = opts
	if l.err != nil {
		return geo.Coordinate{}, l.err
	}
	return l.pos, nil
}

type pickerFixture struct {
	picker   *Picker
	renderer *fakeRenderer
	notifier *fakeNotifier
	locator  *fakeLocator
	views    []*fakeView
}

func newFixture(t *testing.T, opts ...PickerOption) *pickerFixture {
	t.Helper()
	f := &pickerFixture{
		renderer: &fakeRenderer{},
		notifier: &fakeNotifier{},
		locator:  &fakeLocator{},
	}
	factory := func(center geo.Coordinate, zoom int, onClick func(geo.Coordinate)) MapView {
		v := &fakeView{center: center, zoom: zoom, onClick: onClick}
		f.views = append(f.views, v)
		return v
	}
	f.picker = NewPicker(factory, f.locator, f.renderer, f.notifier, opts...)
	return f
}

func (f *pickerFixture) currentView(t *testing.T) *fakeView {
	t.Helper()
	require.NotEmpty(t, f.views)
	return f.views[len(f.views)-1]
}

func TestToggleConstructsLazily(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.views)

	f.picker.Toggle()
	assert.True(t, f.picker.Visible())
	assert.True(t, f.renderer.mapVisible)
	assert.Equal(t, LabelHideMap, f.renderer.toggleLabel)

	require.Len(t, f.views, 1)
	v := f.currentView(t)
	assert.InDelta(t, 35.6762, v.center.Lat, 1e-9)
	assert.InDelta(t, 139.6503, v.center.Lon, 1e-9)
	assert.Equal(t, 10, v.zoom)
	assert.Nil(t, v.marker)
}

func TestToggleHideThenReshowReusesWidget(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	f.picker.Toggle()
	assert.False(t, f.picker.Visible())
	assert.Equal(t, LabelShowMap, f.renderer.toggleLabel)

	f.picker.Toggle()
	assert.Len(t, f.views, 1)
	assert.Equal(t, 1, f.currentView(t).invalidated)
}

func TestConstructCentersOnSeededValues(t *testing.T) {
	f := newFixture(t)
	f.picker.Seed("40.712800", "-74.006000")
	f.picker.Toggle()

	v := f.currentView(t)
	assert.InDelta(t, 40.7128, v.center.Lat, 1e-9)
	require.NotNil(t, v.marker)
	assert.InDelta(t, 40.7128, v.marker.Lat, 1e-9)
	assert.InDelta(t, -74.006, v.marker.Lon, 1e-9)
}

func TestClickFillsInputsAndMarker(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	v := f.currentView(t)

	v.click(geo.Coordinate{Lat: 40.123456789, Lon: -74.987654321})

	lat, lon := f.picker.Values()
	assert.Equal(t, "40.123457", lat)
	assert.Equal(t, "-74.987654", lon)
	assert.Equal(t, "40.123457", f.renderer.lat)
	require.NotNil(t, v.marker)
	assert.Equal(t, "Selected Location", v.popupTitle)
	assert.True(t, f.picker.HasMarker())
}

func TestSecondClickMovesMarker(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	v := f.currentView(t)

	v.click(geo.Coordinate{Lat: 10, Lon: 20})
	v.click(geo.Coordinate{Lat: 30, Lon: 40})

	require.NotNil(t, v.marker)
	assert.InDelta(t, 30, v.marker.Lat, 1e-9)
	assert.True(t, f.picker.HasMarker())
}

func TestInputChangedValidRecentersAtCurrentZoom(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	v := f.currentView(t)
	v.zoom = 13

	f.picker.InputChanged("51.5", "-0.12")

	assert.InDelta(t, 51.5, v.center.Lat, 1e-9)
	assert.Equal(t, 13, v.zoom)
	require.NotNil(t, v.marker)
}

func TestInputChangedInvalidRemovesMarker(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	v := f.currentView(t)

	f.picker.InputChanged("51.5", "-0.12")
	require.NotNil(t, v.marker)

	f.picker.InputChanged("51.5", "east")
	assert.Nil(t, v.marker)
	assert.False(t, f.picker.HasMarker())

	// Values are kept even when invalid.
	lat, lon := f.picker.Values()
	assert.Equal(t, "51.5", lat)
	assert.Equal(t, "east", lon)
}

func TestInputChangedBeforeConstructionIsStored(t *testing.T) {
	f := newFixture(t)
	f.picker.InputChanged("51.5", "-0.12")
	assert.Empty(t, f.views)

	f.picker.Toggle()
	v := f.currentView(t)
	assert.InDelta(t, 51.5, v.center.Lat, 1e-9)
	require.NotNil(t, v.marker)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	v := f.currentView(t)
	f.picker.InputChanged("51.5", "-0.12")
	require.NotNil(t, v.marker)

	f.picker.Clear()

	lat, lon := f.picker.Values()
	assert.Empty(t, lat)
	assert.Empty(t, lon)
	assert.Empty(t, f.renderer.lat)
	assert.Nil(t, v.marker)
	assert.False(t, f.picker.HasMarker())
}

func TestResetDestroysWidget(t *testing.T) {
	f := newFixture(t)
	f.picker.Toggle()
	first := f.currentView(t)

	f.picker.Reset()
	assert.False(t, f.picker.Visible())
	assert.Equal(t, LabelShowMap, f.renderer.toggleLabel)
	assert.True(t, first.removed)
	assert.False(t, f.picker.HasMarker())

	// Next reveal performs a fresh construction.
	f.picker.Seed("48.8566", "2.3522")
	f.picker.Toggle()
	require.Len(t, f.views, 2)
	second := f.currentView(t)
	assert.InDelta(t, 48.8566, second.center.Lat, 1e-9)
	require.NotNil(t, second.marker)
}

func TestResetWithoutWidgetIsSafe(t *testing.T) {
	f := newFixture(t)
	f.picker.Reset()
	assert.False(t, f.picker.Visible())
}

func TestUseCurrentLocation(t *testing.T) {
	f := newFixture(t)
	f.locator.pos = geo.Coordinate{Lat: 35.123456789, Lon: 139.5}
	f.picker.Toggle()
	v := f.currentView(t)

	f.picker.UseCurrentLocation(context.Background())

	// The position request always carries the fixed parameters.
	assert.True(t, f.locator.opts.HighAccuracy)
	assert.Equal(t, 10*time.Second, f.locator.opts.Timeout)
	assert.Equal(t, 60*time.Second, f.locator.opts.MaximumAge)

	lat, lon := f.picker.Values()
	assert.Equal(t, "35.123457", lat)
	assert.Equal(t, "139.500000", lon)
	assert.InDelta(t, 35.123456789, v.center.Lat, 1e-9)
	assert.Equal(t, 15, v.zoom)
	require.NotNil(t, v.marker)
	assert.Equal(t, "Current Location", v.popupTitle)
	assert.Equal(t, []string{"Current location acquired"}, f.notifier.successes)
	assert.Equal(t, []bool{true, false}, f.renderer.busyCalls)
}

func TestUseCurrentLocationWithoutWidget(t *testing.T) {
	f := newFixture(t)
	f.locator.pos = geo.Coordinate{Lat: 35.5, Lon: 139.5}

	f.picker.UseCurrentLocation(context.Background())

	// Inputs fill even though no widget exists yet.
	lat, _ := f.picker.Values()
	assert.Equal(t, "35.500000", lat)
	assert.Empty(t, f.views)
	assert.Equal(t, []string{"Current location acquired"}, f.notifier.successes)
}

func TestUseCurrentLocationErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"permission denied", &PositionError{Code: PositionPermissionDenied}, "Location access denied by user"},
		{"unavailable", &PositionError{Code: PositionUnavailable}, "Location information unavailable"},
		{"timeout", &PositionError{Code: PositionTimeout}, "Location request timeout"},
		{"other failure", errors.New("boom"), "Unable to get current location"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.locator.err = tc.err

			f.picker.UseCurrentLocation(context.Background())

			assert.Equal(t, []string{tc.want}, f.notifier.errors)
			assert.Empty(t, f.notifier.successes)
			// The trigger control is restored even on failure.
			assert.Equal(t, []bool{true, false}, f.renderer.busyCalls)
		})
	}
}

func TestUseCurrentLocationNoLocator(t *testing.T) {
	f := newFixture(t)
	p := NewPicker(func(center geo.Coordinate, zoom int, onClick func(geo.Coordinate)) MapView {
		t.Fatal("factory must not be called")
		return nil
	}, nil, f.renderer, f.notifier)

	p.UseCurrentLocation(context.Background())

	assert.Equal(t, []string{"Geolocation is not supported on this platform"}, f.notifier.errors)
	assert.Empty(t, f.renderer.busyCalls)
}
