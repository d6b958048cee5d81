// Package mapwidget implements the GPS coordinate picker used by the user
// form. The third-party map widget is reduced to a small capability
// interface (MapView) so the picker's lifecycle rules can be exercised
// against a fake, and geolocation sits behind a Geolocator interface with
// platform-style failure codes.
package mapwidget
