// Package api implements the typed REST client for the cosmic-watch
// measurement backend. Authentication, user storage, and persistence are
// entirely the backend's concern; this package only speaks its JSON
// contract and surfaces server-reported failures as *APIError.
package api
